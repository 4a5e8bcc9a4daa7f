package state

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/imamik/vpsgate/internal/config"
)

// Well-known keys of the persisted .env file.
const (
	KeyVariant        = "VARIANT"
	KeyDomain         = "DOMAIN"
	KeyPublicIP       = "VPS_IP"
	KeyToken          = "TOKEN"
	KeyTunnelServerIP = "WG_SERVER_IP"
	KeyTunnelClientIP = "WG_CLIENT_IP"
	KeyTunnelPort     = "WG_PORT"
	KeyPeerPublicKey  = "WG_PEER_PUBLIC_KEY"
)

// EnvFileName is the name of the persisted state file inside the install directory.
const EnvFileName = ".env"

// ProvisioningState is everything a run knows about the installation.
type ProvisioningState struct {
	Variant    config.Variant
	InstallDir string

	Domain   string
	PublicIP string

	// frp
	AuthToken         string
	DashboardUser     string
	DashboardPassword string

	// WireGuard
	TunnelServerIP string
	TunnelClientIP string
	TunnelPort     int
	PrivateKey     string
	PublicKey      string
	PeerPublicKey  string
	PeerPrivateKey string

	// Prior is set when the install directory already held a .env.
	Prior *Snapshot
}

// Snapshot is the state found on disk at the start of a run.
type Snapshot struct {
	Path     string
	Values   map[string]string
	LoadedAt time.Time

	// BackupDir is set once this run copied replaced files away.
	BackupDir string
}

// Get returns a persisted value.
func (s *Snapshot) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.Values[key]
	return v, ok && v != ""
}

// EnvPath returns the path of the .env file.
func (s *ProvisioningState) EnvPath() string {
	return filepath.Join(s.InstallDir, EnvFileName)
}

// Path joins elem onto the install directory.
func (s *ProvisioningState) Path(elem ...string) string {
	return filepath.Join(append([]string{s.InstallDir}, elem...)...)
}

// EnvValues returns the values persisted to .env. Secrets other than the
// frp token live in their own files.
func (s *ProvisioningState) EnvValues() map[string]string {
	values := map[string]string{
		KeyVariant:  string(s.Variant),
		KeyDomain:   s.Domain,
		KeyPublicIP: s.PublicIP,
	}
	if s.AuthToken != "" {
		values[KeyToken] = s.AuthToken
	}
	if s.TunnelServerIP != "" {
		values[KeyTunnelServerIP] = s.TunnelServerIP
		values[KeyTunnelClientIP] = s.TunnelClientIP
		values[KeyTunnelPort] = strconv.Itoa(s.TunnelPort)
	}
	if s.PeerPublicKey != "" && s.PeerPrivateKey == "" {
		values[KeyPeerPublicKey] = s.PeerPublicKey
	}
	return values
}
