package report

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/state"
)

// File names inside the install directory.
const (
	ConnectionInfoFile = "connection-info.txt"
	SecretFile         = "peer-secret.yaml"
)

// Entry is one KEY=VALUE line of the connection info.
type Entry struct {
	Key   string
	Value string
}

// ConnectionInfo lists what the cluster side needs to connect.
func ConnectionInfo(st *state.ProvisioningState, cfg *config.Config) []Entry {
	entries := []Entry{
		{"VARIANT", string(st.Variant)},
		{"DOMAIN", st.Domain},
		{"VPS_IP", st.PublicIP},
	}

	switch st.Variant {
	case config.VariantFRP:
		entries = append(entries,
			Entry{"FRP_SERVER_ADDR", st.PublicIP},
			Entry{"FRP_SERVER_PORT", strconv.Itoa(cfg.FRP.BindPort)},
			Entry{"FRP_TOKEN", st.AuthToken},
			Entry{"FRP_DASHBOARD_URL", "http://" + net.JoinHostPort(st.PublicIP, strconv.Itoa(cfg.FRP.DashboardPort))},
			Entry{"FRP_DASHBOARD_USER", st.DashboardUser},
			Entry{"FRP_DASHBOARD_PASSWORD", st.DashboardPassword},
			Entry{"CLIENT_CONFIG", st.Path(render.FRPClientConfig)},
		)
	case config.VariantWireGuard:
		peer := st.PeerPublicKey
		if peer == "" {
			peer = "pending"
		}
		entries = append(entries,
			Entry{"WG_ENDPOINT", net.JoinHostPort(st.PublicIP, strconv.Itoa(st.TunnelPort))},
			Entry{"WG_SERVER_PUBLIC_KEY", st.PublicKey},
			Entry{"WG_SERVER_IP", st.TunnelServerIP},
			Entry{"WG_CLIENT_IP", st.TunnelClientIP},
			Entry{"WG_PEER_PUBLIC_KEY", peer},
			Entry{"CLIENT_CONFIG", st.Path(render.PeerConfig)},
		)
	}

	return append(entries, Entry{"SECRET_MANIFEST", st.Path(SecretFile)})
}

// FormatEntries renders entries as KEY=VALUE lines.
func FormatEntries(entries []Entry) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Generated by vpsgate.\n")
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s=%s\n", e.Key, e.Value)
	}
	return buf.Bytes()
}

// ReadConnectionInfo reads the connection info of installDir in file order.
func ReadConnectionInfo(installDir string) ([]Entry, error) {
	path := filepath.Join(installDir, ConnectionInfoFile)
	// #nosec G304 -- path is inside the install directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, state.ErrNotInstalled
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%s: malformed line %q", path, line)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, scanner.Err()
}
