package config

// Variant selects how the VPS exposes the cluster.
type Variant string

const (
	// VariantFRP runs an frp server under systemd.
	VariantFRP Variant = "frp"
	// VariantWireGuard runs WireGuard and Caddy under Docker Compose.
	VariantWireGuard Variant = "wireguard"
)

// IsValid returns true if the variant is known.
func (v Variant) IsValid() bool {
	switch v {
	case VariantFRP, VariantWireGuard:
		return true
	}
	return false
}

// RestartPolicy decides what happens to an already running service
// whose configuration changed.
type RestartPolicy string

const (
	// RestartAlways restarts without asking.
	RestartAlways RestartPolicy = "always"
	// RestartNever leaves the running service alone.
	RestartNever RestartPolicy = "never"
	// RestartAsk prompts the operator; non-interactive runs restart.
	RestartAsk RestartPolicy = "ask"
)

// IsValid returns true if the policy is known.
func (p RestartPolicy) IsValid() bool {
	switch p {
	case RestartAlways, RestartNever, RestartAsk:
		return true
	}
	return false
}

// KeyTool selects how WireGuard keys are generated.
type KeyTool string

const (
	// KeyToolNative generates keys in-process.
	KeyToolNative KeyTool = "native"
	// KeyToolWG shells out to `wg genkey` / `wg pubkey`.
	KeyToolWG KeyTool = "wg"
)

// Config is the complete provisioning configuration.
type Config struct {
	Variant    Variant       `yaml:"variant"`
	InstallDir string        `yaml:"installDir,omitempty"`
	Restart    RestartPolicy `yaml:"restart"`

	// FreePorts allows vpsgate to kill whatever holds ports 80/443
	// before the first start. Off unless the operator opts in.
	FreePorts bool `yaml:"freePorts"`

	FRP       FRPConfig       `yaml:"frp"`
	WireGuard WireGuardConfig `yaml:"wireguard"`
	PublicIP  PublicIPConfig  `yaml:"publicIP"`
	DNS       DNSConfig       `yaml:"dns"`
	Firewall  FirewallConfig  `yaml:"firewall"`
	Backup    BackupConfig    `yaml:"backup"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	Report    ReportConfig    `yaml:"report"`
}

// FRPConfig holds the frp server and client layout.
type FRPConfig struct {
	Version       string `yaml:"version"`
	DownloadURL   string `yaml:"downloadURL,omitempty"`
	BindPort      int    `yaml:"bindPort"`
	VhostHTTPPort int    `yaml:"vhostHTTPPort"`
	// VhostHTTPSPort of 0 disables every HTTPS block.
	VhostHTTPSPort int    `yaml:"vhostHTTPSPort"`
	DashboardPort  int    `yaml:"dashboardPort"`
	DashboardUser  string `yaml:"dashboardUser"`
	LogFile        string `yaml:"logFile"`
	LogLevel       string `yaml:"logLevel"`
	LogMaxDays     int    `yaml:"logMaxDays"`
	SystemdDir     string `yaml:"systemdDir"`
	ServiceName    string `yaml:"serviceName"`

	Client FRPClientConfig `yaml:"client"`
}

// FRPClientConfig describes the proxies of the generated frpc.toml.
type FRPClientConfig struct {
	LocalIP           string `yaml:"localIP"`
	HTTPPort          int    `yaml:"httpPort"`
	HTTPSPort         int    `yaml:"httpsPort"`
	IncludeRootDomain bool   `yaml:"includeRootDomain"`
}

// WireGuardConfig holds the tunnel addressing and container images.
type WireGuardConfig struct {
	ServerIP         string  `yaml:"serverIP"`
	ClientIP         string  `yaml:"clientIP"`
	PrefixLength     int     `yaml:"prefixLength"`
	Port             int     `yaml:"port"`
	Keepalive        int     `yaml:"keepalive"`
	UpstreamPort     int     `yaml:"upstreamPort"`
	EgressInterface  string  `yaml:"egressInterface"`
	KeyTool          KeyTool `yaml:"keyTool"`
	GeneratePeerKeys bool    `yaml:"generatePeerKeys"`
	WireGuardImage   string  `yaml:"wireguardImage"`
	CaddyImage       string  `yaml:"caddyImage"`

	// OnDemandAsk is the endpoint Caddy asks before issuing a certificate
	// for a subdomain. Empty leaves the wildcard site on regular ACME.
	OnDemandAsk string `yaml:"onDemandAsk,omitempty"`
}

// PublicIPConfig lists the providers used to detect the VPS address.
// Entries are HTTP(S) URLs returning the address as plain text,
// "dns:opendns", "dns:google" or "hcloud-metadata".
type PublicIPConfig struct {
	Providers []string `yaml:"providers"`
}

// DNSConfig configures the resolver used for DNS probes.
type DNSConfig struct {
	Resolver string `yaml:"resolver"`
}

// FirewallConfig controls host and cloud firewall rules.
type FirewallConfig struct {
	UFW    bool                 `yaml:"ufw"`
	HCloud HCloudFirewallConfig `yaml:"hcloud"`
}

// HCloudFirewallConfig names a Hetzner Cloud firewall to keep in sync.
// Requires HCLOUD_TOKEN.
type HCloudFirewallConfig struct {
	Name   string `yaml:"name,omitempty"`
	Server string `yaml:"server,omitempty"`
}

// BackupConfig configures offsite copies of replaced files.
type BackupConfig struct {
	S3 S3BackupConfig `yaml:"s3"`
}

// S3BackupConfig points at S3-compatible storage. Credentials are read
// from VPSGATE_S3_ACCESS_KEY and VPSGATE_S3_SECRET_KEY.
type S3BackupConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// Enabled returns true if a bucket is configured.
func (c S3BackupConfig) Enabled() bool {
	return c.Bucket != ""
}

// MetricsConfig configures the node_exporter textfile output.
type MetricsConfig struct {
	TextfileDir string `yaml:"textfileDir,omitempty"`
}

// LogConfig configures the run log.
type LogConfig struct {
	File       string `yaml:"file,omitempty"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// ReportConfig names the Kubernetes Secret emitted for the cluster side.
type ReportConfig struct {
	SecretName      string `yaml:"secretName"`
	SecretNamespace string `yaml:"secretNamespace"`
}
