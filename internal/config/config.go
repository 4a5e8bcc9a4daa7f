package config

import (
	"path/filepath"
)

const (
	// DefaultConfigPath is read when present and no --config flag is given.
	DefaultConfigPath = "/etc/vpsgate/config.yaml"

	// DefaultFRPInstallDir is the install directory of the frp variant.
	DefaultFRPInstallDir = "/opt/frp"
	// DefaultWireGuardInstallDir is the install directory of the WireGuard variant.
	DefaultWireGuardInstallDir = "/opt/wireguard-caddy"

	// DefaultFRPVersion is the frp release downloaded when none is configured.
	DefaultFRPVersion = "0.61.1"
)

// Default returns the built-in configuration for the given variant.
func Default(variant Variant) *Config {
	return &Config{
		Variant: variant,
		Restart: RestartAsk,
		FRP: FRPConfig{
			Version:        DefaultFRPVersion,
			BindPort:       7000,
			VhostHTTPPort:  80,
			VhostHTTPSPort: 443,
			DashboardPort:  7500,
			DashboardUser:  "admin",
			LogFile:        "/var/log/frps.log",
			LogLevel:       "info",
			LogMaxDays:     3,
			SystemdDir:     "/etc/systemd/system",
			ServiceName:    "frps",
			Client: FRPClientConfig{
				LocalIP:   "127.0.0.1",
				HTTPPort:  80,
				HTTPSPort: 443,
			},
		},
		WireGuard: WireGuardConfig{
			ServerIP:        "10.0.0.1",
			ClientIP:        "10.0.0.2",
			PrefixLength:    24,
			Port:            51820,
			Keepalive:       25,
			UpstreamPort:    80,
			EgressInterface: "eth0",
			KeyTool:         KeyToolNative,
			WireGuardImage:  "lscr.io/linuxserver/wireguard:latest",
			CaddyImage:      "caddy:2",
		},
		PublicIP: PublicIPConfig{
			Providers: []string{
				"https://api.ipify.org",
				"https://ifconfig.me/ip",
				"https://icanhazip.com",
				"dns:opendns",
				"dns:google",
				"hcloud-metadata",
			},
		},
		DNS: DNSConfig{
			Resolver: "1.1.1.1:53",
		},
		Firewall: FirewallConfig{
			UFW: true,
		},
		Backup: BackupConfig{
			S3: S3BackupConfig{Prefix: "vpsgate"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Report: ReportConfig{
			SecretName:      "vpsgate-peer",
			SecretNamespace: "default",
		},
	}
}

// ResolvedInstallDir returns the configured install directory or the
// variant's default.
func (c *Config) ResolvedInstallDir() string {
	if c.InstallDir != "" {
		return filepath.Clean(c.InstallDir)
	}
	if c.Variant == VariantFRP {
		return DefaultFRPInstallDir
	}
	return DefaultWireGuardInstallDir
}

// LockPath returns the path of the run lock guarding the install directory.
// It sits next to the directory so that taking it writes nothing inside.
func (c *Config) LockPath() string {
	dir := c.ResolvedInstallDir()
	return filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".lock")
}

// TLSEnabled reports whether the frp HTTPS vhost is configured.
func (c *FRPConfig) TLSEnabled() bool {
	return c.VhostHTTPSPort > 0
}
