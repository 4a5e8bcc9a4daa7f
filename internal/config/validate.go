package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var err error

	if !c.Variant.IsValid() {
		err = multierr.Append(err, fmt.Errorf("variant must be %q or %q, got %q", VariantFRP, VariantWireGuard, c.Variant))
	}
	if !c.Restart.IsValid() {
		err = multierr.Append(err, fmt.Errorf("restart must be always, never or ask, got %q", c.Restart))
	}
	if c.InstallDir != "" && !strings.HasPrefix(c.InstallDir, "/") {
		err = multierr.Append(err, fmt.Errorf("installDir must be an absolute path, got %q", c.InstallDir))
	}

	switch c.Variant {
	case VariantFRP:
		err = multierr.Append(err, c.FRP.validate())
	case VariantWireGuard:
		err = multierr.Append(err, c.WireGuard.validate())
	}

	if len(c.PublicIP.Providers) == 0 {
		err = multierr.Append(err, fmt.Errorf("publicIP.providers must not be empty"))
	}
	if _, _, splitErr := net.SplitHostPort(c.DNS.Resolver); splitErr != nil {
		err = multierr.Append(err, fmt.Errorf("dns.resolver must be host:port: %w", splitErr))
	}
	if c.Firewall.HCloud.Server != "" && c.Firewall.HCloud.Name == "" {
		err = multierr.Append(err, fmt.Errorf("firewall.hcloud.server requires firewall.hcloud.name"))
	}
	if c.Backup.S3.Enabled() && c.Backup.S3.Endpoint == "" {
		err = multierr.Append(err, fmt.Errorf("backup.s3.endpoint is required when a bucket is set"))
	}
	if c.Report.SecretName == "" || c.Report.SecretNamespace == "" {
		err = multierr.Append(err, fmt.Errorf("report.secretName and report.secretNamespace are required"))
	}

	return err
}

func (c *FRPConfig) validate() error {
	var err error
	if c.Version == "" && c.DownloadURL == "" {
		err = multierr.Append(err, fmt.Errorf("frp.version is required"))
	}
	err = multierr.Append(err, validatePort("frp.bindPort", c.BindPort, false))
	err = multierr.Append(err, validatePort("frp.vhostHTTPPort", c.VhostHTTPPort, false))
	err = multierr.Append(err, validatePort("frp.vhostHTTPSPort", c.VhostHTTPSPort, true))
	err = multierr.Append(err, validatePort("frp.dashboardPort", c.DashboardPort, false))
	err = multierr.Append(err, validatePort("frp.client.httpPort", c.Client.HTTPPort, false))
	if c.TLSEnabled() {
		err = multierr.Append(err, validatePort("frp.client.httpsPort", c.Client.HTTPSPort, false))
	}
	if c.DashboardUser == "" {
		err = multierr.Append(err, fmt.Errorf("frp.dashboardUser is required"))
	}
	if c.ServiceName == "" {
		err = multierr.Append(err, fmt.Errorf("frp.serviceName is required"))
	}
	if c.Client.LocalIP == "" {
		err = multierr.Append(err, fmt.Errorf("frp.client.localIP is required"))
	}
	return err
}

func (c *WireGuardConfig) validate() error {
	var err error
	server := net.ParseIP(c.ServerIP)
	client := net.ParseIP(c.ClientIP)
	if server == nil {
		err = multierr.Append(err, fmt.Errorf("wireguard.serverIP %q is not an IP address", c.ServerIP))
	}
	if client == nil {
		err = multierr.Append(err, fmt.Errorf("wireguard.clientIP %q is not an IP address", c.ClientIP))
	}
	if server != nil && client != nil && server.Equal(client) {
		err = multierr.Append(err, fmt.Errorf("wireguard.serverIP and wireguard.clientIP must differ"))
	}
	if c.PrefixLength < 8 || c.PrefixLength > 30 {
		err = multierr.Append(err, fmt.Errorf("wireguard.prefixLength must be between 8 and 30, got %d", c.PrefixLength))
	}
	err = multierr.Append(err, validatePort("wireguard.port", c.Port, false))
	err = multierr.Append(err, validatePort("wireguard.upstreamPort", c.UpstreamPort, false))
	if c.Keepalive < 0 {
		err = multierr.Append(err, fmt.Errorf("wireguard.keepalive must not be negative"))
	}
	if c.KeyTool != KeyToolNative && c.KeyTool != KeyToolWG {
		err = multierr.Append(err, fmt.Errorf("wireguard.keyTool must be native or wg, got %q", c.KeyTool))
	}
	if c.WireGuardImage == "" || c.CaddyImage == "" {
		err = multierr.Append(err, fmt.Errorf("wireguard.wireguardImage and wireguard.caddyImage are required"))
	}
	if c.EgressInterface == "" {
		err = multierr.Append(err, fmt.Errorf("wireguard.egressInterface is required"))
	}
	if c.OnDemandAsk != "" {
		u, perr := url.Parse(c.OnDemandAsk)
		if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			err = multierr.Append(err, fmt.Errorf("wireguard.onDemandAsk %q must be an http(s) URL", c.OnDemandAsk))
		}
	}
	return err
}

func validatePort(field string, port int, allowZero bool) error {
	if allowZero && port == 0 {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", field, port)
	}
	return nil
}
