package render

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/state"
)

// Names of the frp files inside the install directory.
const (
	FRPServerConfig = "frps.toml"
	FRPClientConfig = "frpc.toml"
	FRPServerBinary = "frps"
	FRPClientBinary = "frpc"
)

type frpServerData struct {
	BindPort          int
	VhostHTTPPort     int
	VhostHTTPSPort    int
	Domain            string
	Token             string
	DashboardPort     int
	DashboardUser     string
	DashboardPassword string
	LogFile           string
	LogLevel          string
	LogMaxDays        int
}

type frpProxy struct {
	Name      string
	Type      string
	LocalIP   string
	LocalPort int
	Domain    string
}

type frpClientData struct {
	PublicIP string
	BindPort int
	Token    string
	Proxies  []frpProxy
}

type systemdData struct {
	Binary string
	Config string
}

// SystemdUnitPath returns where the frps unit is installed.
func SystemdUnitPath(cfg *config.Config) string {
	return filepath.Join(cfg.FRP.SystemdDir, cfg.FRP.ServiceName+".service")
}

func renderFRP(st *state.ProvisioningState, cfg *config.Config) (Set, error) {
	if st.AuthToken == "" {
		return nil, fmt.Errorf("frp token is empty")
	}
	if st.DashboardPassword == "" {
		return nil, fmt.Errorf("frp dashboard password is empty")
	}
	frp := cfg.FRP

	server, err := execute("frps.toml.tmpl", frpServerData{
		BindPort:          frp.BindPort,
		VhostHTTPPort:     frp.VhostHTTPPort,
		VhostHTTPSPort:    frp.VhostHTTPSPort,
		Domain:            st.Domain,
		Token:             st.AuthToken,
		DashboardPort:     frp.DashboardPort,
		DashboardUser:     st.DashboardUser,
		DashboardPassword: st.DashboardPassword,
		LogFile:           frp.LogFile,
		LogLevel:          frp.LogLevel,
		LogMaxDays:        frp.LogMaxDays,
	})
	if err != nil {
		return nil, err
	}
	if err := validateTOML(FRPServerConfig, server); err != nil {
		return nil, err
	}

	client, err := execute("frpc.toml.tmpl", frpClientData{
		PublicIP: st.PublicIP,
		BindPort: frp.BindPort,
		Token:    st.AuthToken,
		Proxies:  frpProxies(st.Domain, &frp),
	})
	if err != nil {
		return nil, err
	}
	if err := validateTOML(FRPClientConfig, client); err != nil {
		return nil, err
	}

	unit, err := execute("frps.service.tmpl", systemdData{
		Binary: st.Path(FRPServerBinary),
		Config: st.Path(FRPServerConfig),
	})
	if err != nil {
		return nil, err
	}

	return Set{
		{Path: st.Path(FRPServerConfig), Content: server, Mode: 0600},
		{Path: st.Path(FRPClientConfig), Content: client, Mode: 0600, ClusterSide: true},
		{Path: SystemdUnitPath(cfg), Content: unit, Mode: 0644},
	}, nil
}

func frpProxies(domain string, frp *config.FRPConfig) []frpProxy {
	hosts := []struct{ suffix, domain string }{{"wildcard", "*." + domain}}
	if frp.Client.IncludeRootDomain {
		hosts = append(hosts, struct{ suffix, domain string }{"root", domain})
	}

	var proxies []frpProxy
	for _, h := range hosts {
		proxies = append(proxies, frpProxy{
			Name:      "http-" + h.suffix,
			Type:      "http",
			LocalIP:   frp.Client.LocalIP,
			LocalPort: frp.Client.HTTPPort,
			Domain:    h.domain,
		})
		if frp.TLSEnabled() {
			proxies = append(proxies, frpProxy{
				Name:      "https-" + h.suffix,
				Type:      "https",
				LocalIP:   frp.Client.LocalIP,
				LocalPort: frp.Client.HTTPSPort,
				Domain:    h.domain,
			})
		}
	}
	return proxies
}

// validateTOML parses rendered TOML so a broken file is never written.
func validateTOML(name string, data []byte) error {
	var v map[string]any
	if _, err := toml.Decode(string(data), &v); err != nil {
		return fmt.Errorf("rendered %s is not valid TOML: %w", name, err)
	}
	return nil
}
