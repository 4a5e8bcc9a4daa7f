package render

import (
	"fmt"
	"net"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/state"
)

// Names of the WireGuard variant files inside the install directory.
const (
	WireGuardConfigDir = "wireguard"
	WireGuardConfig    = "wg0.conf"
	Caddyfile          = "Caddyfile"
	ComposeFile        = "docker-compose.yml"
	PeerConfig         = "peer.conf"
)

type wgServerData struct {
	ServerIP        string
	ClientIP        string
	PrefixLength    int
	Port            int
	PrivateKey      string
	EgressInterface string
	PeerPublicKey   string
}

type wgPeerData struct {
	ServerIP       string
	ClientIP       string
	PrefixLength   int
	PublicKey      string
	PeerPrivateKey string
	Endpoint       string
	Keepalive      int
}

type caddyData struct {
	Domain      string
	Upstream    string
	OnDemandAsk string
}

func renderWireGuard(st *state.ProvisioningState, cfg *config.Config) (Set, error) {
	if st.PrivateKey == "" || st.PublicKey == "" {
		return nil, fmt.Errorf("server key pair is missing")
	}
	wg := cfg.WireGuard

	server, err := execute("wg0.conf.tmpl", wgServerData{
		ServerIP:        st.TunnelServerIP,
		ClientIP:        st.TunnelClientIP,
		PrefixLength:    wg.PrefixLength,
		Port:            st.TunnelPort,
		PrivateKey:      st.PrivateKey,
		EgressInterface: wg.EgressInterface,
		PeerPublicKey:   st.PeerPublicKey,
	})
	if err != nil {
		return nil, err
	}

	peer, err := execute("peer.conf.tmpl", wgPeerData{
		ServerIP:       st.TunnelServerIP,
		ClientIP:       st.TunnelClientIP,
		PrefixLength:   wg.PrefixLength,
		PublicKey:      st.PublicKey,
		PeerPrivateKey: st.PeerPrivateKey,
		Endpoint:       net.JoinHostPort(st.PublicIP, strconv.Itoa(st.TunnelPort)),
		Keepalive:      wg.Keepalive,
	})
	if err != nil {
		return nil, err
	}

	caddy, err := execute("Caddyfile.tmpl", caddyData{
		Domain:      st.Domain,
		Upstream:    net.JoinHostPort(st.TunnelClientIP, strconv.Itoa(wg.UpstreamPort)),
		OnDemandAsk: wg.OnDemandAsk,
	})
	if err != nil {
		return nil, err
	}

	compose, err := renderCompose(st, &wg)
	if err != nil {
		return nil, err
	}

	return Set{
		{Path: st.Path(WireGuardConfigDir, WireGuardConfig), Content: server, Mode: 0600},
		{Path: st.Path(PeerConfig), Content: peer, Mode: 0600, ClusterSide: true},
		{Path: st.Path(Caddyfile), Content: caddy, Mode: 0644},
		{Path: st.Path(ComposeFile), Content: compose, Mode: 0644},
	}, nil
}

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]struct{}       `yaml:"volumes"`
}

type composeService struct {
	Image         string            `yaml:"image"`
	ContainerName string            `yaml:"container_name"`
	NetworkMode   string            `yaml:"network_mode,omitempty"`
	DependsOn     []string          `yaml:"depends_on,omitempty"`
	CapAdd        []string          `yaml:"cap_add,omitempty"`
	Environment   map[string]string `yaml:"environment,omitempty"`
	Ports         []string          `yaml:"ports,omitempty"`
	Volumes       []string          `yaml:"volumes,omitempty"`
	Sysctls       map[string]string `yaml:"sysctls,omitempty"`
	Restart       string            `yaml:"restart"`
}

// Compose service names.
const (
	ComposeWireGuardService = "wireguard"
	ComposeCaddyService     = "caddy"
)

func renderCompose(st *state.ProvisioningState, wg *config.WireGuardConfig) ([]byte, error) {
	doc := composeFile{
		Name: "vpsgate",
		Services: map[string]composeService{
			ComposeWireGuardService: {
				Image:         wg.WireGuardImage,
				ContainerName: "vpsgate-wireguard",
				CapAdd:        []string{"NET_ADMIN", "SYS_MODULE"},
				Environment: map[string]string{
					"PUID": "1000",
					"PGID": "1000",
					"TZ":   "Etc/UTC",
				},
				// Caddy shares this network namespace, so its ports are
				// published here.
				Ports: []string{
					fmt.Sprintf("%d:%d/udp", st.TunnelPort, st.TunnelPort),
					"80:80",
					"443:443",
				},
				Volumes: []string{
					"./" + WireGuardConfigDir + ":/config/wg_confs",
					"/lib/modules:/lib/modules:ro",
				},
				Sysctls: map[string]string{
					"net.ipv4.conf.all.src_valid_mark": "1",
					"net.ipv4.ip_forward":              "1",
				},
				Restart: "unless-stopped",
			},
			ComposeCaddyService: {
				Image:         wg.CaddyImage,
				ContainerName: "vpsgate-caddy",
				NetworkMode:   "service:" + ComposeWireGuardService,
				DependsOn:     []string{ComposeWireGuardService},
				Volumes: []string{
					"./" + Caddyfile + ":/etc/caddy/Caddyfile:ro",
					"caddy_data:/data",
					"caddy_config:/config",
				},
				Restart: "unless-stopped",
			},
		},
		Volumes: map[string]struct{}{
			"caddy_data":   {},
			"caddy_config": {},
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", ComposeFile, err)
	}
	return append([]byte("# Managed by vpsgate. Local edits are replaced on the next run.\n"), out...), nil
}
