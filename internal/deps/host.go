package deps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/util/command"
)

// DockerInstallScript is the convenience script used when Docker is missing.
const DockerInstallScript = "https://get.docker.com"

// Fetcher downloads a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher downloads over HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch implements Fetcher. The caller closes the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

// Host builds the capabilities of a variant against a command runner and
// a fetcher.
type Host struct {
	Runner   command.Runner
	Fetcher  Fetcher
	Timeouts *config.Timeouts
	// Arch is the frp release architecture, runtime.GOARCH when empty.
	Arch string
}

// Capabilities returns what cfg's variant needs, in install order.
func (h *Host) Capabilities(cfg *config.Config) []Capability {
	switch cfg.Variant {
	case config.VariantFRP:
		return []Capability{h.FRP(cfg.ResolvedInstallDir(), &cfg.FRP)}
	case config.VariantWireGuard:
		caps := []Capability{
			h.Docker(),
			h.Compose(),
			h.Image(cfg.WireGuard.WireGuardImage),
			h.Image(cfg.WireGuard.CaddyImage),
		}
		if cfg.WireGuard.KeyTool == config.KeyToolWG {
			caps = append(caps, h.WireGuardTools())
		}
		return caps
	}
	return nil
}

func (h *Host) run(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	_, err := h.Runner.Run(ctx, command.Command{Name: name, Args: args, Timeout: timeout})
	return err
}

// succeeds turns a non-zero exit into false and keeps other errors.
func (h *Host) succeeds(ctx context.Context, name string, args ...string) (bool, error) {
	err := h.run(ctx, h.Timeouts.Command, name, args...)
	if err == nil {
		return true, nil
	}
	if command.IsExitError(err) {
		return false, nil
	}
	return false, err
}

func (h *Host) aptInstall(ctx context.Context, pkg string) error {
	env := []string{"DEBIAN_FRONTEND=noninteractive"}
	if _, err := h.Runner.Run(ctx, command.Command{
		Name: "apt-get", Args: []string{"update"}, Env: env, Timeout: h.Timeouts.Install,
	}); err != nil {
		return err
	}
	_, err := h.Runner.Run(ctx, command.Command{
		Name: "apt-get", Args: []string{"install", "-y", pkg}, Env: env, Timeout: h.Timeouts.Install,
	})
	return err
}

// Docker is the Docker engine with a reachable daemon.
func (h *Host) Docker() Capability {
	return Capability{
		Name:        "docker",
		Description: "Container engine running WireGuard and Caddy",
		Present: func(ctx context.Context) (bool, error) {
			if _, err := h.Runner.LookPath("docker"); err != nil {
				return false, nil
			}
			return h.succeeds(ctx, "docker", "version")
		},
		Install: func(ctx context.Context) error {
			if _, err := h.Runner.LookPath("docker"); err == nil {
				// Installed but the daemon is down.
				return h.run(ctx, h.Timeouts.Command, "systemctl", "enable", "--now", "docker")
			}
			script, err := h.download(ctx, DockerInstallScript)
			if err != nil {
				return err
			}
			_, err = h.Runner.Run(ctx, command.Command{
				Name:    "sh",
				Args:    []string{"-s"},
				Stdin:   bytes.NewReader(script),
				Timeout: h.Timeouts.Install,
			})
			return err
		},
	}
}

// Compose is the docker compose plugin.
func (h *Host) Compose() Capability {
	return Capability{
		Name:        "docker-compose",
		Description: "Runs the WireGuard and Caddy services",
		Present: func(ctx context.Context) (bool, error) {
			return h.succeeds(ctx, "docker", "compose", "version")
		},
		Install: func(ctx context.Context) error {
			return h.aptInstall(ctx, "docker-compose-plugin")
		},
	}
}

// Image is a container image available locally.
func (h *Host) Image(ref string) Capability {
	return Capability{
		Name:        "image:" + ref,
		Description: "Container image " + ref,
		Present: func(ctx context.Context) (bool, error) {
			return h.succeeds(ctx, "docker", "image", "inspect", ref)
		},
		Install: func(ctx context.Context) error {
			return h.run(ctx, h.Timeouts.Download, "docker", "pull", ref)
		},
	}
}

// WireGuardTools provides the wg command line tool.
func (h *Host) WireGuardTools() Capability {
	return Capability{
		Name:        "wireguard-tools",
		Description: "wg genkey / wg pubkey for key generation",
		Present: func(context.Context) (bool, error) {
			_, err := h.Runner.LookPath("wg")
			return err == nil, nil
		},
		Install: func(ctx context.Context) error {
			return h.aptInstall(ctx, "wireguard-tools")
		},
	}
}

// FRPDownloadURL returns the release archive URL of version for arch.
func FRPDownloadURL(version, arch string) string {
	return fmt.Sprintf("https://github.com/fatedier/frp/releases/download/v%[1]s/frp_%[1]s_linux_%[2]s.tar.gz", version, arch)
}

// FRP is the frps/frpc binary pair in the install directory.
func (h *Host) FRP(installDir string, frp *config.FRPConfig) Capability {
	server := filepath.Join(installDir, render.FRPServerBinary)
	client := filepath.Join(installDir, render.FRPClientBinary)

	return Capability{
		Name:        "frp",
		Description: "frp " + frp.Version + " server and client binaries",
		Present: func(context.Context) (bool, error) {
			return isExecutable(server) && isExecutable(client), nil
		},
		Install: func(ctx context.Context) error {
			url := frp.DownloadURL
			if url == "" {
				url = FRPDownloadURL(frp.Version, h.arch())
			}
			ctx, cancel := context.WithTimeout(ctx, h.Timeouts.Download)
			defer cancel()

			body, err := h.Fetcher.Fetch(ctx, url)
			if err != nil {
				return err
			}
			defer body.Close()

			return extractBinaries(body, installDir, render.FRPServerBinary, render.FRPClientBinary)
		},
	}
}

func (h *Host) arch() string {
	if h.Arch != "" {
		return h.Arch
	}
	return runtime.GOARCH
}

func (h *Host) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeouts.Download)
	defer cancel()

	body, err := h.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if !strings.HasPrefix(string(data), "#!") {
		return nil, fmt.Errorf("%s did not return a shell script", url)
	}
	return data, nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
