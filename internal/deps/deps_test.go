package deps

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/util/command"
)

type fakeFetcher struct {
	bodies map[string][]byte
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.urls = append(f.urls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("failed to download %s: 404 Not Found", url)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0755, Size: int64(len(body)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func testTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Download: time.Minute, Command: time.Minute, Install: time.Minute,
		IPLookup: time.Second, Health: time.Second, Cloud: time.Second,
	}
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	present := func(v bool) func(context.Context) (bool, error) {
		return func(context.Context) (bool, error) { return v, nil }
	}

	t.Run("present", func(t *testing.T) {
		installed := false
		r := Ensure(context.Background(), Capability{
			Name:    "x",
			Present: present(true),
			Install: func(context.Context) error { installed = true; return nil },
		})
		assert.Equal(t, OutcomePresent, r.Outcome)
		assert.NoError(t, r.Err)
		assert.False(t, installed)
	})

	t.Run("installed", func(t *testing.T) {
		done := false
		r := Ensure(context.Background(), Capability{
			Name:    "x",
			Present: func(context.Context) (bool, error) { return done, nil },
			Install: func(context.Context) error { done = true; return nil },
		})
		assert.Equal(t, OutcomeInstalled, r.Outcome)
		assert.NoError(t, r.Err)
	})

	t.Run("install error", func(t *testing.T) {
		r := Ensure(context.Background(), Capability{
			Name:    "x",
			Present: present(false),
			Install: func(context.Context) error { return errors.New("no network") },
		})
		assert.Equal(t, OutcomeFailed, r.Outcome)
		var depErr *Error
		require.ErrorAs(t, r.Err, &depErr)
		assert.Equal(t, "x", depErr.Capability)
		assert.Contains(t, r.Err.Error(), "no network")
	})

	t.Run("still missing", func(t *testing.T) {
		r := Ensure(context.Background(), Capability{
			Name:    "x",
			Present: present(false),
			Install: func(context.Context) error { return nil },
		})
		assert.Equal(t, OutcomeFailed, r.Outcome)
		assert.ErrorIs(t, r.Err, ErrStillMissing)
	})
}

func TestEnsureAll_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	var seen []string
	caps := []Capability{
		{Name: "a", Present: func(context.Context) (bool, error) { return true, nil }},
		{Name: "b", Present: func(context.Context) (bool, error) { return false, nil }},
		{Name: "c", Present: func(context.Context) (bool, error) { return true, nil }},
	}
	results, err := EnsureAll(context.Background(), caps, func(r Result) { seen = append(seen, r.Capability) })
	require.Error(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFRP_Install(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	url := FRPDownloadURL("0.61.1", "amd64")
	assert.Equal(t, "https://github.com/fatedier/frp/releases/download/v0.61.1/frp_0.61.1_linux_amd64.tar.gz", url)

	fetcher := &fakeFetcher{bodies: map[string][]byte{
		url: tarball(t, map[string]string{
			"frp_0.61.1_linux_amd64/frps":      "server",
			"frp_0.61.1_linux_amd64/frpc":      "client",
			"frp_0.61.1_linux_amd64/LICENSE":   "license",
			"frp_0.61.1_linux_amd64/frps.toml": "bindPort = 7000",
		}),
	}}
	host := &Host{Runner: command.NewFakeRunner(), Fetcher: fetcher, Timeouts: testTimeouts(), Arch: "amd64"}
	cfg := config.Default(config.VariantFRP)

	r := Ensure(context.Background(), host.FRP(dir, &cfg.FRP))
	require.NoError(t, r.Err)
	assert.Equal(t, OutcomeInstalled, r.Outcome)

	data, err := os.ReadFile(filepath.Join(dir, "frps"))
	require.NoError(t, err)
	assert.Equal(t, "server", string(data))
	info, err := os.Stat(filepath.Join(dir, "frpc"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	assert.NoFileExists(t, filepath.Join(dir, "LICENSE"))

	again := Ensure(context.Background(), host.FRP(dir, &cfg.FRP))
	assert.Equal(t, OutcomePresent, again.Outcome)
	assert.Len(t, fetcher.urls, 1)
}

func TestFRP_DownloadFailureWritesNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	host := &Host{Runner: command.NewFakeRunner(), Fetcher: &fakeFetcher{}, Timeouts: testTimeouts(), Arch: "arm64"}
	cfg := config.Default(config.VariantFRP)

	r := Ensure(context.Background(), host.FRP(dir, &cfg.FRP))
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Contains(t, r.Err.Error(), "404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractBinaries_Missing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	archive := tarball(t, map[string]string{"frp/frps": "server"})

	err := extractBinaries(bytes.NewReader(archive), dir, "frps", "frpc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frpc")
	assert.NoFileExists(t, filepath.Join(dir, "frps"))
}

func TestDocker_InstallViaScript(t *testing.T) {
	t.Parallel()

	runner := command.NewFakeRunner()
	host := &Host{
		Runner:   runner,
		Fetcher:  &fakeFetcher{bodies: map[string][]byte{DockerInstallScript: []byte("#!/bin/sh\necho install\n")}},
		Timeouts: testTimeouts(),
	}
	runner.On("sh -s", command.FakeResponse{Hook: func(command.Command) { runner.WithPath("docker") }})

	r := Ensure(context.Background(), host.Docker())
	require.NoError(t, r.Err)
	assert.Equal(t, OutcomeInstalled, r.Outcome)
	assert.Equal(t, "#!/bin/sh\necho install\n", runner.Stdin(0))
	assert.True(t, runner.Called("docker version"))
}

func TestDocker_DaemonDown(t *testing.T) {
	t.Parallel()

	runner := command.NewFakeRunner().WithPath("docker")
	started := false
	runner.On("docker version", command.FakeResponse{ExitCode: 1, Stderr: "Cannot connect to the Docker daemon"})
	runner.On("systemctl enable --now docker", command.FakeResponse{Hook: func(command.Command) {
		started = true
		runner.On("docker version", command.FakeResponse{})
	}})
	host := &Host{Runner: runner, Fetcher: &fakeFetcher{}, Timeouts: testTimeouts()}

	r := Ensure(context.Background(), host.Docker())
	require.NoError(t, r.Err)
	assert.True(t, started)
	assert.Equal(t, OutcomeInstalled, r.Outcome)
}

func TestImageAndCompose(t *testing.T) {
	t.Parallel()

	runner := command.NewFakeRunner()
	runner.On("docker image inspect caddy:2", command.FakeResponse{ExitCode: 1})
	runner.On("docker pull caddy:2", command.FakeResponse{Hook: func(command.Command) {
		runner.On("docker image inspect caddy:2", command.FakeResponse{})
	}})
	host := &Host{Runner: runner, Timeouts: testTimeouts()}

	r := Ensure(context.Background(), host.Image("caddy:2"))
	require.NoError(t, r.Err)
	assert.Equal(t, OutcomeInstalled, r.Outcome)

	c := Ensure(context.Background(), host.Compose())
	assert.Equal(t, OutcomePresent, c.Outcome)
}

func TestCompose_InstallFailure(t *testing.T) {
	t.Parallel()

	runner := command.NewFakeRunner()
	runner.On("docker compose version", command.FakeResponse{ExitCode: 1})
	runner.On("apt-get install", command.FakeResponse{ExitCode: 100, Stderr: "E: Unable to locate package"})
	host := &Host{Runner: runner, Timeouts: testTimeouts()}

	r := Ensure(context.Background(), host.Compose())
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.True(t, command.IsExitError(r.Err))
	assert.True(t, runner.Called("apt-get update"))
}

func TestCapabilities(t *testing.T) {
	t.Parallel()
	host := &Host{Runner: command.NewFakeRunner(), Timeouts: testTimeouts()}

	names := func(caps []Capability) string {
		var out []string
		for _, c := range caps {
			out = append(out, c.Name)
		}
		return strings.Join(out, ",")
	}

	assert.Equal(t, "frp", names(host.Capabilities(config.Default(config.VariantFRP))))

	wg := config.Default(config.VariantWireGuard)
	assert.Equal(t, "docker,docker-compose,image:lscr.io/linuxserver/wireguard:latest,image:caddy:2", names(host.Capabilities(wg)))

	wg.WireGuard.KeyTool = config.KeyToolWG
	assert.True(t, strings.HasSuffix(names(host.Capabilities(wg)), ",wireguard-tools"))
}
