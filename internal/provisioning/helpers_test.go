package provisioning

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/deps"
	"github.com/imamik/vpsgate/internal/metrics"
	"github.com/imamik/vpsgate/internal/params"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/util/command"
)

// MockObserver is a test implementation of Observer that records events.
type MockObserver struct {
	mu       sync.Mutex
	events   []Event
	messages []string
	fields   map[string]string
}

func NewMockObserver() *MockObserver {
	return &MockObserver{fields: make(map[string]string)}
}

func (m *MockObserver) Printf(format string, v ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, fmt.Sprintf(format, v...))
}

func (m *MockObserver) Event(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockObserver) Progress(phase string, current, total int) {
	m.Event(Event{Type: EventProgress, Phase: phase, Message: fmt.Sprintf("%d/%d", current, total)})
}

// WithFields shares the recorded events so that tests see everything.
func (m *MockObserver) WithFields(map[string]string) Observer {
	return m
}

func (m *MockObserver) eventsOf(t EventType) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeFetcher struct {
	bodies map[string][]byte
	urls   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.urls = append(f.urls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("failed to download %s: dial tcp: connection refused", url)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func frpRelease(t *testing.T) map[string][]byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range map[string]string{
		"frp_0.61.1_linux_amd64/frps": "#!/bin/sh\n",
		"frp_0.61.1_linux_amd64/frpc": "#!/bin/sh\n",
	} {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0755, Size: int64(len(body)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return map[string][]byte{deps.FRPDownloadURL(config.DefaultFRPVersion, "amd64"): buf.Bytes()}
}

// listen opens a TCP port standing in for the health endpoint.
func listen(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return l.Addr().(*net.TCPAddr).Port
}

func envMap(values map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := values[k]
		return v, ok
	}
}

type testEnv struct {
	ctx      *Context
	runner   *command.FakeRunner
	fetcher  *fakeFetcher
	observer *MockObserver
	out      *bytes.Buffer
}

// newTestContext builds a context whose collaborators are all fakes.
func newTestContext(t *testing.T, variant config.Variant) *testEnv {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default(variant)
	cfg.InstallDir = filepath.Join(root, "install")
	cfg.FRP.SystemdDir = filepath.Join(root, "systemd")
	cfg.Firewall.UFW = false

	runner := command.NewFakeRunner()
	fetcher := &fakeFetcher{bodies: map[string][]byte{}}
	observer := NewMockObserver()
	out := &bytes.Buffer{}

	ctx := &Context{
		Context:  context.Background(),
		Config:   cfg,
		State:    newState(cfg),
		Observer: observer,
		Timeouts: &config.Timeouts{
			Download: time.Second, Command: time.Second, Install: time.Second,
			IPLookup: time.Second, Health: 2 * time.Second, Cloud: time.Second,
		},
		Metrics:  metrics.NewRecorder(string(variant)),
		Options:  Options{Arch: "amd64"},
		Results:  &Results{},
		Runner:   runner,
		Fetcher:  fetcher,
		Prompter: prompt.NonInteractive{},
		Detector: params.DetectorFunc(func(context.Context) (string, string, error) {
			return "203.0.113.5", "test", nil
		}),
		Out:       out,
		LookupEnv: envMap(nil),
		Euid:      func() int { return 0 },
		Now:       func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) },
		BusyPorts: func(context.Context, ...int) []int { return nil },
	}
	t.Cleanup(func() { _ = ctx.Close() })

	return &testEnv{ctx: ctx, runner: runner, fetcher: fetcher, observer: observer, out: out}
}

// systemdStartsOnEnable makes the frps unit report running once enabled.
func systemdStartsOnEnable(r *command.FakeRunner) {
	r.On("systemctl is-active", command.FakeResponse{ExitCode: 3})
	r.On("systemctl enable --now", command.FakeResponse{Hook: func(command.Command) {
		r.On("systemctl is-active", command.FakeResponse{})
	}})
}

// composeStartsOnUp makes the Compose project report running after up.
func composeStartsOnUp(r *command.FakeRunner) {
	r.On("docker compose ps", command.FakeResponse{})
	r.On("docker compose up -d", command.FakeResponse{Hook: func(command.Command) {
		r.On("docker compose ps", command.FakeResponse{Stdout: "wireguard\ncaddy\n"})
	}})
}
