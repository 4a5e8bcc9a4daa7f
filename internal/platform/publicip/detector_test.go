package publicip

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	name string
	ip   net.IP
	err  error
}

func (p staticProvider) Name() string { return p.name }

func (p staticProvider) Detect(context.Context) (net.IP, error) { return p.ip, p.err }

func textServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDetector_FirstValidWins(t *testing.T) {
	t.Parallel()

	broken := textServer(t, http.StatusInternalServerError, "oops")
	garbage := textServer(t, http.StatusOK, "<html>not an ip</html>")
	good := textServer(t, http.StatusOK, "203.0.113.5\n")

	d, err := NewDetector([]string{broken.URL, garbage.URL, good.URL}, time.Second)
	require.NoError(t, err)

	ip, provider, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip.String())
	assert.Equal(t, good.URL, provider)
}

func TestDetector_AllFail(t *testing.T) {
	t.Parallel()

	d := &Detector{Providers: []Provider{
		staticProvider{name: "a", err: errors.New("boom")},
		staticProvider{name: "b", ip: net.ParseIP("127.0.0.1")},
		staticProvider{name: "c", ip: net.IPv4zero},
	}}

	_, _, err := d.Detect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotDetected)

	var detectErr *DetectError
	require.ErrorAs(t, err, &detectErr)
	assert.Len(t, detectErr.Attempts, 3)
	assert.Contains(t, err.Error(), "a: boom")
}

func TestDetector_PerProviderTimeout(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)
	good := textServer(t, http.StatusOK, "2001:db8::5")

	d, err := NewDetector([]string{slow.URL, good.URL}, 100*time.Millisecond)
	require.NoError(t, err)

	ip, _, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::5", ip.String())
}

func TestHCloudMetadataProvider(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/public-ipv4" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("198.51.100.9"))
	}))
	t.Cleanup(srv.Close)

	p := &HCloudMetadataProvider{Client: metadata.NewClient(metadata.WithEndpoint(srv.URL))}
	ip, err := p.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.9", ip.String())
}

func TestNewDetector_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, err := NewDetector([]string{"carrier-pigeon"}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}
