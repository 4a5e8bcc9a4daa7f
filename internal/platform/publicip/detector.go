// Package publicip detects the public address of the host.
package publicip

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud/metadata"

	"github.com/imamik/vpsgate/internal/platform/dns"
)

// ErrNotDetected is returned when no provider produced a valid address.
var ErrNotDetected = errors.New("public IP could not be detected")

// Provider returns the public address as seen by one service.
type Provider interface {
	Name() string
	Detect(ctx context.Context) (net.IP, error)
}

// Detector tries providers in order until one returns a valid address.
type Detector struct {
	Providers []Provider
	// Timeout bounds each provider separately.
	Timeout time.Duration
}

// Attempt records one failed provider.
type Attempt struct {
	Provider string
	Err      error
}

// DetectError lists why every provider failed.
type DetectError struct {
	Attempts []Attempt
}

func (e *DetectError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("%v (%s)", ErrNotDetected, strings.Join(parts, "; "))
}

func (e *DetectError) Unwrap() error { return ErrNotDetected }

// Detect returns the first valid address.
func (d *Detector) Detect(ctx context.Context) (net.IP, string, error) {
	detectErr := &DetectError{}
	for _, p := range d.Providers {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		ip, err := d.try(ctx, p)
		if err != nil {
			detectErr.Attempts = append(detectErr.Attempts, Attempt{Provider: p.Name(), Err: err})
			continue
		}
		return ip, p.Name(), nil
	}
	return nil, "", detectErr
}

func (d *Detector) try(ctx context.Context, p Provider) (net.IP, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	ip, err := p.Detect(ctx)
	if err != nil {
		return nil, err
	}
	if ip == nil || ip.IsUnspecified() || ip.IsLoopback() {
		return nil, fmt.Errorf("invalid address %v", ip)
	}
	return ip, nil
}

// NewDetector builds a Detector from provider entries: HTTP(S) URLs,
// "dns:opendns", "dns:google" or "hcloud-metadata".
func NewDetector(entries []string, timeout time.Duration) (*Detector, error) {
	d := &Detector{Timeout: timeout}
	httpClient := &http.Client{Timeout: timeout}
	for _, entry := range entries {
		p, err := providerFor(entry, httpClient, timeout)
		if err != nil {
			return nil, err
		}
		d.Providers = append(d.Providers, p)
	}
	return d, nil
}

func providerFor(entry string, httpClient *http.Client, timeout time.Duration) (Provider, error) {
	switch {
	case strings.HasPrefix(entry, "http://"), strings.HasPrefix(entry, "https://"):
		return &HTTPProvider{URL: entry, Client: httpClient}, nil
	case entry == "dns:opendns":
		return &DNSProvider{
			Label:    entry,
			Resolver: dns.NewResolver("resolver1.opendns.com:53", timeout),
			Query:    "myip.opendns.com",
		}, nil
	case entry == "dns:google":
		return &DNSProvider{
			Label:    entry,
			Resolver: dns.NewResolver("ns1.google.com:53", timeout),
			Query:    "o-o.myaddr.l.google.com",
			TXT:      true,
		}, nil
	case entry == "hcloud-metadata":
		return &HCloudMetadataProvider{
			Client: metadata.NewClient(metadata.WithHTTPClient(httpClient)),
		}, nil
	}
	return nil, fmt.Errorf("unknown public IP provider %q", entry)
}

// HTTPProvider reads the address from a plain-text HTTP endpoint.
type HTTPProvider struct {
	URL    string
	Client *http.Client
}

// Name implements Provider.
func (p *HTTPProvider) Name() string { return p.URL }

// Detect implements Provider.
func (p *HTTPProvider) Detect(ctx context.Context) (net.IP, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return nil, err
	}
	return parseIP(string(body))
}

// DNSProvider asks a nameserver that echoes the querying address.
type DNSProvider struct {
	Label    string
	Resolver *dns.Resolver
	Query    string
	// TXT reads the address from a TXT record instead of an A record.
	TXT bool
}

// Name implements Provider.
func (p *DNSProvider) Name() string { return p.Label }

// Detect implements Provider.
func (p *DNSProvider) Detect(ctx context.Context) (net.IP, error) {
	if p.TXT {
		txt, err := p.Resolver.LookupTXT(ctx, p.Query)
		if err != nil {
			return nil, err
		}
		return parseIP(txt[0])
	}
	ips, err := p.Resolver.LookupA(ctx, p.Query)
	if err != nil {
		return nil, err
	}
	return ips[0], nil
}

// HCloudMetadataProvider asks the Hetzner Cloud metadata service.
type HCloudMetadataProvider struct {
	Client *metadata.Client
}

// Name implements Provider.
func (p *HCloudMetadataProvider) Name() string { return "hcloud-metadata" }

// Detect implements Provider. The metadata client has no context
// support, so cancellation relies on the HTTP client timeout.
func (p *HCloudMetadataProvider) Detect(context.Context) (net.IP, error) {
	return p.Client.PublicIPv4()
}

func parseIP(s string) (net.IP, error) {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("response %q is not an IP address", truncate(s, 64))
	}
	return ip, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
