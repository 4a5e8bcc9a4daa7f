package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// ErrNoAnswer is returned when the server answered without usable records.
var ErrNoAnswer = errors.New("no answer")

// Resolver queries one nameserver directly, bypassing the system resolver.
type Resolver struct {
	// Server is host:port of the nameserver. A bare host gets port 53.
	Server  string
	Timeout time.Duration
}

// NewResolver creates a Resolver for server.
func NewResolver(server string, timeout time.Duration) *Resolver {
	return &Resolver{Server: server, Timeout: timeout}
}

// LookupA returns the IPv4 addresses of name.
func (r *Resolver) LookupA(ctx context.Context, name string) ([]net.IP, error) {
	in, err := r.exchange(ctx, name, dns.TypeA)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			ips = append(ips, a.A)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("A %s: %w", name, ErrNoAnswer)
	}
	return ips, nil
}

// LookupAAAA returns the IPv6 addresses of name.
func (r *Resolver) LookupAAAA(ctx context.Context, name string) ([]net.IP, error) {
	in, err := r.exchange(ctx, name, dns.TypeAAAA)
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.AAAA); ok {
			ips = append(ips, a.AAAA)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("AAAA %s: %w", name, ErrNoAnswer)
	}
	return ips, nil
}

// LookupTXT returns the TXT strings of name, each record joined.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	in, err := r.exchange(ctx, name, dns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range in.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("TXT %s: %w", name, ErrNoAnswer)
	}
	return out, nil
}

// LookupIP returns the A and AAAA addresses of name. It fails only when
// neither query produced an address.
func (r *Resolver) LookupIP(ctx context.Context, name string) ([]net.IP, error) {
	v4, err4 := r.LookupA(ctx, name)
	v6, err6 := r.LookupAAAA(ctx, name)
	ips := append(v4, v6...)
	if len(ips) == 0 {
		return nil, errors.Join(err4, err6)
	}
	return ips, nil
}

func (r *Resolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: r.Timeout}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	in, _, err := client.ExchangeContext(ctx, msg, serverAddr(r.Server))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s %s at %s: %w", dns.TypeToString[qtype], name, r.Server, err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s %s at %s: %s", dns.TypeToString[qtype], name, r.Server, dns.RcodeToString[in.Rcode])
	}
	return in, nil
}

func serverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}
