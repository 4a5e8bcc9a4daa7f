package report

import (
	"context"
	"fmt"
	"net"

	"github.com/imamik/vpsgate/internal/platform/dns"
)

// probeLabel is looked up below the domain to check the wildcard record.
const probeLabel = "vpsgate-probe"

// ProbeDNS checks that domain and its wildcard resolve to publicIP and
// returns a warning for each name that does not. DNS is managed outside
// vpsgate, so mismatches never fail a run.
func ProbeDNS(ctx context.Context, resolver *dns.Resolver, domain, publicIP string) []string {
	want := net.ParseIP(publicIP)
	var warnings []string
	for _, name := range []string{domain, probeLabel + "." + domain} {
		ips, err := resolver.LookupIP(ctx, name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s does not resolve (%v); point it at %s", displayName(name, domain), err, publicIP))
			continue
		}
		if !containsIP(ips, want) {
			warnings = append(warnings, fmt.Sprintf("%s resolves to %v, not %s", displayName(name, domain), ips, publicIP))
		}
	}
	return warnings
}

func displayName(name, domain string) string {
	if name == domain {
		return domain
	}
	return "*." + domain
}

func containsIP(ips []net.IP, want net.IP) bool {
	for _, ip := range ips {
		if ip.Equal(want) {
			return true
		}
	}
	return false
}
