// Package firewall opens the gateway ports on the host firewall (ufw) and,
// optionally, on a Hetzner Cloud firewall.
package firewall

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/util/command"
)

// Protocols.
const (
	TCP = "tcp"
	UDP = "udp"
)

// Rule allows inbound traffic on one port.
type Rule struct {
	Protocol    string
	Port        int
	Description string
}

// String renders the rule in ufw notation, e.g. "443/tcp".
func (r Rule) String() string {
	return strconv.Itoa(r.Port) + "/" + r.Protocol
}

// Rules returns the inbound rules a variant needs.
func Rules(cfg *config.Config) []Rule {
	rules := []Rule{
		{TCP, 22, "ssh"},
		{TCP, 80, "http"},
		{TCP, 443, "https"},
	}
	switch cfg.Variant {
	case config.VariantFRP:
		rules = appendUnique(rules,
			Rule{TCP, cfg.FRP.VhostHTTPPort, "frp vhost http"},
			Rule{TCP, cfg.FRP.VhostHTTPSPort, "frp vhost https"},
			Rule{TCP, cfg.FRP.BindPort, "frp control"},
			Rule{TCP, cfg.FRP.DashboardPort, "frp dashboard"},
		)
	case config.VariantWireGuard:
		rules = appendUnique(rules, Rule{UDP, cfg.WireGuard.Port, "wireguard"})
	}
	return rules
}

func appendUnique(rules []Rule, extra ...Rule) []Rule {
	for _, r := range extra {
		if r.Port == 0 {
			continue
		}
		dup := false
		for _, existing := range rules {
			if existing.Protocol == r.Protocol && existing.Port == r.Port {
				dup = true
				break
			}
		}
		if !dup {
			rules = append(rules, r)
		}
	}
	return rules
}

// UFW manages host rules through the ufw command.
type UFW struct {
	Runner command.Runner
}

// UFWResult reports what ApplyUFW did.
type UFWResult struct {
	// Skipped is set when ufw is not installed.
	Skipped bool
	// Active reports whether ufw is enforcing rules.
	Active bool
	Added  []string
}

// Apply adds an allow rule for each of rules. ufw itself skips rules that
// already exist. ufw is never enabled here so that an SSH session cannot
// be cut off.
func (u *UFW) Apply(ctx context.Context, rules []Rule) (*UFWResult, error) {
	if _, err := u.Runner.LookPath("ufw"); err != nil {
		return &UFWResult{Skipped: true}, nil
	}

	status, err := u.Runner.Run(ctx, command.Command{Name: "ufw", Args: []string{"status"}})
	if err != nil {
		return nil, fmt.Errorf("failed to read ufw status: %w", err)
	}
	result := &UFWResult{Active: strings.Contains(status.Stdout, "Status: active")}

	for _, r := range rules {
		res, err := u.Runner.Run(ctx, command.Command{
			Name: "ufw",
			Args: []string{"allow", r.String(), "comment", "vpsgate " + r.Description},
		})
		if err != nil {
			return result, fmt.Errorf("failed to allow %s: %w", r, err)
		}
		if !strings.Contains(res.Stdout, "Skipping") {
			result.Added = append(result.Added, r.String())
		}
	}
	return result, nil
}

// HCloudRules converts rules into inbound Hetzner Cloud firewall rules
// open to every address.
func HCloudRules(rules []Rule) []hcloud.FirewallRule {
	_, any4, _ := net.ParseCIDR("0.0.0.0/0")
	_, any6, _ := net.ParseCIDR("::/0")

	out := make([]hcloud.FirewallRule, 0, len(rules))
	for _, r := range rules {
		protocol := hcloud.FirewallRuleProtocolTCP
		if r.Protocol == UDP {
			protocol = hcloud.FirewallRuleProtocolUDP
		}
		out = append(out, hcloud.FirewallRule{
			Direction:   hcloud.FirewallRuleDirectionIn,
			Protocol:    protocol,
			Port:        hcloud.Ptr(strconv.Itoa(r.Port)),
			SourceIPs:   []net.IPNet{*any4, *any6},
			Description: hcloud.Ptr("vpsgate " + r.Description),
		})
	}
	return out
}
