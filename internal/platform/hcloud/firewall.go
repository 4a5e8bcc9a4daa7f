package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// FirewallSync is the outcome of SyncFirewall.
type FirewallSync struct {
	Firewall *hcloud.Firewall
	Created  bool
	// AppliedTo is set when the firewall was newly attached to a server.
	AppliedTo string
}

// SyncFirewall creates or updates the firewall name with rules and, when
// server is set, attaches it to that server.
func (c *Client) SyncFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string, server string) (*FirewallSync, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fw, created, err := c.ensureFirewall(ctx, name, rules, labels)
	if err != nil {
		return nil, err
	}
	sync := &FirewallSync{Firewall: fw, Created: created}

	if server == "" {
		return sync, nil
	}
	applied, err := c.applyToServer(ctx, fw, server)
	if err != nil {
		return nil, err
	}
	if applied {
		sync.AppliedTo = server
	}
	return sync, nil
}

func (c *Client) ensureFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string) (*hcloud.Firewall, bool, error) {
	return (&EnsureOperation[*hcloud.Firewall, hcloud.FirewallCreateOpts, hcloud.FirewallSetRulesOpts]{
		Name:         name,
		ResourceType: "firewall",
		Get:          c.client.Firewall.Get,
		Create:       c.createFirewall,
		Update:       c.client.Firewall.SetRules,
		CreateOptsMapper: func() hcloud.FirewallCreateOpts {
			return hcloud.FirewallCreateOpts{
				Name:   name,
				Rules:  rules,
				Labels: labels,
			}
		},
		UpdateOptsMapper: func(_ *hcloud.Firewall) hcloud.FirewallSetRulesOpts {
			return hcloud.FirewallSetRulesOpts{
				Rules: rules,
			}
		},
	}).Execute(ctx, c)
}

func (c *Client) createFirewall(ctx context.Context, opts hcloud.FirewallCreateOpts) (*CreateResult[*hcloud.Firewall], *hcloud.Response, error) {
	res, resp, err := c.client.Firewall.Create(ctx, opts)
	if err != nil {
		return nil, resp, err
	}
	return &CreateResult[*hcloud.Firewall]{
		Resource: res.Firewall,
		Actions:  res.Actions,
	}, resp, nil
}

// applyToServer attaches fw to the named server unless it already is.
func (c *Client) applyToServer(ctx context.Context, fw *hcloud.Firewall, name string) (bool, error) {
	server, _, err := c.client.Server.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to get server %s: %w", name, err)
	}
	if server == nil {
		return false, fmt.Errorf("server %s not found", name)
	}

	for _, r := range fw.AppliedTo {
		if r.Type == hcloud.FirewallResourceTypeServer && r.Server != nil && r.Server.ID == server.ID {
			return false, nil
		}
	}

	actions, _, err := c.client.Firewall.ApplyResources(ctx, fw, []hcloud.FirewallResource{{
		Type:   hcloud.FirewallResourceTypeServer,
		Server: &hcloud.FirewallResourceServer{ID: server.ID},
	}})
	if err != nil {
		if IsAlreadyApplied(err) {
			return false, nil
		}
		// The server can be deleted between the lookup and the apply.
		if IsNotFound(err) {
			return false, fmt.Errorf("server %s not found: %w", name, err)
		}
		return false, fmt.Errorf("failed to apply firewall %s to server %s: %w", fw.Name, name, err)
	}
	if err := c.waitForActions(ctx, actions...); err != nil {
		return false, fmt.Errorf("failed to wait for firewall %s: %w", fw.Name, err)
	}
	return true, nil
}
