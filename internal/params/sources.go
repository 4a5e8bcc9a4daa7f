package params

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/vpsgate/internal/keys"
	"github.com/imamik/vpsgate/internal/platform/publicip"
	"github.com/imamik/vpsgate/internal/prompt"
	"github.com/imamik/vpsgate/internal/state"
)

// Overrides are values given on the command line.
type Overrides struct {
	Domain        string
	Token         string
	PublicIP      string
	PeerPublicKey string
}

// EnvSource fills from command-line overrides first and then from the
// process environment.
type EnvSource struct {
	Overrides Overrides
	// LookupEnv is os.LookupEnv outside of tests.
	LookupEnv func(string) (string, bool)
}

// Name implements Source.
func (s *EnvSource) Name() string { return "environment" }

// Fill implements Source.
func (s *EnvSource) Fill(_ context.Context, p *Params, _ Requirements) error {
	p.Fill(FieldDomain, s.Overrides.Domain, "flag")
	p.Fill(FieldToken, s.Overrides.Token, "flag")
	p.Fill(FieldPublicIP, s.Overrides.PublicIP, "flag")
	p.Fill(FieldPeerPublicKey, s.Overrides.PeerPublicKey, "flag")

	if s.LookupEnv == nil {
		return nil
	}
	for _, f := range []Field{FieldDomain, FieldToken, FieldPublicIP, FieldPeerPublicKey} {
		if v, ok := s.LookupEnv(string(f)); ok {
			p.Fill(f, v, "env")
		}
	}
	return nil
}

// PersistedStateSource fills from the .env of a previous run.
type PersistedStateSource struct {
	Snapshot *state.Snapshot
}

// Name implements Source.
func (s *PersistedStateSource) Name() string { return "persisted state" }

// Fill implements Source.
func (s *PersistedStateSource) Fill(_ context.Context, p *Params, _ Requirements) error {
	if s.Snapshot == nil {
		return nil
	}
	fields := map[Field]string{
		FieldDomain:        state.KeyDomain,
		FieldToken:         state.KeyToken,
		FieldPublicIP:      state.KeyPublicIP,
		FieldPeerPublicKey: state.KeyPeerPublicKey,
	}
	for f, key := range fields {
		if v, ok := s.Snapshot.Get(key); ok {
			p.Fill(f, v, "state")
		}
	}
	return nil
}

// PromptSource asks the operator for the fields that are still empty.
// It does nothing when the prompter is not interactive.
type PromptSource struct {
	Prompter prompt.Prompter
}

// Name implements Source.
func (s *PromptSource) Name() string { return "prompt" }

// Fill implements Source.
func (s *PromptSource) Fill(ctx context.Context, p *Params, req Requirements) error {
	if s.Prompter == nil || !s.Prompter.Interactive() {
		return nil
	}

	for _, q := range questions(req) {
		if p.Get(q.field) != "" {
			continue
		}
		v, err := s.Prompter.Input(ctx, q.Question)
		if err != nil {
			return fmt.Errorf("failed to ask for %s: %w", q.field, err)
		}
		p.Fill(q.field, v, "prompt")
	}
	return nil
}

type question struct {
	field Field
	prompt.Question
}

func questions(req Requirements) []question {
	qs := []question{{
		field: FieldDomain,
		Question: prompt.Question{
			Title:       "Domain",
			Description: "Services are exposed as <name>.<domain>",
			Placeholder: "example.com",
			Validate: func(s string) error {
				_, err := NormalizeDomain(s)
				return err
			},
		},
	}}
	if req.Token {
		qs = append(qs, question{
			field: FieldToken,
			Question: prompt.Question{
				Title:       "frp token",
				Description: "Shared secret between frps and frpc",
				Secret:      true,
				Validate: func(s string) error {
					if s == "" {
						return fmt.Errorf("token is required")
					}
					return ValidateToken(s)
				},
			},
		})
	}
	qs = append(qs, question{
		field: FieldPublicIP,
		Question: prompt.Question{
			Title:       "Public IP",
			Description: "Leave empty to detect it automatically",
			Validate: func(s string) error {
				if s == "" {
					return nil
				}
				_, err := NormalizeIP(s)
				return err
			},
		},
	})
	if req.PeerPublicKey {
		qs = append(qs, question{
			field: FieldPeerPublicKey,
			Question: prompt.Question{
				Title:       "Cluster peer public key",
				Description: "Leave empty to add the peer later",
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					if err := keys.ValidateKey(s); err != nil {
						return fmt.Errorf("%w: %s: %v", ErrInvalidParameter, FieldPeerPublicKey, err)
					}
					return nil
				},
			},
		})
	}
	return qs
}

// IPDetector detects the public address.
type IPDetector interface {
	Detect(ctx context.Context) (ip string, provider string, err error)
}

// DetectSource fills the public IP by asking detection services.
type DetectSource struct {
	Detector IPDetector
}

// Name implements Source.
func (s *DetectSource) Name() string { return "detection" }

// Fill implements Source. A failed detection leaves the field empty and
// is reported as a missing parameter.
func (s *DetectSource) Fill(ctx context.Context, p *Params, _ Requirements) error {
	if p.PublicIP != "" || s.Detector == nil {
		return nil
	}
	ip, provider, err := s.Detector.Detect(ctx)
	if err != nil {
		p.noteFailure(FieldPublicIP, err)
		return nil
	}
	p.Fill(FieldPublicIP, ip, "detected via "+provider)
	return nil
}

// DetectorFunc adapts a publicip.Detector to IPDetector.
type DetectorFunc func(ctx context.Context) (string, string, error)

// Detect implements IPDetector.
func (f DetectorFunc) Detect(ctx context.Context) (string, string, error) { return f(ctx) }

// FromPublicIP wraps a publicip.Detector.
func FromPublicIP(d *publicip.Detector) IPDetector {
	return DetectorFunc(func(ctx context.Context) (string, string, error) {
		ip, provider, err := d.Detect(ctx)
		if err != nil {
			return "", "", err
		}
		return ip.String(), provider, nil
	})
}
