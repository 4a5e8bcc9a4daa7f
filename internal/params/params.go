package params

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode"

	"github.com/imamik/vpsgate/internal/keys"
)

var (
	// ErrMissingRequiredParameter is returned when a required value stays empty
	// after every source ran.
	ErrMissingRequiredParameter = errors.New("missing required parameter")

	// ErrInvalidParameter is returned when a value is malformed.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Field names a resolvable parameter by its environment variable.
type Field string

// Resolvable fields.
const (
	FieldDomain        Field = "DOMAIN"
	FieldToken         Field = "TOKEN"
	FieldPublicIP      Field = "VPS_IP"
	FieldPeerPublicKey Field = "WG_PEER_PUBLIC_KEY"
)

// Params are the operator supplied values of a run.
type Params struct {
	Domain        string
	Token         string
	PublicIP      string
	PeerPublicKey string

	// Origin records which source supplied each field.
	Origin map[Field]string

	causes map[Field]error
}

// noteFailure remembers why a source could not fill f.
func (p *Params) noteFailure(f Field, err error) {
	if p.causes == nil {
		p.causes = make(map[Field]error)
	}
	p.causes[f] = err
}

// Get returns the value of f.
func (p *Params) Get(f Field) string {
	switch f {
	case FieldDomain:
		return p.Domain
	case FieldToken:
		return p.Token
	case FieldPublicIP:
		return p.PublicIP
	case FieldPeerPublicKey:
		return p.PeerPublicKey
	}
	return ""
}

// Fill sets f to value unless it already holds one. It reports whether
// the value was taken.
func (p *Params) Fill(f Field, value, source string) bool {
	value = strings.TrimSpace(value)
	if value == "" || p.Get(f) != "" {
		return false
	}
	switch f {
	case FieldDomain:
		p.Domain = value
	case FieldToken:
		p.Token = value
	case FieldPublicIP:
		p.PublicIP = value
	case FieldPeerPublicKey:
		p.PeerPublicKey = value
	default:
		return false
	}
	if p.Origin == nil {
		p.Origin = make(map[Field]string)
	}
	p.Origin[f] = source
	return true
}

// Requirements tell sources which fields a run needs.
type Requirements struct {
	// Token is required by the frp variant.
	Token bool
	// PeerPublicKey is asked for by the WireGuard variant but optional.
	PeerPublicKey bool
}

// Required lists the fields that must be set after resolution.
func (r Requirements) Required() []Field {
	fields := []Field{FieldDomain, FieldPublicIP}
	if r.Token {
		fields = append(fields, FieldToken)
	}
	return fields
}

// Supplied lists the required fields only the operator can provide. The
// public IP is left out because it can still be detected.
func (r Requirements) Supplied() []Field {
	fields := []Field{FieldDomain}
	if r.Token {
		fields = append(fields, FieldToken)
	}
	return fields
}

// Source supplies values for fields that are still empty.
type Source interface {
	Name() string
	Fill(ctx context.Context, p *Params, req Requirements) error
}

// MissingParameterError names the required fields no source could fill.
type MissingParameterError struct {
	Fields []Field
	// Causes holds why a source failed to supply a field, if known.
	Causes map[Field]error
}

func (e *MissingParameterError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = string(f)
		if cause, ok := e.Causes[f]; ok {
			names[i] += fmt.Sprintf(" (%v)", cause)
		}
	}
	return fmt.Sprintf("%v: %s; set via flag or environment variable", ErrMissingRequiredParameter, strings.Join(names, ", "))
}

func (e *MissingParameterError) Unwrap() error { return ErrMissingRequiredParameter }

// Resolve runs sources in order and validates the result. It never
// writes anything.
func Resolve(ctx context.Context, req Requirements, sources ...Source) (*Params, error) {
	p := &Params{}
	for _, src := range sources {
		if err := src.Fill(ctx, p, req); err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
	}

	var missing []Field
	for _, f := range req.Required() {
		if p.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingParameterError{Fields: missing, Causes: p.causes}
	}

	if err := p.normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckSupplied runs sources and reports the operator supplied fields that
// are still empty. It validates nothing else and never writes anything.
func CheckSupplied(ctx context.Context, req Requirements, sources ...Source) error {
	p := &Params{}
	for _, src := range sources {
		if err := src.Fill(ctx, p, req); err != nil {
			return fmt.Errorf("%s: %w", src.Name(), err)
		}
	}
	var missing []Field
	for _, f := range req.Supplied() {
		if p.Get(f) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingParameterError{Fields: missing, Causes: p.causes}
	}
	return nil
}

func (p *Params) normalize() error {
	domain, err := NormalizeDomain(p.Domain)
	if err != nil {
		return err
	}
	p.Domain = domain

	ip, err := NormalizeIP(p.PublicIP)
	if err != nil {
		return err
	}
	p.PublicIP = ip

	if p.Token != "" {
		if err := ValidateToken(p.Token); err != nil {
			return err
		}
	}
	if p.PeerPublicKey != "" {
		if err := keys.ValidateKey(p.PeerPublicKey); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParameter, FieldPeerPublicKey, err)
		}
	}
	return nil
}

var labelRE = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NormalizeDomain lower-cases domain, drops a trailing dot and checks that
// it is a DNS name with at least two labels.
func NormalizeDomain(domain string) (string, error) {
	d := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if d == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingRequiredParameter, FieldDomain)
	}
	if len(d) > 253 {
		return "", fmt.Errorf("%w: %s %q is longer than 253 characters", ErrInvalidParameter, FieldDomain, domain)
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("%w: %s %q needs at least two labels", ErrInvalidParameter, FieldDomain, domain)
	}
	for _, l := range labels {
		if !labelRE.MatchString(l) {
			return "", fmt.Errorf("%w: %s %q has invalid label %q", ErrInvalidParameter, FieldDomain, domain, l)
		}
	}
	return d, nil
}

// NormalizeIP checks that s is an IPv4 or IPv6 literal and returns its
// canonical form.
func NormalizeIP(s string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return "", fmt.Errorf("%w: %s %q is not an IP address", ErrInvalidParameter, FieldPublicIP, s)
	}
	return ip.String(), nil
}

// ValidateToken rejects tokens that cannot be embedded in a config file.
func ValidateToken(token string) error {
	for _, r := range token {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == '"' || r == '\\' {
			return fmt.Errorf("%w: %s must not contain whitespace, quotes or backslashes", ErrInvalidParameter, FieldToken)
		}
	}
	return nil
}
