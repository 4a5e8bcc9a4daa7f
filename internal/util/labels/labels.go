package labels

import "strings"

// Standard label keys for Hetzner Cloud resources.
const (
	// KeyManagedBy identifies the management system
	KeyManagedBy = "vpsgate.io/managed-by"

	// KeyVariant identifies the gateway variant (frp, wireguard)
	KeyVariant = "vpsgate.io/variant"

	// KeyDomain identifies the base domain routed through the gateway
	KeyDomain = "vpsgate.io/domain"
)

// ManagedByVPSGate is the value of KeyManagedBy on every resource vpsgate creates.
const ManagedByVPSGate = "vpsgate"

// maxValueLength is the longest label value Hetzner Cloud accepts.
const maxValueLength = 63

// LabelBuilder provides a fluent interface for building Hetzner Cloud resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the variant pre-set.
func NewLabelBuilder(variant string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyManagedBy: ManagedByVPSGate,
			KeyVariant:   Sanitize(variant),
		},
	}
}

// WithDomain adds the domain label when domain is non-empty.
func (lb *LabelBuilder) WithDomain(domain string) *LabelBuilder {
	if v := Sanitize(domain); v != "" {
		lb.labels[KeyDomain] = v
	}
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Sanitize turns s into a valid label value: characters outside
// [a-zA-Z0-9._-] become '-', the value is cut to 63 characters and must
// start and end alphanumerically.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	v := b.String()
	if len(v) > maxValueLength {
		v = v[:maxValueLength]
	}
	return strings.Trim(v, "._-")
}
