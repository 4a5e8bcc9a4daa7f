package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLabelBuilder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		variant string
		want    string
	}{
		{"frp", "frp", "frp"},
		{"wireguard", "wireguard", "wireguard"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			labels := NewLabelBuilder(tt.variant).Build()

			assert.Equal(t, ManagedByVPSGate, labels[KeyManagedBy])
			assert.Equal(t, tt.want, labels[KeyVariant])
			assert.NotContains(t, labels, KeyDomain)
		})
	}
}

func TestWithDomain(t *testing.T) {
	t.Parallel()

	labels := NewLabelBuilder("frp").WithDomain("example.com").Build()
	assert.Equal(t, "example.com", labels[KeyDomain])

	labels = NewLabelBuilder("frp").WithDomain("").Build()
	assert.NotContains(t, labels, KeyDomain)
}

func TestBuild_ReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder("frp")

	first := lb.Build()
	first[KeyVariant] = "changed"

	assert.Equal(t, "frp", lb.Build()[KeyVariant])
}

func TestMerge(t *testing.T) {
	t.Parallel()
	labels := NewLabelBuilder("wireguard").Merge(map[string]string{"env": "prod"}).Build()

	assert.Equal(t, "prod", labels["env"])
	assert.Equal(t, "wireguard", labels[KeyVariant])
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com"},
		{"my domain", "my-domain"},
		{"*.example.com", "example.com"},
		{"-edge-", "edge"},
		{strings.Repeat("a", 70), strings.Repeat("a", 63)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}
