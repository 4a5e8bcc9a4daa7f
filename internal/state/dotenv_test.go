package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Parallel()
	input := `# generated by vpsgate
DOMAIN=example.com
export VPS_IP=203.0.113.5

TOKEN="abc 123"
WG_PORT='51820'
EMPTY=
`
	values, err := ParseEnv(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"DOMAIN":  "example.com",
		"VPS_IP":  "203.0.113.5",
		"TOKEN":   "abc 123",
		"WG_PORT": "51820",
		"EMPTY":   "",
	}, values)
}

func TestParseEnv_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing equals", "DOMAIN example.com\n", "line 1: expected KEY=VALUE"},
		{"empty key", "=value\n", "line 1: empty key"},
		{"broken quote", "A=ok\nTOKEN=\"abc\\\"\n", "line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseEnv(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatEnv_SortedAndQuoted(t *testing.T) {
	t.Parallel()
	out := FormatEnv(map[string]string{
		"VPS_IP": "203.0.113.5",
		"DOMAIN": "example.com",
		"TOKEN":  "has space",
	})

	assert.Equal(t, "DOMAIN=example.com\nTOKEN=\"has space\"\nVPS_IP=203.0.113.5\n", string(out))

	parsed, err := ParseEnv(strings.NewReader(string(out)))
	require.NoError(t, err)
	assert.Equal(t, "has space", parsed["TOKEN"])
}
