package hcloud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	unauthorized := hcloud.Error{Code: hcloud.ErrorCodeUnauthorized, Message: "unable to authenticate"}
	forbidden := hcloud.Error{Code: hcloud.ErrorCodeForbidden, Message: "insufficient permissions"}
	applied := hcloud.Error{Code: hcloud.ErrorCodeFirewallAlreadyApplied, Message: "already applied"}
	notFound := hcloud.Error{Code: hcloud.ErrorCodeNotFound, Message: "server not found"}

	tests := []struct {
		name             string
		err              error
		wantUnauthorized bool
		wantApplied      bool
		wantNotFound     bool
	}{
		{"nil", nil, false, false, false},
		{"plain error", errors.New("boom"), false, false, false},
		{"unauthorized", unauthorized, true, false, false},
		{"wrapped forbidden", fmt.Errorf("failed to get firewall: %w", forbidden), true, false, false},
		{"already applied", applied, false, true, false},
		{"wrapped not found", fmt.Errorf("failed to apply: %w", notFound), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantUnauthorized, IsUnauthorized(tt.err))
			assert.Equal(t, tt.wantApplied, IsAlreadyApplied(tt.err))
			assert.Equal(t, tt.wantNotFound, IsNotFound(tt.err))
		})
	}
}
