package provisioning

import (
	"context"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	hcloud_internal "github.com/imamik/vpsgate/internal/platform/hcloud"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the name used in logs and metrics.
	Name() string

	// Stage returns the stage the run is in once the phase succeeded.
	Stage() Stage

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// CloudFirewall keeps a Hetzner Cloud firewall in sync.
// Implemented by internal/platform/hcloud.Client.
type CloudFirewall interface {
	SyncFirewall(ctx context.Context, name string, rules []hcloud.FirewallRule, labels map[string]string, server string) (*hcloud_internal.FirewallSync, error)
}

// BackupStore receives copies of replaced configuration files.
// Implemented by internal/platform/s3.Client.
type BackupStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	UploadDir(ctx context.Context, bucket, prefix, dir string) ([]string, error)
}
