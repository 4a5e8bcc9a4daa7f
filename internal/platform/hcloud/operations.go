package hcloud

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// CreateResult wraps the result of a resource creation.
type CreateResult[T any] struct {
	Resource T
	Actions  []*hcloud.Action
}

// EnsureOperation encapsulates get-or-create logic for an hcloud resource,
// with an optional update of the existing resource.
type EnsureOperation[T any, CreateOpts any, UpdateOpts any] struct {
	Name         string
	ResourceType string

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Create creates the resource with the given options
	Create func(ctx context.Context, opts CreateOpts) (*CreateResult[T], *hcloud.Response, error)

	// Update updates the resource if it exists (optional)
	Update func(ctx context.Context, resource T, opts UpdateOpts) ([]*hcloud.Action, *hcloud.Response, error)

	CreateOptsMapper func() CreateOpts
	UpdateOptsMapper func(resource T) UpdateOpts
}

// Execute gets the resource and updates it, or creates it when missing.
// It reports whether the resource was created.
func (op *EnsureOperation[T, CreateOpts, UpdateOpts]) Execute(ctx context.Context, c *Client) (T, bool, error) {
	var zero T

	resource, _, err := op.Get(ctx, op.Name)
	if err != nil {
		return zero, false, fmt.Errorf("failed to get %s: %w", op.ResourceType, err)
	}

	if !reflect.ValueOf(resource).IsNil() {
		if op.Update != nil && op.UpdateOptsMapper != nil {
			actions, _, err := op.Update(ctx, resource, op.UpdateOptsMapper(resource))
			if err != nil {
				return zero, false, fmt.Errorf("failed to update %s: %w", op.ResourceType, err)
			}
			if err := c.waitForActions(ctx, actions...); err != nil {
				return zero, false, fmt.Errorf("failed to wait for %s update: %w", op.ResourceType, err)
			}
		}
		return resource, false, nil
	}

	result, _, err := op.Create(ctx, op.CreateOptsMapper())
	if err != nil {
		return zero, false, fmt.Errorf("failed to create %s: %w", op.ResourceType, err)
	}
	if err := c.waitForActions(ctx, result.Actions...); err != nil {
		return zero, false, fmt.Errorf("failed to wait for %s creation: %w", op.ResourceType, err)
	}
	return result.Resource, true, nil
}

func (c *Client) waitForActions(ctx context.Context, actions ...*hcloud.Action) error {
	if len(actions) == 0 {
		return nil
	}
	return c.client.Action.WaitFor(ctx, actions...)
}
