// Package ensure implements the get-or-create primitive every provisioning
// step is built from. It never mutates a resource that already exists and
// resolves concurrent duplicate-create races to the surviving resource.
package ensure

import (
	"context"
	"fmt"

	"github.com/evo-uds/wafmon/internal/awsx"
)

// GetFunc fetches the resource identifier (typically an ARN). It must return
// an error classified as not-found when the resource does not exist.
type GetFunc func(ctx context.Context) (string, error)

// CreateFunc creates the resource and returns its identifier.
type CreateFunc func(ctx context.Context) (string, error)

// Resource returns the identifier of the resource, creating it only when the
// get reports not-found. A create that loses a race to a concurrent
// provisioner re-runs the get once and returns its result.
func Resource(ctx context.Context, get GetFunc, create CreateFunc) (string, error) {
	id, err := get(ctx)
	if err == nil {
		return id, nil
	}
	if !awsx.IsNotFound(err) {
		return "", err
	}

	id, err = create(ctx)
	if err == nil {
		return id, nil
	}
	if !awsx.IsAlreadyExists(err) {
		return "", err
	}

	id, err = get(ctx)
	if err != nil {
		return "", fmt.Errorf("refetch after create race: %w", err)
	}
	return id, nil
}
