package healthcheck

import "context"

// Client is the interface that health check providers must implement.
type Client interface {
	// Get returns the live configuration, or ErrNotFound.
	Get(ctx context.Context, remoteID string) (RemoteConfig, error)
	// Create creates a health check and returns its remote id. The creation
	// token must be unique per attempt.
	Create(ctx context.Context, creationToken string, cfg DesiredConfig) (string, error)
	// Update applies the mutable fields to an existing health check.
	Update(ctx context.Context, remoteID string, cfg MutableConfig) error
	// Delete removes a health check, or returns ErrNotFound.
	Delete(ctx context.Context, remoteID string) error
	// Tag attaches the logical name to the remote object.
	Tag(ctx context.Context, remoteID, name string) error
}
