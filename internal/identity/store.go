package identity

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store

import (
	"context"
)

// Store is the interface to the external identity service of record.
// Implementations must not cache principal state between calls.
type Store interface {
	// ResolveToken exchanges a bearer session token for the calling principal.
	ResolveToken(ctx context.Context, token string) (*Principal, error)

	// GetUser fetches a single principal by its store identifier.
	GetUser(ctx context.Context, id string) (*Principal, error)

	// ListUsers fetches all principals, including their raw metadata.
	ListUsers(ctx context.Context) ([]*Principal, error)

	// UpdateUserMetadata replaces the principal's metadata with the given map
	// and returns the updated principal.
	UpdateUserMetadata(ctx context.Context, id string, metadata map[string]any) (*Principal, error)

	// DeleteUser removes the principal from the store.
	DeleteUser(ctx context.Context, id string) error

	// CheckReadiness checks that the store is reachable.
	CheckReadiness(ctx context.Context) error
}
