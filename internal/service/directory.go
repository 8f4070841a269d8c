package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bizportal/admin-gateway/internal/identity"
)

// resolveAdminCaller resolves the caller's token and requires the admin role.
// Directory reads are admin-only; even the owner goes through the admin tier
// for directory access.
func (s *userAdminService) resolveAdminCaller(ctx context.Context, token string) (*identity.Principal, error) {
	caller, err := s.store.ResolveToken(ctx, token)
	if err != nil {
		return nil, authenticationError(fmt.Sprintf("Authentication failed: %v", err), err)
	}

	if caller.Role != identity.RoleAdmin {
		slog.Warn("directory access denied", "caller", caller.ID, "role", caller.Role)
		return nil, authorizationError("User not allowed")
	}

	return caller, nil
}

// GetUser returns a single principal, metadata included.
func (s *userAdminService) GetUser(ctx context.Context, token, userID string) (*identity.Principal, error) {
	if _, err := s.resolveAdminCaller(ctx, token); err != nil {
		return nil, err
	}

	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(fmt.Sprintf("Failed to fetch user: %v", err), err)
	}

	slog.Debug("fetched user", "user_id", target.ID)
	return target, nil
}

// ListUsers returns all principals with metadata omitted.
func (s *userAdminService) ListUsers(ctx context.Context, token string) ([]*identity.Principal, error) {
	if _, err := s.resolveAdminCaller(ctx, token); err != nil {
		return nil, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(fmt.Sprintf("Failed to fetch users: %v", err), err)
	}

	listed := make([]*identity.Principal, 0, len(users))
	for _, u := range users {
		listed = append(listed, u.WithoutMetadata())
	}

	slog.Debug("listed users", "count", len(listed))
	return listed, nil
}
