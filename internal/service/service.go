// Package service implements the authorization policy enforced in front of
// the identity store: who may read the user directory, and who may change
// or delete which accounts.
package service

import (
	"context"
	"fmt"

	"github.com/bizportal/admin-gateway/internal/identity"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go UserAdminService

// UserAdminService defines the privileged user administration operations.
// Every operation independently re-resolves the caller from its token; no
// caller state is shared between invocations.
type UserAdminService interface {
	// GetUser returns one principal, including raw metadata.
	// The caller must hold the admin role.
	GetUser(ctx context.Context, token, userID string) (*identity.Principal, error)

	// ListUsers returns all principals with metadata omitted.
	// The caller must hold the admin role.
	ListUsers(ctx context.Context, token string) ([]*identity.Principal, error)

	// UpdateRole sets the role tag on the principal matching email
	// (case-insensitive), preserving its other metadata.
	// The caller must hold the admin or owner role, and the designated
	// owner account's role can never change hands.
	UpdateRole(ctx context.Context, token, email, role string) (*identity.Principal, error)

	// DeleteUser removes the principal with the given ID. The caller must
	// hold the admin or owner role; the designated owner is undeletable.
	DeleteUser(ctx context.Context, token, userID string) error

	// CheckReadiness checks that the identity store is reachable.
	CheckReadiness(ctx context.Context) error
}

// userAdminService enforces the role policy in front of an identity store.
// ownerEmail designates the single protected owner account.
type userAdminService struct {
	store      identity.Store
	ownerEmail string
}

// NewUserAdminService creates the policy service. The owner email is
// injected configuration so tests can substitute a fixed identity.
func NewUserAdminService(store identity.Store, ownerEmail string) (UserAdminService, error) {
	if store == nil {
		return nil, fmt.Errorf("identity store is required")
	}
	if ownerEmail == "" {
		return nil, fmt.Errorf("owner email is required")
	}
	return &userAdminService{
		store:      store,
		ownerEmail: ownerEmail,
	}, nil
}

// CheckReadiness delegates to the identity store.
func (s *userAdminService) CheckReadiness(ctx context.Context) error {
	return s.store.CheckReadiness(ctx)
}
