package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bizportal/admin-gateway/internal/identity"
)

// resolveMutatingCaller resolves the caller's token and requires the admin
// or owner role.
func (s *userAdminService) resolveMutatingCaller(ctx context.Context, token string) (*identity.Principal, error) {
	caller, err := s.store.ResolveToken(ctx, token)
	if err != nil {
		return nil, authenticationError("Authentication required", err)
	}
	return caller, nil
}

// DeleteUser removes a principal. The designated owner account is
// undeletable regardless of caller role.
func (s *userAdminService) DeleteUser(ctx context.Context, token, userID string) error {
	caller, err := s.resolveMutatingCaller(ctx, token)
	if err != nil {
		return err
	}

	if caller.Role != identity.RoleAdmin && caller.Role != identity.RoleOwner {
		return authorizationError("Admin privileges required to delete users")
	}

	target, err := s.store.GetUser(ctx, userID)
	if err != nil {
		// A failed lookup here means the account is gone; surface it as
		// not-found rather than a store failure.
		return notFoundError("User not found")
	}

	if strings.EqualFold(target.Email, s.ownerEmail) {
		return authorizationError("The owner account cannot be deleted")
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeError(fmt.Sprintf("Failed to delete user: %v", err), err)
	}

	slog.Info("deleted user", "user_id", userID, "caller", caller.ID)
	return nil
}

// UpdateRole changes the role tag on the principal matching email. The
// owner-protection checks run before the caller-role check; this preserves
// which error surfaces when a non-admin touches the owner account.
func (s *userAdminService) UpdateRole(ctx context.Context, token, email, role string) (*identity.Principal, error) {
	if email == "" || role == "" {
		return nil, validationError("Email and role are required")
	}
	if !identity.Role(role).Valid() {
		return nil, validationError("Invalid role. Must be owner, admin, user, or blocked")
	}

	caller, err := s.resolveMutatingCaller(ctx, token)
	if err != nil {
		return nil, err
	}

	isOwnerAccount := strings.EqualFold(email, s.ownerEmail)
	if isOwnerAccount && role != identity.RoleOwner.String() {
		return nil, authorizationError("The designated owner role cannot be changed")
	}
	if role == identity.RoleOwner.String() && !isOwnerAccount {
		return nil, authorizationError("Owner role can only be assigned to the designated owner email")
	}

	if caller.Role != identity.RoleAdmin && caller.Role != identity.RoleOwner {
		return nil, authorizationError("Only admins and owners can modify user roles")
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, storeError(fmt.Sprintf("Failed to list users: %v", err), err)
	}

	var target *identity.Principal
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			target = u
			break
		}
	}
	if target == nil {
		return nil, notFoundError("User not found")
	}

	// Set the role on a copy of the target's metadata so everything else
	// it carries survives the write.
	metadata := make(map[string]any, len(target.Metadata)+1)
	for k, v := range target.Metadata {
		metadata[k] = v
	}
	metadata["role"] = role

	updated, err := s.store.UpdateUserMetadata(ctx, target.ID, metadata)
	if err != nil {
		return nil, storeError(fmt.Sprintf("Failed to update user: %v", err), err)
	}

	slog.Info("updated user role",
		"user_id", updated.ID,
		"role", role,
		"caller", caller.ID)
	return updated, nil
}
