package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
	"github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds the connection settings for a Supabase-hosted
// identity store. The service role key grants privileged admin access and
// must never be exposed to callers; the anon key is only used to resolve
// caller session tokens.
type SupabaseConfig struct {
	// ProjectURL is the Supabase project URL, e.g. https://xyz.supabase.co
	ProjectURL string

	// AnonKey is the public API key used for token resolution.
	AnonKey string

	// ServiceRoleKey is the privileged API key used for admin operations.
	ServiceRoleKey string
}

// SupabaseStore implements Store against the Supabase auth service (GoTrue).
type SupabaseStore struct {
	anon  gotrue.Client
	admin gotrue.Client
}

var _ Store = (*SupabaseStore)(nil)

// NewSupabaseStore creates a Store backed by the Supabase auth admin API.
// Two clients are held: an anonymous one scoped per-call with the caller's
// token, and a privileged one carrying the service role key.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, fmt.Errorf("service role key is required")
	}

	anonClient, err := supabase.NewClient(cfg.ProjectURL, cfg.AnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create anon client: %w", err)
	}

	adminClient, err := supabase.NewClient(cfg.ProjectURL, cfg.ServiceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin client: %w", err)
	}

	return &SupabaseStore{
		anon:  anonClient.Auth,
		admin: adminClient.Auth.WithToken(cfg.ServiceRoleKey),
	}, nil
}

// ResolveToken exchanges a caller session token for its principal.
// The underlying GoTrue client does not accept a context; the ctx parameter
// is kept for interface symmetry.
func (s *SupabaseStore) ResolveToken(_ context.Context, token string) (*Principal, error) {
	resp, err := s.anon.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}
	return principalFromUser(resp.User), nil
}

// GetUser fetches a single principal by ID via the admin API.
func (s *SupabaseStore) GetUser(_ context.Context, id string) (*Principal, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}

	resp, err := s.admin.AdminGetUser(types.AdminGetUserRequest{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	return principalFromUser(resp.User), nil
}

// ListUsers fetches all principals via the admin API.
func (s *SupabaseStore) ListUsers(_ context.Context) ([]*Principal, error) {
	resp, err := s.admin.AdminListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	principals := make([]*Principal, 0, len(resp.Users))
	for _, u := range resp.Users {
		principals = append(principals, principalFromUser(u))
	}
	return principals, nil
}

// UpdateUserMetadata replaces the principal's metadata and returns the
// updated principal.
func (s *SupabaseStore) UpdateUserMetadata(_ context.Context, id string, metadata map[string]any) (*Principal, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}

	resp, err := s.admin.AdminUpdateUser(types.AdminUpdateUserRequest{
		UserID:       userID,
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return principalFromUser(resp.User), nil
}

// DeleteUser removes the principal from the store.
func (s *SupabaseStore) DeleteUser(_ context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", id, err)
	}

	if err := s.admin.AdminDeleteUser(types.AdminDeleteUserRequest{UserID: userID}); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

// CheckReadiness pings the auth service health endpoint.
func (s *SupabaseStore) CheckReadiness(_ context.Context) error {
	if _, err := s.admin.HealthCheck(); err != nil {
		return fmt.Errorf("identity store not reachable: %w", err)
	}
	return nil
}

// principalFromUser normalizes a GoTrue user record into a Principal.
// The role tag lives in user metadata and defaults to "user" when absent.
func principalFromUser(u types.User) *Principal {
	role := RoleUser
	if raw, ok := u.UserMetadata["role"].(string); ok && raw != "" {
		role = Role(raw)
	}

	return &Principal{
		ID:           u.ID.String(),
		Email:        u.Email,
		Role:         role,
		CreatedAt:    u.CreatedAt,
		LastSignInAt: u.LastSignInAt,
		Metadata:     u.UserMetadata,
	}
}
