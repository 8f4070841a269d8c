package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bizportal/admin-gateway/internal/identity"
	"github.com/bizportal/admin-gateway/internal/identity/mocks"
	"github.com/bizportal/admin-gateway/internal/service"
)

func TestDeleteUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		userID      string
		setupStore  func(store *mocks.MockStore)
		wantStatus  int
		wantMessage string
	}{
		{
			name:   "unauthenticated",
			userID: "U1",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("no session"))
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication required",
		},
		{
			name:   "plain user may not delete",
			userID: "U1",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "someone@example.com", identity.RoleUser, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Admin privileges required to delete users",
		},
		{
			name:   "target not found",
			userID: "U404",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().GetUser(gomock.Any(), "U404").
					Return(nil, errors.New("user not found"))
			},
			wantStatus:  http.StatusNotFound,
			wantMessage: "User not found",
		},
		{
			name:   "admin cannot delete the owner",
			userID: "U-owner",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().GetUser(gomock.Any(), "U-owner").
					Return(principal("U-owner", ownerEmail, identity.RoleOwner, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "The owner account cannot be deleted",
		},
		{
			name:   "even the owner cannot delete the owner",
			userID: "U-owner",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("U-owner", ownerEmail, identity.RoleOwner, nil), nil)
				store.EXPECT().GetUser(gomock.Any(), "U-owner").
					Return(principal("U-owner", ownerEmail, identity.RoleOwner, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "The owner account cannot be deleted",
		},
		{
			name:   "owner email matched case-insensitively",
			userID: "U-owner",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().GetUser(gomock.Any(), "U-owner").
					Return(principal("U-owner", "Owner@Example.COM", identity.RoleOwner, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "The owner account cannot be deleted",
		},
		{
			name:   "store delete failure",
			userID: "U2",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().GetUser(gomock.Any(), "U2").
					Return(principal("U2", "target@example.com", identity.RoleUser, nil), nil)
				store.EXPECT().DeleteUser(gomock.Any(), "U2").
					Return(errors.New("conflict"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to delete user: conflict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			store := mocks.NewMockStore(ctrl)
			tt.setupStore(store)

			svc := newService(t, store)

			err := svc.DeleteUser(context.Background(), "token", tt.userID)
			require.Error(t, err)

			status, message := service.ErrorStatus(err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestDeleteUser_Success(t *testing.T) {
	t.Parallel()

	// Both admins and the owner may delete ordinary accounts.
	for _, callerRole := range []identity.Role{identity.RoleAdmin, identity.RoleOwner} {
		t.Run(string(callerRole), func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			store := mocks.NewMockStore(ctrl)
			store.EXPECT().ResolveToken(gomock.Any(), "token").
				Return(principal("c1", "caller@example.com", callerRole, nil), nil)
			store.EXPECT().GetUser(gomock.Any(), "U2").
				Return(principal("U2", "target@example.com", identity.RoleUser, nil), nil)
			store.EXPECT().DeleteUser(gomock.Any(), "U2").Return(nil)

			svc := newService(t, store)

			err := svc.DeleteUser(context.Background(), "token", "U2")
			assert.NoError(t, err)
		})
	}
}

func TestUpdateRole_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		email       string
		role        string
		wantMessage string
	}{
		{
			name:        "missing email",
			email:       "",
			role:        "admin",
			wantMessage: "Email and role are required",
		},
		{
			name:        "missing role",
			email:       "x@y.com",
			role:        "",
			wantMessage: "Email and role are required",
		},
		{
			name:        "unknown role",
			email:       "x@y.com",
			role:        "superadmin",
			wantMessage: "Invalid role. Must be owner, admin, user, or blocked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			// Validation fails before the caller is even resolved; the
			// store must not see any call.
			store := mocks.NewMockStore(ctrl)
			svc := newService(t, store)

			_, err := svc.UpdateRole(context.Background(), "token", tt.email, tt.role)
			require.Error(t, err)

			status, message := service.ErrorStatus(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestUpdateRole_Policy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		email       string
		role        string
		setupStore  func(store *mocks.MockStore)
		wantStatus  int
		wantMessage string
	}{
		{
			name:  "unauthenticated",
			email: "x@y.com",
			role:  "admin",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("no session"))
			},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Authentication required",
		},
		{
			name:  "owner role is immutable",
			email: ownerEmail,
			role:  "user",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "The designated owner role cannot be changed",
		},
		{
			name:  "owner check fires before the caller-role check",
			email: ownerEmail,
			role:  "blocked",
			setupStore: func(store *mocks.MockStore) {
				// A plain user touching the owner account sees the owner
				// invariant message, not the authorization one.
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "pleb@example.com", identity.RoleUser, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "The designated owner role cannot be changed",
		},
		{
			name:  "owner role cannot be granted elsewhere",
			email: "pretender@example.com",
			role:  "owner",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Owner role can only be assigned to the designated owner email",
		},
		{
			name:  "plain user may not change roles",
			email: "x@y.com",
			role:  "admin",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "pleb@example.com", identity.RoleUser, nil), nil)
			},
			wantStatus:  http.StatusForbidden,
			wantMessage: "Only admins and owners can modify user roles",
		},
		{
			name:  "target not found",
			email: "ghost@example.com",
			role:  "blocked",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().ListUsers(gomock.Any()).
					Return([]*identity.Principal{
						principal("U1", "someone@example.com", identity.RoleUser, nil),
					}, nil)
			},
			wantStatus:  http.StatusNotFound,
			wantMessage: "User not found",
		},
		{
			name:  "list failure",
			email: "x@y.com",
			role:  "blocked",
			setupStore: func(store *mocks.MockStore) {
				store.EXPECT().ResolveToken(gomock.Any(), gomock.Any()).
					Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
				store.EXPECT().ListUsers(gomock.Any()).
					Return(nil, errors.New("upstream down"))
			},
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to list users: upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			store := mocks.NewMockStore(ctrl)
			tt.setupStore(store)

			svc := newService(t, store)

			_, err := svc.UpdateRole(context.Background(), "token", tt.email, tt.role)
			require.Error(t, err)

			status, message := service.ErrorStatus(err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, message)
		})
	}
}

func TestUpdateRole_Success(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockStore(ctrl)
	target := principal("U2", "target@example.com", identity.RoleUser,
		map[string]any{"role": "user", "theme": "dark"})

	store.EXPECT().ResolveToken(gomock.Any(), "token").
		Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
	store.EXPECT().ListUsers(gomock.Any()).
		Return([]*identity.Principal{target}, nil)

	var gotMetadata map[string]any
	store.EXPECT().UpdateUserMetadata(gomock.Any(), "U2", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, metadata map[string]any) (*identity.Principal, error) {
			gotMetadata = metadata
			return principal(id, "target@example.com", identity.RoleBlocked, metadata), nil
		})

	svc := newService(t, store)

	// Case-insensitive match against the stored principal's email
	updated, err := svc.UpdateRole(context.Background(), "token", "Target@Example.COM", "blocked")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleBlocked, updated.Role)

	// Role is set on a copy; other metadata keys survive the write
	assert.Equal(t, "blocked", gotMetadata["role"])
	assert.Equal(t, "dark", gotMetadata["theme"])
	assert.Equal(t, "user", target.Metadata["role"])
}

func TestUpdateRole_IdempotentNoOp(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockStore(ctrl)
	target := principal("U2", "target@example.com", identity.RoleUser, map[string]any{"role": "user"})

	store.EXPECT().ResolveToken(gomock.Any(), "token").
		Return(principal("c1", "admin@example.com", identity.RoleAdmin, nil), nil)
	store.EXPECT().ListUsers(gomock.Any()).
		Return([]*identity.Principal{target}, nil)
	store.EXPECT().UpdateUserMetadata(gomock.Any(), "U2", gomock.Any()).
		Return(principal("U2", "target@example.com", identity.RoleUser, map[string]any{"role": "user"}), nil)

	svc := newService(t, store)

	updated, err := svc.UpdateRole(context.Background(), "token", "target@example.com", "user")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleUser, updated.Role)
}

func TestUpdateRole_OwnerMayReassertOwnRole(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockStore(ctrl)
	owner := principal("U-owner", ownerEmail, identity.RoleOwner, map[string]any{"role": "owner"})

	store.EXPECT().ResolveToken(gomock.Any(), "token").Return(owner, nil)
	store.EXPECT().ListUsers(gomock.Any()).
		Return([]*identity.Principal{owner}, nil)
	store.EXPECT().UpdateUserMetadata(gomock.Any(), "U-owner", gomock.Any()).
		Return(owner, nil)

	svc := newService(t, store)

	// Setting owner on the designated owner email passes both invariants.
	updated, err := svc.UpdateRole(context.Background(), "token", ownerEmail, "owner")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleOwner, updated.Role)
}
