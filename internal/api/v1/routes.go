// Package v1 provides the HTTP handlers for the two user administration
// gates and the system endpoints.
package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bizportal/admin-gateway/internal/identity"
	"github.com/bizportal/admin-gateway/internal/service"
	"github.com/bizportal/admin-gateway/internal/versions"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse carries a confirmation message for mutations without a body
type MessageResponse struct {
	Message string `json:"message"`
}

// UpdateRoleResponse carries the confirmation message and the updated principal
type UpdateRoleResponse struct {
	Message string              `json:"message"`
	User    *identity.Principal `json:"user"`
}

// UpdateUserRoleRequest is the mutation gate request body. The presence of
// Action selects delete mode; otherwise Email and Role drive a role update.
// RequestingUserEmail is informational only; authorization derives from the
// bearer token.
type UpdateUserRoleRequest struct {
	Action              string `json:"action,omitempty"`
	UserID              string `json:"userId,omitempty"`
	Email               string `json:"email,omitempty"`
	Role                string `json:"role,omitempty"`
	RequestingUserEmail string `json:"requestingUserEmail,omitempty"`
}

// Routes defines the routes for the gateway API with dependency injection
type Routes struct {
	service service.UserAdminService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.UserAdminService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the two gate endpoints
func Router(svc service.UserAdminService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	// CORS preflight. The directory gate answers with the default 200, the
	// mutation gate with an explicit 204; both carry headers only.
	r.Options("/list-users", preflightHandler(http.StatusOK))
	r.Options("/update-user-role", preflightHandler(http.StatusNoContent))

	r.Get("/list-users", routes.listUsers)
	r.Post("/update-user-role", routes.updateUserRole)

	return r
}

// preflightHandler returns CORS preflight responses with no body
func preflightHandler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}
}

// bearerToken extracts the bearer token from the Authorization header.
// ok is false when the header is absent.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// listUsers handles GET /functions/list-users
//
// With no query parameter it returns every principal, metadata omitted.
// With ?userId=<id> it returns that one principal with raw metadata.
// Admin callers only.
func (rr *Routes) listUsers(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		rr.writeErrorResponse(w, "Authorization header is required", http.StatusUnauthorized)
		return
	}

	if userID := r.URL.Query().Get("userId"); userID != "" {
		user, err := rr.service.GetUser(r.Context(), token, userID)
		if err != nil {
			rr.writeGateError(w, err)
			return
		}
		rr.writeJSONResponse(w, user)
		return
	}

	users, err := rr.service.ListUsers(r.Context(), token)
	if err != nil {
		rr.writeGateError(w, err)
		return
	}
	rr.writeJSONResponse(w, users)
}

// updateUserRole handles POST /functions/update-user-role
//
// A body of {action:"delete", userId} deletes the target; otherwise
// {email, role} updates the target's role tag.
func (rr *Routes) updateUserRole(w http.ResponseWriter, r *http.Request) {
	// The mutation gate accepts a missing header here; the empty token
	// fails caller resolution and surfaces as an authentication error.
	token, _ := bearerToken(r)

	var req UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Action == "delete" && req.UserID != "" {
		if err := rr.service.DeleteUser(r.Context(), token, req.UserID); err != nil {
			rr.writeGateError(w, err)
			return
		}
		rr.writeJSONResponse(w, MessageResponse{Message: "User deleted successfully"})
		return
	}

	user, err := rr.service.UpdateRole(r.Context(), token, req.Email, req.Role)
	if err != nil {
		rr.writeGateError(w, err)
		return
	}

	rr.writeJSONResponse(w, UpdateRoleResponse{
		Message: fmt.Sprintf("User's role has been updated to %s successfully", req.Role),
		User:    user,
	})
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.UserAdminService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler reports readiness based on identity store reachability
func readinessHandler(svc service.UserAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			errorResp := ErrorResponse{
				Error: "Identity store not ready: " + err.Error(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(errorResp); encodeErr != nil {
				slog.Error("failed to encode readiness error response", "error", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(info); err != nil {
		slog.Error("failed to encode version info", "error", err)
	}
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// writeGateError maps a gate failure to its HTTP status and message
func (rr *Routes) writeGateError(w http.ResponseWriter, err error) {
	status, message := service.ErrorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("gate operation failed", "error", err)
	}
	rr.writeErrorResponse(w, message, status)
}
