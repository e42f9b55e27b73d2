package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves the admin console: its own cookie session plus user
// management.
type AdminHandler struct {
	userService   *services.UserService
	issuer        *auth.Issuer
	secureCookies bool
}

// NewAdminHandler constructs an AdminHandler with the provided dependencies.
func NewAdminHandler(userService *services.UserService, issuer *auth.Issuer, secureCookies bool) *AdminHandler {
	return &AdminHandler{userService: userService, issuer: issuer, secureCookies: secureCookies}
}

// AdminAuthRouter registers the admin session routes.
func AdminAuthRouter(r chi.Router, userService *services.UserService, issuer *auth.Issuer, guard *auth.Guard, secureCookies bool) {
	handler := NewAdminHandler(userService, issuer, secureCookies)

	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(guard.Middleware, auth.RequireRole(types.RoleAdmin)).Get("/me", handler.Me)
}

// AdminUserRouter registers the admin user-management routes. Every route
// requires an authenticated admin.
func AdminUserRouter(r chi.Router, userService *services.UserService, issuer *auth.Issuer, guard *auth.Guard, secureCookies bool) {
	handler := NewAdminHandler(userService, issuer, secureCookies)

	r.Use(guard.Middleware, auth.RequireRole(types.RoleAdmin))
	r.Get("/users", handler.ListUsers)
	r.Patch("/users/{userID}", handler.UpdateUser)
}

// Login verifies admin credentials and establishes the cookie session. A
// non-admin account is rejected with the same response as a bad password.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.AuthenticateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid admin credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := h.issuer.IssueAdmin(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	auth.SetAdminCookie(w, token, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]auth.Principal{"admin": auth.PrincipalFromUser(user)})
}

// Logout clears the admin session cookie.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearAdminCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the authenticated admin account.
func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]auth.Principal{"admin": principal})
}

// ListUsers returns all accounts, optionally filtered by a search term
// matched against email, username, and full name.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	principals := make([]auth.Principal, 0, len(users))
	for _, user := range users {
		principals = append(principals, auth.PrincipalFromUser(user))
	}
	writeJSON(w, http.StatusOK, map[string][]auth.Principal{"users": principals})
}

type AdminUpdateUserRequest struct {
	Username  *string     `json:"username"`
	FullName  *string     `json:"fullName"`
	AvatarURL *string     `json:"avatarUrl"`
	Role      *types.Role `json:"role"`
	Password  *string     `json:"password"`
}

// UpdateUser applies partial updates to any account, including role changes
// and password overrides.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	errs := validateProfileFields(req.Username, req.FullName, req.AvatarURL)
	if req.Role != nil && !req.Role.Valid() {
		errs = append(errs, FieldError{Field: "role", Message: "Role must be user or admin"})
	}
	if req.Password != nil && len(*req.Password) < minPasswordLen {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.AdminUpdateUser(r.Context(), userID, services.AdminUpdate{
		ProfileUpdate: services.ProfileUpdate{
			Username:  req.Username,
			FullName:  req.FullName,
			AvatarURL: req.AvatarURL,
		},
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]auth.Principal{"user": auth.PrincipalFromUser(user)})
}
