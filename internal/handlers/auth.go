package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
)

const (
	minPasswordLen = 6
	minUsernameLen = 2
	maxUsernameLen = 40
	maxFullNameLen = 80
)

// AuthHandler provides registration, login, profile, and password-reset
// endpoints for the general user audience.
type AuthHandler struct {
	userService *services.UserService
	issuer      *auth.Issuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{userService: userService, issuer: issuer}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, issuer *auth.Issuer, guard *auth.Guard) {
	handler := NewAuthHandler(userService, issuer)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(guard.Middleware).Get("/me", handler.Me)
	r.With(guard.Middleware).Put("/profile", handler.Profile)
	r.Post("/forgot-password", handler.ForgotPassword)
	r.Post("/reset-password", handler.ResetPassword)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries a session token and the sanitized account.
type AuthResponse struct {
	Token string         `json:"token"`
	User  auth.Principal `json:"user"`
}

// Register creates a new user account and returns a session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var errs []FieldError
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email required"})
	}
	if len(req.Password) < minPasswordLen {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	if req.Username != "" && !lenBetween(req.Username, minUsernameLen, maxUsernameLen) {
		errs = append(errs, FieldError{Field: "username", Message: "Username should be 2-40 characters"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.issuer.IssueUser(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: auth.PrincipalFromUser(user)})
}

// Login verifies credentials and returns a session token. Unknown email and
// wrong password are indistinguishable in the response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
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

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	token, err := h.issuer.IssueUser(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: auth.PrincipalFromUser(user)})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]auth.Principal{"user": principal})
}

type ProfileRequest struct {
	Username  *string `json:"username"`
	FullName  *string `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
}

// Profile updates the caller's own profile fields. An explicit empty string
// clears a field.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if errs := validateProfileFields(req.Username, req.FullName, req.AvatarURL); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), principal.ID, services.ProfileUpdate{
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]auth.Principal{"user": auth.PrincipalFromUser(user)})
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email matches an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if !validEmail(req.Email) {
		writeValidationErrors(w, []FieldError{{Field: "email", Message: "Valid email required"}})
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to process request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If that email exists, reset instructions have been sent.",
	})
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var errs []FieldError
	if strings.TrimSpace(req.Token) == "" {
		errs = append(errs, FieldError{Field: "token", Message: "Reset token is required"})
	}
	if len(req.Password) < minPasswordLen {
		errs = append(errs, FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	if err := h.userService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, services.ErrResetTokenInvalid) {
			writeError(w, http.StatusBadRequest, "Reset token invalid or expired")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

func validateProfileFields(username, fullName, avatarURL *string) []FieldError {
	var errs []FieldError
	if username != nil && *username != "" && !lenBetween(*username, minUsernameLen, maxUsernameLen) {
		errs = append(errs, FieldError{Field: "username", Message: "Username should be 2-40 characters"})
	}
	if fullName != nil && *fullName != "" && !lenBetween(*fullName, minUsernameLen, maxFullNameLen) {
		errs = append(errs, FieldError{Field: "fullName", Message: "Full name should be 2-80 characters"})
	}
	if avatarURL != nil && *avatarURL != "" && !validURL(*avatarURL) {
		errs = append(errs, FieldError{Field: "avatarUrl", Message: "Avatar must be valid URL"})
	}
	return errs
}
