package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	minContactMessageLen = 3
	maxContactMessageLen = 2000
	maxContactNameLen    = 120
)

// ContactHandler accepts contact form submissions.
type ContactHandler struct {
	contactService *services.ContactService
}

// ContactRouter registers the contact intake route.
func ContactRouter(r chi.Router, contactService *services.ContactService) {
	handler := &ContactHandler{contactService: contactService}
	r.Post("/", handler.Create)
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Create stores a contact message and queues the notification.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var errs []FieldError
	if !lenBetween(req.Name, 1, maxContactNameLen) {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required"})
	}
	if !validEmail(req.Email) {
		errs = append(errs, FieldError{Field: "email", Message: "Valid email required"})
	}
	if !lenBetween(req.Message, minContactMessageLen, maxContactMessageLen) {
		errs = append(errs, FieldError{Field: "message", Message: "Message should be 3-2000 characters"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	msg := types.ContactMessage{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Message: strings.TrimSpace(req.Message),
	}
	created, err := h.contactService.Create(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Message received",
		"data":    created,
	})
}
