package handlers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/storage"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxUploadBytes = 8 << 20

var allowedUploadTypes = map[string]bool{
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// UploadHandler stores media files in object storage and streams them back.
type UploadHandler struct {
	storage *storage.Storage
}

// UploadRouter registers the authenticated media upload routes. Deletion is
// admin only: stored objects carry no owner.
func UploadRouter(r chi.Router, store *storage.Storage, guard *auth.Guard) {
	handler := &UploadHandler{storage: store}
	r.With(guard.Middleware).Post("/", handler.Upload)
	r.With(guard.Middleware, auth.RequireRole(types.RoleAdmin)).Delete("/{key}", handler.Delete)
}

// MediaRouter registers the public media download route.
func MediaRouter(r chi.Router, store *storage.Storage) {
	handler := &UploadHandler{storage: store}
	r.Get("/{key}", handler.Serve)
}

// UploadResponse describes a stored media object.
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Upload accepts a multipart "file" field, stores it under a random key, and
// returns the key plus the serving path.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	contentType, err := sniffContentType(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	if !allowedUploadTypes[contentType] {
		writeError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	key := uuid.NewString() + strings.ToLower(path.Ext(header.Filename))
	if err := h.storage.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Key: key, URL: "/api/media/" + key})
}

// Delete removes a stored object.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if strings.Contains(key, "/") || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}

	if err := h.storage.Delete(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// Serve streams a stored object back to the client.
func (h *UploadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if strings.Contains(key, "/") || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}

	object, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer object.Close()

	if _, err := io.Copy(w, object); err != nil && !errors.Is(err, io.EOF) {
		return
	}
}

// sniffContentType detects the media type from the first 512 bytes and
// rewinds the reader.
func sniffContentType(file io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	contentType := http.DetectContentType(head[:n])
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType), nil
}
