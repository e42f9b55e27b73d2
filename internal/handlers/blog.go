package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/auth"
	"github.com/devfolio/apiserver/internal/services"
	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxTitleLen   = 200
	maxExcerptLen = 400
)

// BlogHandler serves blog post CRUD. Reads are public; writes require an
// authenticated author and mutations are restricted to the post's author.
type BlogHandler struct {
	postService *services.PostService
}

// NewBlogHandler constructs a BlogHandler with the provided service.
func NewBlogHandler(postService *services.PostService) *BlogHandler {
	return &BlogHandler{postService: postService}
}

// BlogRouter registers blog routes on the given router.
func BlogRouter(r chi.Router, postService *services.PostService, guard *auth.Guard) {
	handler := NewBlogHandler(postService)

	r.Get("/", handler.List)
	r.Get("/{slug}", handler.Get)
	r.With(guard.Middleware).Post("/", handler.Create)
	r.With(guard.Middleware).Put("/{slug}", handler.Update)
	r.With(guard.Middleware).Delete("/{slug}", handler.Delete)
}

// List returns published posts, newest first. Passing ?published=false
// includes drafts.
func (h *BlogHandler) List(w http.ResponseWriter, r *http.Request) {
	publishedOnly := r.URL.Query().Get("published") != "false"

	posts, err := h.postService.List(r.Context(), !publishedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]types.Post{"posts": posts})
}

// Get returns a single post by slug.
func (h *BlogHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Post{"post": post})
}

type CreatePostRequest struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Content    string   `json:"content"`
	Excerpt    string   `json:"excerpt"`
	CoverImage string   `json:"coverImage"`
	Published  bool     `json:"published"`
	Tags       []string `json:"tags"`
}

// Create stores a new post authored by the caller. The slug is derived from
// the title unless one is supplied, and is de-duplicated either way.
func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if errs := validatePostFields(req.Title, req.Content, req.Excerpt, req.CoverImage, true); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	post := types.Post{
		Title:      strings.TrimSpace(req.Title),
		Content:    req.Content,
		Excerpt:    strings.TrimSpace(req.Excerpt),
		CoverImage: strings.TrimSpace(req.CoverImage),
		Published:  req.Published,
		Tags:       req.Tags,
		AuthorID:   principal.ID,
	}

	created, err := h.postService.Create(r.Context(), post, req.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	full, err := h.postService.Get(r.Context(), created.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]types.Post{"post": full})
}

type UpdatePostRequest struct {
	Title      *string   `json:"title"`
	Slug       *string   `json:"slug"`
	Content    *string   `json:"content"`
	Excerpt    *string   `json:"excerpt"`
	CoverImage *string   `json:"coverImage"`
	Published  *bool     `json:"published"`
	Tags       *[]string `json:"tags"`
}

// Update applies partial changes to a post. Only the post's author may
// update it.
func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	if post.AuthorID != principal.ID {
		writeError(w, http.StatusForbidden, "Not your post")
		return
	}

	var req UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	title, content, excerpt, cover := post.Title, post.Content, post.Excerpt, post.CoverImage
	if req.Title != nil {
		title = *req.Title
	}
	if req.Content != nil {
		content = *req.Content
	}
	if req.Excerpt != nil {
		excerpt = *req.Excerpt
	}
	if req.CoverImage != nil {
		cover = *req.CoverImage
	}
	if errs := validatePostFields(title, content, excerpt, cover, true); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	post.Title = strings.TrimSpace(title)
	post.Content = content
	post.Excerpt = strings.TrimSpace(excerpt)
	post.CoverImage = strings.TrimSpace(cover)
	if req.Published != nil {
		post.Published = *req.Published
	}
	if req.Tags != nil {
		post.Tags = *req.Tags
	}

	requestedSlug := ""
	if req.Slug != nil {
		requestedSlug = *req.Slug
	}
	updated, err := h.postService.Update(r.Context(), post, requestedSlug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	full, err := h.postService.Get(r.Context(), updated.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]types.Post{"post": full})
}

// Delete removes a post. Only the post's author may delete it.
func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	post, err := h.postService.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	if post.AuthorID != principal.ID {
		writeError(w, http.StatusForbidden, "Not your post")
		return
	}

	if err := h.postService.Delete(r.Context(), post.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

func validatePostFields(title, content, excerpt, coverImage string, requireBody bool) []FieldError {
	var errs []FieldError
	if requireBody && !lenBetween(title, 1, maxTitleLen) {
		errs = append(errs, FieldError{Field: "title", Message: "Title is required"})
	}
	if requireBody && strings.TrimSpace(content) == "" {
		errs = append(errs, FieldError{Field: "content", Message: "Content is required"})
	}
	if excerpt != "" && !lenBetween(excerpt, 1, maxExcerptLen) {
		errs = append(errs, FieldError{Field: "excerpt", Message: "Excerpt should be at most 400 characters"})
	}
	if coverImage != "" && !validURL(coverImage) {
		errs = append(errs, FieldError{Field: "coverImage", Message: "Cover image must be a valid URL"})
	}
	return errs
}
