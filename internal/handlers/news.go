package handlers

import (
	"net/http"
	"time"

	"github.com/devfolio/apiserver/internal/news"
	"github.com/devfolio/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// NewsHandler serves the aggregated engineering news feed.
type NewsHandler struct {
	newsService *news.Service
}

// NewsRouter registers news routes on the given router.
func NewsRouter(r chi.Router, newsService *news.Service) {
	handler := &NewsHandler{newsService: newsService}
	r.Get("/daily", handler.Daily)
}

// NewsResponse is the daily feed payload.
type NewsResponse struct {
	Articles  []types.Article `json:"articles"`
	Cached    bool            `json:"cached"`
	FetchedAt time.Time       `json:"fetchedAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Daily returns the current feed snapshot. Upstream failures degrade to
// whatever could be aggregated, never an error status.
func (h *NewsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	result := h.newsService.GetDaily(r.Context())
	writeJSON(w, http.StatusOK, NewsResponse{
		Articles:  result.Articles,
		Cached:    result.Cached,
		FetchedAt: result.FetchedAt,
		ExpiresAt: result.ExpiresAt,
	})
}
