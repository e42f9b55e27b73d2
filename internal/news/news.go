// Package news aggregates engineering articles from dev.to, Hacker News, and
// a curated list into a single, deduplicated, time-bounded cached feed.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/devfolio/apiserver/types"
)

const (
	defaultCacheMinutes = 30
	minCacheTTL         = 5 * time.Minute
	maxArticles         = 18
	devtoPerPage        = 6
	fetchTimeout        = 10 * time.Second

	userAgent = "PortfolioNewsBot/1.0"
)

var devtoTags = []string{"devops", "cloud", "sre", "kubernetes", "aws", "azure", "gcp"}

// Result is an aggregation snapshot.
type Result struct {
	Articles  []types.Article
	Cached    bool
	FetchedAt time.Time
	ExpiresAt time.Time
}

// Service fetches and caches the aggregated feed. The cache is owned here,
// not module-level state, and expiry is driven by the injected clock so it
// is testable.
type Service struct {
	client       *http.Client
	devtoBaseURL string
	hnBaseURL    string
	curated      []types.Article
	ttl          time.Duration
	now          func() time.Time

	mu        sync.Mutex
	cached    []types.Article
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a news service. The cache TTL comes from config with a
// five-minute floor.
func NewService(cfg config.NewsConfig) *Service {
	minutes := cfg.CacheMinutes
	if minutes <= 0 {
		minutes = defaultCacheMinutes
	}
	ttl := time.Duration(minutes) * time.Minute
	if ttl < minCacheTTL {
		ttl = minCacheTTL
	}

	return &Service{
		client:       &http.Client{Timeout: fetchTimeout},
		devtoBaseURL: "https://dev.to/api",
		hnBaseURL:    "https://hn.algolia.com/api/v1",
		curated:      curatedArticles(),
		ttl:          ttl,
		now:          time.Now,
	}
}

// GetDaily returns the cached feed when fresh, otherwise refreshes it.
// Source failures degrade: whatever could be fetched (plus the curated set)
// is still served and cached.
func (s *Service) GetDaily(ctx context.Context) Result {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cached) > 0 && s.expiresAt.After(now) {
		return Result{Articles: s.cached, Cached: true, FetchedAt: s.fetchedAt, ExpiresAt: s.expiresAt}
	}

	var devto, hn []types.Article
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		devto = s.fetchDevto(ctx)
	}()
	go func() {
		defer wg.Done()
		hn = s.fetchHackerNews(ctx)
	}()
	wg.Wait()

	combined := make([]types.Article, 0, len(s.curated)+len(devto)+len(hn))
	combined = append(combined, s.curated...)
	combined = append(combined, devto...)
	combined = append(combined, hn...)

	articles := dedupe(combined)
	sortByPublished(articles)
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}

	s.cached = articles
	s.fetchedAt = now
	s.expiresAt = now.Add(s.ttl)

	return Result{Articles: articles, Cached: false, FetchedAt: now, ExpiresAt: s.expiresAt}
}

type devtoArticle struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Description string   `json:"description"`
	TagList     tagList  `json:"tag_list"`
	User        struct {
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
}

// tagList tolerates the dev.to API returning tags as either an array or a
// comma-separated string.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	for _, tag := range strings.Split(joined, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			*t = append(*t, tag)
		}
	}
	return nil
}

func (s *Service) fetchDevto(ctx context.Context) []types.Article {
	articles := make([]types.Article, 0, len(devtoTags)*devtoPerPage)
	for _, tag := range devtoTags {
		endpoint := fmt.Sprintf("%s/articles?per_page=%d&tag=%s", s.devtoBaseURL, devtoPerPage, url.QueryEscape(tag))

		var items []devtoArticle
		if err := s.fetchJSON(ctx, endpoint, &items); err != nil {
			slog.Warn("dev.to fetch failed", "tag", tag, "error", err)
			continue
		}

		for _, item := range items {
			author := item.User.Name
			if author == "" {
				author = item.User.Username
			}
			articles = append(articles, types.Article{
				ID:          fmt.Sprintf("devto-%d", item.ID),
				Title:       item.Title,
				URL:         item.URL,
				PublishedAt: parseTime(item.PublishedAt),
				Excerpt:     item.Description,
				Source:      types.NewsSource{Name: "DEV Community", URL: "https://dev.to"},
				Author:      author,
				Tags:        item.TagList,
			})
		}
	}
	return articles
}

type hnResponse struct {
	Hits []struct {
		ObjectID  string `json:"objectID"`
		Title     string `json:"title"`
		URL       string `json:"url"`
		StoryText string `json:"story_text"`
		CreatedAt string `json:"created_at"`
		Author    string `json:"author"`
	} `json:"hits"`
}

func (s *Service) fetchHackerNews(ctx context.Context) []types.Article {
	endpoint := fmt.Sprintf(
		"%s/search_by_date?query=%s&tags=story&hitsPerPage=%d",
		s.hnBaseURL,
		url.QueryEscape("devops cloud kubernetes aws azure"),
		maxArticles,
	)

	var resp hnResponse
	if err := s.fetchJSON(ctx, endpoint, &resp); err != nil {
		slog.Warn("hacker news fetch failed", "error", err)
		return nil
	}

	articles := make([]types.Article, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		articleURL := hit.URL
		if articleURL == "" {
			articleURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}
		articles = append(articles, types.Article{
			ID:          "hn-" + hit.ObjectID,
			Title:       hit.Title,
			URL:         articleURL,
			PublishedAt: parseTime(hit.CreatedAt),
			Excerpt:     hit.StoryText,
			Source:      types.NewsSource{Name: "Hacker News", URL: "https://news.ycombinator.com"},
			Author:      hit.Author,
			Tags:        []string{"hacker-news"},
		})
	}
	return articles
}

func (s *Service) fetchJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// dedupe collapses articles sharing a URL (case-insensitive), keeping the
// most recently published one.
func dedupe(articles []types.Article) []types.Article {
	byURL := make(map[string]types.Article, len(articles))
	order := make([]string, 0, len(articles))
	for _, article := range articles {
		if article.URL == "" {
			continue
		}
		key := strings.ToLower(article.URL)
		existing, ok := byURL[key]
		if !ok {
			byURL[key] = article
			order = append(order, key)
			continue
		}
		if article.PublishedAt.After(existing.PublishedAt) {
			byURL[key] = article
		}
	}

	result := make([]types.Article, 0, len(order))
	for _, key := range order {
		result = append(result, byURL[key])
	}
	return result
}

func sortByPublished(articles []types.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func curatedArticles() []types.Article {
	return []types.Article{
		{
			ID:          "curated-finops-unit-economics",
			Title:       "Designing Cloud Unit Economics That Engineers Understand",
			URL:         "https://www.finops.org/insights/designing-cloud-unit-economics/",
			PublishedAt: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
			Excerpt:     "FinOps Foundation guidance on building shared language and dashboards that connect product velocity to cloud cost.",
			Source:      types.NewsSource{Name: "FinOps Foundation", URL: "https://www.finops.org"},
			Tags:        []string{"finops", "cloud-cost"},
		},
		{
			ID:          "curated-aws-observability-2024",
			Title:       "Raising the Observability Bar for Multi-account AWS Platforms",
			URL:         "https://aws.amazon.com/blogs/mt/raising-the-observability-bar-for-multi-account-aws/",
			PublishedAt: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC),
			Excerpt:     "AWS guidance for implementing end-to-end tracing, metrics, and log strategy across centralized and workload accounts.",
			Source:      types.NewsSource{Name: "AWS Architecture Blog", URL: "https://aws.amazon.com/blogs/architecture/"},
			Author:      "AWS Partner Solutions Architects",
			Tags:        []string{"aws", "observability", "devops"},
		},
		{
			ID:          "curated-cncf-platform-engineering",
			Title:       "Platform Engineering Maturity: Lessons from the CNCF Landscape",
			URL:         "https://www.cncf.io/blog/2024/03/28/platform-engineering-maturity-lessons-from-the-cncf-landscape/",
			PublishedAt: time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC),
			Excerpt:     "CNCF community insights on building internal platforms, golden paths, and developer experience at scale.",
			Source:      types.NewsSource{Name: "CNCF Blog", URL: "https://www.cncf.io/blog/"},
			Author:      "CNCF Platforms Working Group",
			Tags:        []string{"platform-engineering", "cloud-native"},
		},
	}
}
