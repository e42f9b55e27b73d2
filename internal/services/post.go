package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/devfolio/apiserver/types"
)

// PostRepository defines persistence operations for blog posts.
type PostRepository interface {
	List(ctx context.Context, publishedOnly bool) ([]types.Post, error)
	GetBySlug(ctx context.Context, slug string) (types.Post, error)
	SlugExists(ctx context.Context, slug string, excludeID int) (bool, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id int) error
}

// PostService encapsulates blog use-cases.
type PostService struct {
	repo PostRepository
}

func NewPostService(repo PostRepository) *PostService {
	return &PostService{repo: repo}
}

func (s *PostService) List(ctx context.Context, includeDrafts bool) ([]types.Post, error) {
	return s.repo.List(ctx, !includeDrafts)
}

func (s *PostService) Get(ctx context.Context, slug string) (types.Post, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// Create derives the slug from the requested slug or the title and makes it
// unique before inserting.
func (s *PostService) Create(ctx context.Context, post types.Post, requestedSlug string) (types.Post, error) {
	base := Slugify(requestedSlug)
	if base == "" {
		base = Slugify(post.Title)
	}

	slug, err := s.uniqueSlug(ctx, base, 0)
	if err != nil {
		return types.Post{}, err
	}
	post.Slug = slug

	return s.repo.Create(ctx, post)
}

// Update saves the post. A non-empty requestedSlug different from the current
// slug is re-derived and made unique, excluding the post itself.
func (s *PostService) Update(ctx context.Context, post types.Post, requestedSlug string) (types.Post, error) {
	if requestedSlug != "" && Slugify(requestedSlug) != post.Slug {
		slug, err := s.uniqueSlug(ctx, Slugify(requestedSlug), post.ID)
		if err != nil {
			return types.Post{}, err
		}
		post.Slug = slug
	}
	return s.repo.Update(ctx, post)
}

func (s *PostService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// uniqueSlug appends -1, -2, ... until the slug collides with nothing but
// the excluded post.
func (s *PostService) uniqueSlug(ctx context.Context, base string, excludeID int) (string, error) {
	if base == "" {
		base = "post"
	}

	slug := base
	for counter := 1; ; counter++ {
		exists, err := s.repo.SlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, counter)
	}
}

// Slugify lowercases the input and reduces it to hyphen-separated
// alphanumeric runs.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
