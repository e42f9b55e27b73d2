package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/devfolio/apiserver/types"
)

// PostRepository handles persistence for blog posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postCols = `
	p.id, p.title, p.slug, p.content, p.excerpt, p.cover_image, p.published, p.tags,
	p.author_id, p.created_at, p.updated_at,
	u.id, u.email, u.username, u.full_name, u.avatar_url, u.role, u.created_at, u.updated_at`

func scanPost(scanner interface{ Scan(...any) error }) (types.Post, error) {
	var post types.Post
	var author types.User
	var tagsJSON []byte
	err := scanner.Scan(
		&post.ID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Excerpt,
		&post.CoverImage,
		&post.Published,
		&tagsJSON,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
		&author.ID,
		&author.Email,
		&author.Username,
		&author.FullName,
		&author.AvatarURL,
		&author.Role,
		&author.CreatedAt,
		&author.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}

	post.Tags = []string{}
	_ = json.Unmarshal(tagsJSON, &post.Tags)
	post.Author = &author
	return post, nil
}

// List returns posts newest first. When publishedOnly is true, drafts are
// excluded.
func (r *PostRepository) List(ctx context.Context, publishedOnly bool) ([]types.Post, error) {
	query := `
		SELECT ` + postCols + `
		FROM posts p
		JOIN users u ON u.id = p.author_id`
	if publishedOnly {
		query += `
		WHERE p.published`
	}
	query += `
		ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *PostRepository) GetBySlug(ctx context.Context, slug string) (types.Post, error) {
	const query = `
		SELECT ` + postCols + `
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.slug = $1`
	return scanPost(r.db.QueryRowContext(ctx, query, slug))
}

// SlugExists reports whether any post other than excludeID already uses the
// slug. Pass excludeID = 0 for creates.
func (r *PostRepository) SlugExists(ctx context.Context, slug string, excludeID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return types.Post{}, err
	}

	const query = `
		INSERT INTO posts (title, slug, content, excerpt, cover_image, published, tags, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.CoverImage,
		post.Published,
		tagsJSON,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, translateUnique(err)
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now()

	tagsJSON, err := json.Marshal(post.Tags)
	if err != nil {
		return types.Post{}, err
	}

	const query = `
		UPDATE posts
		SET title = $1,
			slug = $2,
			content = $3,
			excerpt = $4,
			cover_image = $5,
			published = $6,
			tags = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.CoverImage,
		post.Published,
		tagsJSON,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return types.Post{}, translateUnique(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return post, nil
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
