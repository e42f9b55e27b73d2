package types

import "time"

// Post represents a blog post authored by a user.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the post headline.
	Title string `json:"title" db:"title"`

	// Slug is the URL-safe identifier of the post. Globally unique.
	Slug string `json:"slug" db:"slug"`

	// Content is the post body.
	Content string `json:"content" db:"content"`

	// Excerpt is an optional short summary shown in listings.
	Excerpt string `json:"excerpt,omitempty" db:"excerpt"`

	// CoverImage is an optional URL of the post's cover image.
	CoverImage string `json:"coverImage,omitempty" db:"cover_image"`

	// Published controls whether the post is publicly listed.
	Published bool `json:"published" db:"published"`

	// Tags are free-form labels attached to the post.
	Tags []string `json:"tags" db:"tags"`

	// AuthorID identifies the user who wrote the post.
	AuthorID int `json:"authorId" db:"author_id"`

	// Author is the sanitized author record, populated on reads.
	Author *User `json:"author,omitempty" db:"-"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
