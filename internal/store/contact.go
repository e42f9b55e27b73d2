package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/devfolio/apiserver/types"
)

// ContactRepository handles persistence for contact messages.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error) {
	msg.CreatedAt = time.Now()

	const query = `
		INSERT INTO contact_messages (name, email, message, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		msg.Name,
		msg.Email,
		msg.Message,
		msg.CreatedAt,
	).Scan(&msg.ID); err != nil {
		return types.ContactMessage{}, err
	}
	return msg, nil
}
