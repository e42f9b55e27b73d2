package services

import (
	"context"
	"log/slog"

	"github.com/devfolio/apiserver/types"
)

// ContactRepository defines persistence operations for contact messages.
type ContactRepository interface {
	Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error)
}

// ContactService stores contact messages and fans them out as notification
// events.
type ContactService struct {
	repo     ContactRepository
	notifier Notifier
}

func NewContactService(repo ContactRepository, notifier Notifier) *ContactService {
	return &ContactService{repo: repo, notifier: notifier}
}

// Create persists the message. Notification delivery is best-effort: a
// broker outage must not fail the submission.
func (s *ContactService) Create(ctx context.Context, msg types.ContactMessage) (types.ContactMessage, error) {
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return types.ContactMessage{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.ContactMessage(ctx, created); err != nil {
			slog.Error("contact notification failed", "error", err, "message_id", created.ID)
		}
	}
	return created, nil
}
