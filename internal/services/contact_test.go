package services

import (
	"context"
	"errors"
	"testing"

	"github.com/devfolio/apiserver/types"
)

type fakeContactRepo struct {
	created []types.ContactMessage
	err     error
}

func (f *fakeContactRepo) Create(_ context.Context, msg types.ContactMessage) (types.ContactMessage, error) {
	if f.err != nil {
		return types.ContactMessage{}, f.err
	}
	msg.ID = len(f.created) + 1
	f.created = append(f.created, msg)
	return msg, nil
}

type failingNotifier struct{}

func (failingNotifier) PasswordReset(context.Context, string, string) error {
	return errors.New("broker down")
}

func (failingNotifier) ContactMessage(context.Context, types.ContactMessage) error {
	return errors.New("broker down")
}

func TestContactCreateNotifies(t *testing.T) {
	repo := &fakeContactRepo{}
	notifier := &fakeNotifier{}
	svc := NewContactService(repo, notifier)

	msg := types.ContactMessage{Name: "Bob", Email: "bob@x.com", Message: "Hello there"}
	created, err := svc.Create(context.Background(), msg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Error("created message has no id")
	}
	if len(notifier.contacts) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.contacts))
	}
	if notifier.contacts[0].Email != "bob@x.com" {
		t.Errorf("notified email = %q", notifier.contacts[0].Email)
	}
}

func TestContactCreateSurvivesNotifierFailure(t *testing.T) {
	repo := &fakeContactRepo{}
	svc := NewContactService(repo, failingNotifier{})

	msg := types.ContactMessage{Name: "Bob", Email: "bob@x.com", Message: "Hello there"}
	if _, err := svc.Create(context.Background(), msg); err != nil {
		t.Fatalf("Create should not fail on notifier error: %v", err)
	}
	if len(repo.created) != 1 {
		t.Errorf("stored = %d, want 1", len(repo.created))
	}
}

func TestContactCreateRepoError(t *testing.T) {
	repo := &fakeContactRepo{err: errors.New("db down")}
	svc := NewContactService(repo, &fakeNotifier{})

	if _, err := svc.Create(context.Background(), types.ContactMessage{}); err == nil {
		t.Error("expected error from repository")
	}
}
