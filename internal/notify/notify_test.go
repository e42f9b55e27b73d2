package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/types"
)

// fakeBroker records published messages and replays them to a subscriber.
type fakeBroker struct {
	channel  string
	messages []mq.Message
	nacked   []string
}

func (f *fakeBroker) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.channel = channel
	id := fmt.Sprintf("msg-%d", len(f.messages)+1)
	f.messages = append(f.messages, mq.Message{ID: id, Data: data, Attributes: attrs})
	return id, nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	f.channel = channel
	for _, msg := range f.messages {
		if err := handler(ctx, msg); err != nil {
			f.nacked = append(f.nacked, msg.ID)
		}
	}
	return nil
}

func (f *fakeBroker) Close() error { return nil }

type capturingDeliverer struct {
	resetEmail  string
	resetSecret string
	contacts    []types.ContactMessage
	fail        error
}

func (d *capturingDeliverer) DeliverPasswordReset(_ context.Context, email, secret string) error {
	if d.fail != nil {
		return d.fail
	}
	d.resetEmail = email
	d.resetSecret = secret
	return nil
}

func (d *capturingDeliverer) DeliverContactMessage(_ context.Context, msg types.ContactMessage) error {
	if d.fail != nil {
		return d.fail
	}
	d.contacts = append(d.contacts, msg)
	return nil
}

func TestPublishedEventsReachDeliverer(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	m := mq.New(broker)

	publisher := NewPublisher(m)
	if err := publisher.PasswordReset(ctx, "kim@example.com", "s3cret"); err != nil {
		t.Fatalf("PasswordReset: %v", err)
	}
	contact := types.ContactMessage{Name: "Kim", Email: "kim@example.com", Message: "hello there"}
	if err := publisher.ContactMessage(ctx, contact); err != nil {
		t.Fatalf("ContactMessage: %v", err)
	}
	if broker.channel != Channel {
		t.Fatalf("published to %q, want %q", broker.channel, Channel)
	}
	if got := broker.messages[0].Attributes["kind"]; got != KindPasswordReset {
		t.Errorf("kind attribute = %q, want %q", got, KindPasswordReset)
	}

	deliverer := &capturingDeliverer{}
	if err := NewConsumer(m, deliverer).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if deliverer.resetEmail != "kim@example.com" || deliverer.resetSecret != "s3cret" {
		t.Errorf("reset delivery = (%q, %q)", deliverer.resetEmail, deliverer.resetSecret)
	}
	if len(deliverer.contacts) != 1 {
		t.Fatalf("contact deliveries = %d, want 1", len(deliverer.contacts))
	}
	if deliverer.contacts[0] != contact {
		t.Errorf("contact delivery = %+v, want %+v", deliverer.contacts[0], contact)
	}
	if len(broker.nacked) != 0 {
		t.Errorf("nacked = %v, want none", broker.nacked)
	}
}

func TestConsumerDropsBadMessages(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{
		messages: []mq.Message{
			{ID: "bad-json", Data: []byte("not json")},
			{ID: "unknown-kind", Data: []byte(`{"kind":"user.sneezed","payload":{}}`)},
			{ID: "bad-payload", Data: []byte(`{"kind":"auth.password_reset","payload":"nope"}`)},
		},
	}

	deliverer := &capturingDeliverer{}
	if err := NewConsumer(mq.New(broker), deliverer).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if deliverer.resetEmail != "" || len(deliverer.contacts) != 0 {
		t.Error("bad messages reached the deliverer")
	}
	if len(broker.nacked) != 0 {
		t.Errorf("nacked = %v, want none (bad messages are dropped, not redelivered)", broker.nacked)
	}
}

func TestConsumerNacksFailedDelivery(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	m := mq.New(broker)
	if err := NewPublisher(m).PasswordReset(ctx, "kim@example.com", "s3cret"); err != nil {
		t.Fatalf("PasswordReset: %v", err)
	}

	deliverer := &capturingDeliverer{fail: errors.New("smtp down")}
	if err := NewConsumer(m, deliverer).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(broker.nacked) != 1 {
		t.Fatalf("nacked = %v, want the failed delivery", broker.nacked)
	}
}
