package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/types"
)

// Deliverer turns notification events into user-facing delivery. The worker
// command runs a LogDeliverer; a real mailer implements the same interface.
type Deliverer interface {
	DeliverPasswordReset(ctx context.Context, email, secret string) error
	DeliverContactMessage(ctx context.Context, msg types.ContactMessage) error
}

// Consumer subscribes to the notification channel and dispatches events to
// a Deliverer.
type Consumer struct {
	mq        *mq.MQ
	deliverer Deliverer
}

func NewConsumer(m *mq.MQ, deliverer Deliverer) *Consumer {
	return &Consumer{mq: m, deliverer: deliverer}
}

// Run consumes notification events until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.mq.Subscribe(ctx, Channel, c.handle)
}

type envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// handle dispatches one event. Undecodable and unknown events are dropped
// with a warning instead of nacked, which would redeliver them forever.
// Delivery errors propagate so the broker retries.
func (c *Consumer) handle(ctx context.Context, msg mq.Message) error {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		slog.Warn("dropping undecodable notification", "id", msg.ID, "error", err)
		return nil
	}

	switch env.Kind {
	case KindPasswordReset:
		var payload passwordResetPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			slog.Warn("dropping malformed password reset event", "id", msg.ID, "error", err)
			return nil
		}
		return c.deliverer.DeliverPasswordReset(ctx, payload.Email, payload.Secret)
	case KindContactMessage:
		var payload types.ContactMessage
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			slog.Warn("dropping malformed contact event", "id", msg.ID, "error", err)
			return nil
		}
		return c.deliverer.DeliverContactMessage(ctx, payload)
	default:
		slog.Warn("dropping notification of unknown kind", "id", msg.ID, "kind", env.Kind)
		return nil
	}
}

// LogDeliverer writes deliveries to the log, standing in for a mailer in
// development. The reset secret only appears at debug level.
type LogDeliverer struct{}

func (LogDeliverer) DeliverPasswordReset(_ context.Context, email, secret string) error {
	slog.Info("delivering password reset instructions", "email", email)
	slog.Debug("password reset secret", "email", email, "secret", secret)
	return nil
}

func (LogDeliverer) DeliverContactMessage(_ context.Context, msg types.ContactMessage) error {
	slog.Info("contact message received", "from", msg.Email, "name", msg.Name)
	return nil
}
