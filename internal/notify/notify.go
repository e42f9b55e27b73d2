// Package notify publishes out-of-band notification events to the message
// broker. Password-reset secrets and contact messages leave the process only
// through these events; a delivery worker (mailer) consumes them elsewhere.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devfolio/apiserver/internal/mq"
	"github.com/devfolio/apiserver/types"
)

// Channel is the broker channel all notification events are published to.
const Channel = "portfolio.notifications"

// Event kinds.
const (
	KindPasswordReset  = "auth.password_reset"
	KindContactMessage = "contact.message.received"
)

type event struct {
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
	Payload   any       `json:"payload"`
}

type passwordResetPayload struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
}

// Publisher implements services.Notifier on top of the MQ wrapper.
type Publisher struct {
	mq *mq.MQ
}

func NewPublisher(m *mq.MQ) *Publisher {
	return &Publisher{mq: m}
}

// PasswordReset publishes the raw reset secret for out-of-band delivery.
// The secret is never returned to the HTTP caller.
func (p *Publisher) PasswordReset(ctx context.Context, email, secret string) error {
	return p.publish(ctx, KindPasswordReset, passwordResetPayload{Email: email, Secret: secret})
}

// ContactMessage publishes a received contact-form message.
func (p *Publisher) ContactMessage(ctx context.Context, msg types.ContactMessage) error {
	return p.publish(ctx, KindContactMessage, msg)
}

func (p *Publisher) publish(ctx context.Context, kind string, payload any) error {
	data, err := json.Marshal(event{
		Kind:      kind,
		CreatedAt: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		return err
	}
	_, err = p.mq.Publish(ctx, Channel, data, map[string]string{"kind": kind})
	return err
}
