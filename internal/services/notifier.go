package services

import (
	"context"

	"github.com/devfolio/apiserver/types"
)

// Notifier delivers out-of-band notifications. Password-reset secrets and
// contact messages leave the process through this interface only.
type Notifier interface {
	PasswordReset(ctx context.Context, email, secret string) error
	ContactMessage(ctx context.Context, msg types.ContactMessage) error
}
