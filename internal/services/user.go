package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	resetTokenBytes = 32
	resetTokenTTL   = 30 * time.Minute
)

// ErrInvalidCredentials is the single failure for unknown email, wrong
// password, and non-admin role on the admin path. Callers must not
// distinguish these cases to the client.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrResetTokenInvalid covers missing, expired, and already-consumed reset
// tokens alike.
var ErrResetTokenInvalid = errors.New("reset token invalid or expired")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context, search string) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
}

// ResetTokenRepository defines persistence operations for reset tokens.
type ResetTokenRepository interface {
	Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error)
	Consume(ctx context.Context, tokenHash string) (int, error)
}

// UserService encapsulates account and credential use-cases.
type UserService struct {
	users    UserRepository
	resets   ResetTokenRepository
	notifier Notifier
}

func NewUserService(users UserRepository, resets ResetTokenRepository, notifier Notifier) *UserService {
	return &UserService{users: users, resets: resets, notifier: notifier}
}

// Register creates an account with the default role. The email is stored
// lowercased; a duplicate reports store.ErrConflict.
func (s *UserService) Register(ctx context.Context, email, password, username string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	return s.users.Create(ctx, types.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Username:     strings.TrimSpace(username),
		Role:         types.RoleUser,
		PasswordHash: string(hashed),
	})
}

// Authenticate validates credentials against the stored bcrypt hash. Both
// unknown email and wrong password return ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateAdmin additionally requires the admin role. A valid password
// on a non-admin account still reports ErrInvalidCredentials so the admin
// login does not reveal which accounts exist.
func (s *UserService) AuthenticateAdmin(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return types.User{}, err
	}
	if user.Role != types.RoleAdmin {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, search string) ([]types.User, error) {
	return s.users.List(ctx, search)
}

// ProfileUpdate carries optional profile fields; nil leaves a field as is.
type ProfileUpdate struct {
	Username  *string
	FullName  *string
	AvatarURL *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}

	return s.users.Update(ctx, user)
}

// AdminUpdate carries the fields an admin may patch on any account.
type AdminUpdate struct {
	ProfileUpdate
	Role     *types.Role
	Password *string
}

func (s *UserService) AdminUpdateUser(ctx context.Context, id int, update AdminUpdate) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	if update.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = string(hashed)
	}

	return s.users.Update(ctx, user)
}

// RequestPasswordReset starts the two-phase reset flow. When the email
// matches an account, any outstanding tokens are invalidated and a fresh
// secret is issued with a 30-minute expiry; only its SHA-256 hash is stored.
// The secret is handed to the notifier for out-of-band delivery. When the
// email matches nothing the call succeeds silently, so the response is
// identical either way.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	secret, hash, err := newResetSecret()
	if err != nil {
		return err
	}

	_, err = s.resets.Create(ctx, types.ResetToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	})
	if err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.PasswordReset(ctx, user.Email, secret); err != nil {
			slog.Error("password reset notification failed", "error", err)
		}
		return nil
	}

	// Dev fallback when no notifier is configured.
	slog.Info("password reset token issued", "email", user.Email, "token", secret)
	return nil
}

// ResetPassword consumes a reset secret and overwrites the owner's password.
// The find-and-mark-consumed step is a single conditional update in the
// store, so the same secret cannot be consumed twice under concurrency.
func (s *UserService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	userID, err := s.resets.Consume(ctx, hashResetSecret(secret))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, string(hashed))
}

func newResetSecret() (secret, hash string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret = hex.EncodeToString(buf)
	return secret, hashResetSecret(secret), nil
}

func hashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
