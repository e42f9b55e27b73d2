package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) List(_ context.Context, search string) ([]types.User, error) {
	var out []types.User
	for _, user := range f.users {
		if search == "" || strings.Contains(user.Email, strings.ToLower(search)) {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	user, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	f.users[id] = user
	return nil
}

type fakeResetRepo struct {
	tokens map[string]types.ResetToken
	now    func() time.Time
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]types.ResetToken{}, now: time.Now}
}

func (f *fakeResetRepo) Create(_ context.Context, token types.ResetToken) (types.ResetToken, error) {
	for hash, existing := range f.tokens {
		if existing.UserID == token.UserID {
			delete(f.tokens, hash)
		}
	}
	f.tokens[token.TokenHash] = token
	return token, nil
}

func (f *fakeResetRepo) Consume(_ context.Context, tokenHash string) (int, error) {
	token, ok := f.tokens[tokenHash]
	if !ok || token.Consumed || !token.ExpiresAt.After(f.now()) {
		return 0, store.ErrNotFound
	}
	token.Consumed = true
	f.tokens[tokenHash] = token
	return token.UserID, nil
}

type fakeNotifier struct {
	resetEmail  string
	resetSecret string
	contacts    []types.ContactMessage
}

func (f *fakeNotifier) PasswordReset(_ context.Context, email, secret string) error {
	f.resetEmail = email
	f.resetSecret = secret
	return nil
}

func (f *fakeNotifier) ContactMessage(_ context.Context, msg types.ContactMessage) error {
	f.contacts = append(f.contacts, msg)
	return nil
}

func userFixture(t *testing.T) (*UserService, *fakeUserRepo, *fakeResetRepo, *fakeNotifier) {
	t.Helper()
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	notifier := &fakeNotifier{}
	return NewUserService(users, resets, notifier), users, resets, notifier
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _, _, _ := userFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.COM", "hunter22", "alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.Role != types.RoleUser {
		t.Errorf("role = %q, want %q", user.Role, types.RoleUser)
	}
	if user.PasswordHash == "hunter22" {
		t.Error("password stored in plain text")
	}

	got, err := svc.Authenticate(ctx, "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, user.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := userFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "hunter22", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "A@B.com", "hunter22", ""); err != store.ErrConflict {
		t.Errorf("duplicate register err = %v, want %v", err, store.ErrConflict)
	}
}

func TestAuthenticateFailureParity(t *testing.T) {
	svc, _, _, _ := userFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "hunter22", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown email and wrong password must be the same error.
	_, errUnknown := svc.Authenticate(ctx, "missing@b.com", "hunter22")
	_, errWrong := svc.Authenticate(ctx, "a@b.com", "wrong-password")

	if errUnknown != ErrInvalidCredentials {
		t.Errorf("unknown email err = %v, want %v", errUnknown, ErrInvalidCredentials)
	}
	if errWrong != ErrInvalidCredentials {
		t.Errorf("wrong password err = %v, want %v", errWrong, ErrInvalidCredentials)
	}
}

func TestAuthenticateAdminRejectsUserRole(t *testing.T) {
	svc, users, _, _ := userFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.AuthenticateAdmin(ctx, "a@b.com", "hunter22"); err != ErrInvalidCredentials {
		t.Errorf("non-admin login err = %v, want %v", err, ErrInvalidCredentials)
	}

	user.Role = types.RoleAdmin
	users.users[user.ID] = user
	if _, err := svc.AuthenticateAdmin(ctx, "a@b.com", "hunter22"); err != nil {
		t.Errorf("admin login err = %v", err)
	}
}

func TestAdminUpdateUser(t *testing.T) {
	svc, _, _, _ := userFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	role := types.RoleAdmin
	name := "Alice A"
	password := "new-password"
	updated, err := svc.AdminUpdateUser(ctx, user.ID, AdminUpdate{
		ProfileUpdate: ProfileUpdate{FullName: &name},
		Role:          &role,
		Password:      &password,
	})
	if err != nil {
		t.Fatalf("AdminUpdateUser: %v", err)
	}
	if updated.Role != types.RoleAdmin {
		t.Errorf("role = %q, want admin", updated.Role)
	}
	if updated.FullName != "Alice A" {
		t.Errorf("fullName = %q", updated.FullName)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(password)); err != nil {
		t.Error("password override not applied")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, _, notifier := userFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "hunter22", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if notifier.resetEmail != "a@b.com" || notifier.resetSecret == "" {
		t.Fatal("reset secret not handed to notifier")
	}

	if err := svc.ResetPassword(ctx, notifier.resetSecret, "fresh-password"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "a@b.com", "hunter22"); err != ErrInvalidCredentials {
		t.Error("old password still accepted")
	}
	got, err := svc.Authenticate(ctx, "a@b.com", "fresh-password")
	if err != nil {
		t.Fatalf("Authenticate with new password: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("authenticated id = %d, want %d", got.ID, user.ID)
	}
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	svc, _, resets, notifier := userFixture(t)

	if err := svc.RequestPasswordReset(context.Background(), "missing@b.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if notifier.resetSecret != "" {
		t.Error("notifier called for unknown email")
	}
	if len(resets.tokens) != 0 {
		t.Error("token stored for unknown email")
	}
}

func TestResetTokenSingleUse(t *testing.T) {
	svc, _, _, notifier := userFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "hunter22", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	secret := notifier.resetSecret
	if err := svc.ResetPassword(ctx, secret, "first-new-pass"); err != nil {
		t.Fatalf("first ResetPassword: %v", err)
	}
	if err := svc.ResetPassword(ctx, secret, "second-new-pass"); err != ErrResetTokenInvalid {
		t.Errorf("second consume err = %v, want %v", err, ErrResetTokenInvalid)
	}
}

func TestResetTokenNewestWins(t *testing.T) {
	svc, _, _, notifier := userFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "hunter22", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := notifier.resetSecret

	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := notifier.resetSecret

	if first == second {
		t.Fatal("expected distinct secrets")
	}
	if err := svc.ResetPassword(ctx, first, "new-password"); err != ErrResetTokenInvalid {
		t.Errorf("stale secret err = %v, want %v", err, ErrResetTokenInvalid)
	}
	if err := svc.ResetPassword(ctx, second, "new-password"); err != nil {
		t.Errorf("fresh secret err = %v", err)
	}
}

func TestResetTokenExpired(t *testing.T) {
	svc, _, resets, notifier := userFixture(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@b.com", "hunter22", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.RequestPasswordReset(ctx, "a@b.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	resets.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	if err := svc.ResetPassword(ctx, notifier.resetSecret, "new-password"); err != ErrResetTokenInvalid {
		t.Errorf("expired secret err = %v, want %v", err, ErrResetTokenInvalid)
	}
}

func TestInvalidResetSecret(t *testing.T) {
	svc, _, _, _ := userFixture(t)

	if err := svc.ResetPassword(context.Background(), "never-issued", "new-password"); err != ErrResetTokenInvalid {
		t.Errorf("err = %v, want %v", err, ErrResetTokenInvalid)
	}
}
