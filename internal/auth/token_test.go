package auth

import (
	"testing"
	"time"

	"github.com/devfolio/apiserver/config"
)

func testIssuer() *Issuer {
	return NewIssuer(config.AuthConfig{
		JWTSecret:      "user-secret",
		AdminJWTSecret: "admin-secret",
		TokenTTL:       time.Hour,
		AdminTokenTTL:  time.Hour,
	})
}

func TestIssueUserRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueUser(42)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}

	id, err := ParseSubject(token, issuer.UserSecret(), "")
	if err != nil {
		t.Fatalf("ParseSubject: %v", err)
	}
	if id != 42 {
		t.Errorf("subject = %d, want 42", id)
	}
}

func TestIssueAdminRoundTrip(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueAdmin(7)
	if err != nil {
		t.Fatalf("IssueAdmin: %v", err)
	}

	id, err := ParseSubject(token, issuer.AdminSecret(), ScopeAdmin)
	if err != nil {
		t.Fatalf("ParseSubject: %v", err)
	}
	if id != 7 {
		t.Errorf("subject = %d, want 7", id)
	}
}

func TestParseSubjectWrongSecret(t *testing.T) {
	issuer := testIssuer()

	token, err := issuer.IssueUser(1)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}

	if _, err := ParseSubject(token, []byte("other-secret"), ""); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseSubjectCrossAudience(t *testing.T) {
	issuer := testIssuer()

	// A user token must not verify against the admin secret and vice versa.
	userToken, err := issuer.IssueUser(1)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}
	if _, err := ParseSubject(userToken, issuer.AdminSecret(), ScopeAdmin); err == nil {
		t.Error("user token accepted as admin token")
	}

	adminToken, err := issuer.IssueAdmin(1)
	if err != nil {
		t.Fatalf("IssueAdmin: %v", err)
	}
	if _, err := ParseSubject(adminToken, issuer.UserSecret(), ""); err == nil {
		t.Error("admin token accepted as user token")
	}
}

func TestParseSubjectMissingScope(t *testing.T) {
	issuer := NewIssuer(config.AuthConfig{
		JWTSecret:      "shared",
		AdminJWTSecret: "shared",
		TokenTTL:       time.Hour,
		AdminTokenTTL:  time.Hour,
	})

	// With a shared secret the signature verifies, so only the scope claim
	// separates the audiences.
	userToken, err := issuer.IssueUser(1)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}
	if _, err := ParseSubject(userToken, issuer.AdminSecret(), ScopeAdmin); err == nil {
		t.Error("unscoped token accepted where admin scope is required")
	}
}

func TestParseSubjectExpired(t *testing.T) {
	issuer := NewIssuer(config.AuthConfig{
		JWTSecret:      "user-secret",
		AdminJWTSecret: "admin-secret",
		TokenTTL:       -time.Minute,
		AdminTokenTTL:  time.Hour,
	})

	token, err := issuer.IssueUser(1)
	if err != nil {
		t.Fatalf("IssueUser: %v", err)
	}
	if _, err := ParseSubject(token, issuer.UserSecret(), ""); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseSubjectGarbage(t *testing.T) {
	if _, err := ParseSubject("not-a-token", []byte("secret"), ""); err == nil {
		t.Error("expected error for malformed token")
	}
}
