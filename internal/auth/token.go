package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/devfolio/apiserver/config"
	"github.com/golang-jwt/jwt/v5"
)

// ScopeAdmin is the scope claim carried by admin session tokens.
const ScopeAdmin = "admin"

// Claims is the token payload: registered claims plus an optional scope
// marker restricting what the token authorizes.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Issuer creates signed session tokens for the two audiences. User and admin
// tokens are signed with distinct secrets and lifetimes.
type Issuer struct {
	userSecret  []byte
	adminSecret []byte
	userTTL     time.Duration
	adminTTL    time.Duration
}

func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{
		userSecret:  []byte(cfg.JWTSecret),
		adminSecret: []byte(cfg.AdminJWTSecret),
		userTTL:     cfg.TokenTTL,
		adminTTL:    cfg.AdminTokenTTL,
	}
}

// IssueUser signs a general-purpose session token for the given subject.
func (i *Issuer) IssueUser(userID int) (string, error) {
	return sign(userID, "", i.userSecret, i.userTTL)
}

// IssueAdmin signs an admin-scoped session token for the given subject.
// Callers must verify the subject's role before issuing.
func (i *Issuer) IssueAdmin(userID int) (string, error) {
	return sign(userID, ScopeAdmin, i.adminSecret, i.adminTTL)
}

// UserSecret returns the signing secret for the general token audience.
func (i *Issuer) UserSecret() []byte { return i.userSecret }

// AdminSecret returns the signing secret for the admin token audience.
func (i *Issuer) AdminSecret() []byte { return i.adminSecret }

func sign(userID int, scope string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseSubject verifies the token signature and expiry against the secret and
// returns the subject user id. When wantScope is non-empty, the token must
// carry that scope claim.
func ParseSubject(tokenString string, secret []byte, wantScope string) (int, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	if wantScope != "" && claims.Scope != wantScope {
		return 0, errors.New("missing scope")
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return 0, errors.New("missing subject")
	}
	id, err := strconv.Atoi(subject)
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}
