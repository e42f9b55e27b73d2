package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/devfolio/apiserver/internal/store"
	"github.com/devfolio/apiserver/types"
)

// UserResolver looks up the live user record behind a token subject.
type UserResolver interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Carrier is one way a token can reach the server, paired with the secret
// (and required scope) used to verify tokens it produces.
type Carrier struct {
	// Name identifies the carrier in logs and tests.
	Name string

	// Extract pulls a candidate token out of the request. ok is false when
	// the carrier is not present at all.
	Extract func(r *http.Request) (token string, ok bool)

	// Secret verifies tokens produced by this carrier.
	Secret []byte

	// Scope, when non-empty, is a claim the token must carry.
	Scope string
}

// BearerCarrier extracts tokens from the Authorization header.
func BearerCarrier(secret []byte) Carrier {
	return Carrier{
		Name:   "bearer",
		Secret: secret,
		Extract: func(r *http.Request) (string, bool) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				return "", false
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return "", false
			}
			token := strings.TrimSpace(parts[1])
			if token == "" {
				return "", false
			}
			return token, true
		},
	}
}

// CookieCarrier extracts admin session tokens from the named cookie.
func CookieCarrier(name string, secret []byte) Carrier {
	return Carrier{
		Name:   "cookie",
		Secret: secret,
		Scope:  ScopeAdmin,
		Extract: func(r *http.Request) (string, bool) {
			cookie, err := r.Cookie(name)
			if err != nil || cookie.Value == "" {
				return "", false
			}
			return cookie.Value, true
		},
	}
}

// Guard authenticates requests by trying an ordered list of carriers. The
// first carrier present on the request decides which secret verifies the
// token; later carriers are not consulted as fallbacks for a bad token.
type Guard struct {
	carriers []Carrier
	users    UserResolver
}

func NewGuard(users UserResolver, carriers ...Carrier) *Guard {
	return &Guard{carriers: carriers, users: users}
}

// Middleware runs the linear verification chain: token presence, signature
// and expiry, subject lookup. Any failure rejects with 401; role checks are
// layered separately so they can reject with 403.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, carrier, ok := g.extract(r)
		if !ok {
			writeGuardError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := ParseSubject(token, carrier.Secret, carrier.Scope)
		if err != nil {
			writeGuardError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := g.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeGuardError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			writeGuardError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		ctx := WithPrincipal(r.Context(), PrincipalFromUser(user))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose principal does not hold
// the role. 403, not 401: the credential was valid.
func RequireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := FromContext(r.Context())
			if !ok {
				writeGuardError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if p.Role != role {
				writeGuardError(w, http.StatusForbidden, "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) extract(r *http.Request) (string, Carrier, bool) {
	for _, carrier := range g.carriers {
		if token, ok := carrier.Extract(r); ok {
			return token, carrier, true
		}
	}
	return "", Carrier{}, false
}

func writeGuardError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
