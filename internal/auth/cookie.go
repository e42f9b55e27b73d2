package auth

import (
	"net/http"
	"time"
)

// AdminCookieName is the cookie holding the admin session token.
const AdminCookieName = "admin_token"

const adminCookieMaxAge = 24 * time.Hour

// SetAdminCookie attaches the admin session token as an httpOnly lax cookie.
func SetAdminCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(adminCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAdminCookie expires the admin session cookie.
func ClearAdminCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
