package handler

import (
	"net/http"
	"time"

	"go-tube-auth/internal/middleware"
)

// CookiePolicy decides how session cookies are written. Secure is off for
// plain-HTTP development setups.
type CookiePolicy struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (p CookiePolicy) set(w http.ResponseWriter, accessToken string, refreshToken string) {
	http.SetCookie(w, p.cookie(middleware.AccessTokenCookie, accessToken, p.AccessTTL))
	http.SetCookie(w, p.cookie(middleware.RefreshTokenCookie, refreshToken, p.RefreshTTL))
}

func (p CookiePolicy) clear(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := p.cookie(name, "", 0)
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
		http.SetCookie(w, cookie)
	}
}

func (p CookiePolicy) cookie(name string, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
