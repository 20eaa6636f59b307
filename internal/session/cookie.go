package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"
)

// CookieName matches the cookie issued by the previous implementation
// so existing clients keep working across deploys.
const CookieName = "sid"

var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieManager signs session ids into the `sid` cookie and reads them
// back. The value is `<id>.<hmac-sha256(id)>` so a tampered cookie is
// rejected before the store is ever consulted.
type CookieManager struct {
	secret       []byte
	ttl          time.Duration
	isProduction bool
}

func NewCookieManager(secret []byte, ttl time.Duration, isProduction bool) *CookieManager {
	return &CookieManager{secret: secret, ttl: ttl, isProduction: isProduction}
}

func (m *CookieManager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Write sets the session cookie. Production uses Secure +
// SameSite=None (cross-site frontend); development uses Lax.
func (m *CookieManager) Write(w http.ResponseWriter, sessionID string) {
	sameSite := http.SameSiteLaxMode
	if m.isProduction {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID + "." + m.sign(sessionID),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: sameSite,
	})
}

// Clear expires the session cookie.
func (m *CookieManager) Clear(w http.ResponseWriter) {
	sameSite := http.SameSiteLaxMode
	if m.isProduction {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: sameSite,
	})
}

// Read extracts and authenticates the session id from the request.
func (m *CookieManager) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrInvalidCookie
	}

	id, sig, found := strings.Cut(cookie.Value, ".")
	if !found || id == "" {
		return "", ErrInvalidCookie
	}

	expected := m.sign(id)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", ErrInvalidCookie
	}

	return id, nil
}
