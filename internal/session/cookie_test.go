package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	m := NewCookieManager([]byte("secret"), time.Hour, false)

	rec := httptest.NewRecorder()
	m.Write(rec, "abc123")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)

	id, err := m.Read(req)
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestCookieProductionAttributes(t *testing.T) {
	m := NewCookieManager([]byte("secret"), time.Hour, true)

	rec := httptest.NewRecorder()
	m.Write(rec, "abc123")

	c := rec.Result().Cookies()[0]
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
}

func TestCookieRejectsTampering(t *testing.T) {
	m := NewCookieManager([]byte("secret"), time.Hour, false)

	rec := httptest.NewRecorder()
	m.Write(rec, "abc123")
	valid := rec.Result().Cookies()[0].Value

	cases := map[string]string{
		"swapped id":    "zzz999" + valid[6:],
		"missing sig":   "abc123",
		"empty id":      ".sig",
		"empty value":   "",
		"garbage":       "not-a-cookie",
		"truncated sig": valid[:len(valid)-2],
	}

	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
			_, err := m.Read(req)
			assert.ErrorIs(t, err, ErrInvalidCookie)
		})
	}
}

func TestCookieSignatureDependsOnSecret(t *testing.T) {
	a := NewCookieManager([]byte("secret-a"), time.Hour, false)
	b := NewCookieManager([]byte("secret-b"), time.Hour, false)

	rec := httptest.NewRecorder()
	a.Write(rec, "abc123")
	c := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)

	_, err := b.Read(req)
	assert.ErrorIs(t, err, ErrInvalidCookie)
}

func TestClearExpiresCookie(t *testing.T) {
	m := NewCookieManager([]byte("secret"), time.Hour, false)

	rec := httptest.NewRecorder()
	m.Clear(rec)

	c := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}
