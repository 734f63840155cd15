package utils

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

const (
	SessionCookie = "session_token"
	FlashCookie   = "flash"
	FormCookie    = "form_token"
)

func CookieExists(r *http.Request, name string) bool {
	st, err := r.Cookie(name)
	return err == nil && st.Value != ""
}

// GetUserAgent returns the User-Agent string from the request
func GetUserAgent(r *http.Request) string {
	return r.Header.Get("User-Agent")
}

// GetIP returns the IP address of the client from the request
func GetIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// SetFlash queues a notice for the next page render. Notices already queued
// on the request are kept.
func SetFlash(w http.ResponseWriter, r *http.Request, notice string) {
	notices := append(readFlashes(r), notice)
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(strings.Join(notices, "\n"))),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   60,
	})
}

// PopFlashes returns the queued notices and clears them.
func PopFlashes(w http.ResponseWriter, r *http.Request) []string {
	notices := readFlashes(r)
	if len(notices) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     FlashCookie,
			Value:    "",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
			MaxAge:   -1,
		})
	}
	return notices
}

func readFlashes(r *http.Request) []string {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(raw) == 0 {
		return nil
	}
	return strings.Split(string(raw), "\n")
}

// EnsureFormToken returns the anti-forgery token for forms shown before login,
// issuing a new form_token cookie when the browser has none.
func EnsureFormToken(w http.ResponseWriter, r *http.Request, secure bool) (string, error) {
	if c, err := r.Cookie(FormCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	token, err := GenerateToken(32)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FormCookie,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	return token, nil
}

// CheckFormToken compares a submitted token with the form_token cookie.
func CheckFormToken(r *http.Request, token string) error {
	c, err := r.Cookie(FormCookie)
	if err != nil || c.Value == "" || token == "" {
		return ErrInvalidCSRF
	}
	if subtle.ConstantTimeCompare([]byte(c.Value), []byte(token)) != 1 {
		return ErrInvalidCSRF
	}
	return nil
}
