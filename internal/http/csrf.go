package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	// CookieCSRF holds the double-submit token for HTML form posts.
	CookieCSRF = "admin_csrf"
	// CSRFFormField is the hidden form field echoing CookieCSRF.
	CSRFFormField = "csrf_token"

	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 60 * 60
)

// ensureCSRFToken returns the request's CSRF token, minting and setting a new cookie when absent.
func ensureCSRFToken(w http.ResponseWriter, r *http.Request, policy CookiePolicy) (string, error) {
	if c, err := r.Cookie(CookieCSRF); err == nil && c.Value != "" {
		return c.Value, nil
	}
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieCSRF,
		Value:    token,
		Path:     "/",
		Domain:   policy.Domain,
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   csrfMaxAge,
	})
	return token, nil
}

// RequireFormCSRF rejects form-encoded state-changing requests whose csrf_token field does not
// match the CSRF cookie. JSON bodies pass through.
func RequireFormCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethod(r.Method) || !isFormPost(r) {
			next.ServeHTTP(w, r)
			return
		}
		if !validFormCSRF(r) {
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// validFormCSRF compares in constant time.
func validFormCSRF(r *http.Request) bool {
	c, err := r.Cookie(CookieCSRF)
	if err != nil || c.Value == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	field := strings.TrimSpace(r.PostFormValue(CSRFFormField))
	if field == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(field), []byte(c.Value)) == 1
}
