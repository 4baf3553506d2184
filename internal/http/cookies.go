package httpx

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	"github.com/campus-admin/admingate/internal/service"
)

// Cookie names.
const (
	CookieAppToken     = "admin_token"
	CookieAccessToken  = "sb_access_token"
	CookieRefreshToken = "sb_refresh_token"
	CookieLoggedIn     = "admin_logged_in"
)

const defaultRefreshCookieTTL = 7 * 24 * time.Hour

// CookiePolicy holds the cookie attributes resolved once at startup.
// Nothing here is derived from request headers.
type CookiePolicy struct {
	// Domain is empty for host-only cookies.
	Domain     string
	Secure     bool
	RefreshTTL time.Duration
}

// NewCookiePolicy validates domain and returns a policy. A bare public suffix
// (e.g. "com" or "github.io") is rejected since browsers drop such cookies.
func NewCookiePolicy(domain string, secure bool, refreshTTL time.Duration) (CookiePolicy, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, ".")
	if d == "localhost" {
		d = ""
	}
	if d != "" {
		if _, err := publicsuffix.EffectiveTLDPlusOne(d); err != nil {
			return CookiePolicy{}, fmt.Errorf("invalid cookie domain %q: %w", domain, err)
		}
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshCookieTTL
	}
	return CookiePolicy{Domain: d, Secure: secure, RefreshTTL: refreshTTL}, nil
}

func (p CookiePolicy) cookie(name, value string, maxAge int, sameSite http.SameSite) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: sameSite,
	}
}

// SetSession writes the upstream access and refresh cookies and the client-visible flag.
// A session without an expiry produces browser-session cookies for the access token and flag.
func (p CookiePolicy) SetSession(w http.ResponseWriter, sess domainauth.UpstreamSession) {
	accessAge := sess.ExpiresInSeconds
	if accessAge < 0 {
		accessAge = 0
	}
	http.SetCookie(w, p.cookie(CookieAccessToken, sess.AccessToken, accessAge, http.SameSiteLaxMode))
	if sess.RefreshToken != "" {
		http.SetCookie(w, p.cookie(CookieRefreshToken, sess.RefreshToken, int(p.RefreshTTL.Seconds()), http.SameSiteLaxMode))
	}

	flag := p.cookie(CookieLoggedIn, "true", accessAge, http.SameSiteLaxMode)
	flag.HttpOnly = false
	http.SetCookie(w, flag)
}

// SetAppToken writes the self-issued token cookie.
func (p CookiePolicy) SetAppToken(w http.ResponseWriter, token string, expiresAt, now time.Time) {
	age := int(expiresAt.Sub(now).Seconds())
	if age <= 0 {
		return
	}
	http.SetCookie(w, p.cookie(CookieAppToken, token, age, http.SameSiteStrictMode))
}

// ClearAll expires every auth cookie, mirroring the attributes used to set them.
func (p CookiePolicy) ClearAll(w http.ResponseWriter) {
	for _, c := range []struct {
		name     string
		sameSite http.SameSite
		httpOnly bool
	}{
		{CookieAppToken, http.SameSiteStrictMode, true},
		{CookieAccessToken, http.SameSiteLaxMode, true},
		{CookieRefreshToken, http.SameSiteLaxMode, true},
		{CookieLoggedIn, http.SameSiteLaxMode, false},
	} {
		ck := p.cookie(c.name, "", -1, c.sameSite)
		ck.HttpOnly = c.httpOnly
		ck.Expires = time.Unix(0, 0).UTC()
		http.SetCookie(w, ck)
	}
}

// readCredentials collects the auth cookies presented with r.
func readCredentials(r *http.Request) service.Credentials {
	value := func(name string) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
	return service.Credentials{
		AccessToken:  value(CookieAccessToken),
		RefreshToken: value(CookieRefreshToken),
		AppToken:     value(CookieAppToken),
	}
}

// replaceSessionCookies rewrites the request's Cookie header so handlers further
// down the chain see the refreshed upstream session instead of the stale one.
func replaceSessionCookies(r *http.Request, sess domainauth.UpstreamSession) {
	fresh := map[string]string{CookieAccessToken: sess.AccessToken}
	if sess.RefreshToken != "" {
		fresh[CookieRefreshToken] = sess.RefreshToken
	}

	cookies := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range cookies {
		if v, ok := fresh[c.Name]; ok {
			c.Value = v
			delete(fresh, c.Name)
		}
		r.AddCookie(c)
	}
	for _, name := range []string{CookieAccessToken, CookieRefreshToken} {
		if v, ok := fresh[name]; ok {
			r.AddCookie(&http.Cookie{Name: name, Value: v})
		}
	}
}
