package httpx

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	"github.com/campus-admin/admingate/internal/service"
)

// LoginService is the login orchestration the handlers depend on.
type LoginService interface {
	Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
}

// AuthHandlers provides HTTP handlers for the login, validate and logout endpoints.
type AuthHandlers struct {
	Svc           LoginService
	Authenticator *service.Authenticator
	Cookies       CookiePolicy
	// LoginPath and LandingPath drive the form-post redirects.
	LoginPath   string
	LandingPath string
	Logger      *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time

	validate *validator.Validate
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	// RedirectURI is only honored for form posts.
	RedirectURI string `json:"-"`
}

type loginResponse struct {
	Success bool             `json:"success"`
	User    *domainauth.User `json:"user"`
}

type validateResponse struct {
	Success       bool             `json:"success"`
	Authenticated bool             `json:"authenticated"`
	User          *domainauth.User `json:"user,omitempty"`
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *AuthHandlers) validator() *validator.Validate {
	if h.validate == nil {
		h.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return h.validate
}

// Login handles POST /api/auth/login.
// JSON bodies get JSON responses; form posts from the login page get redirects.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	form := isFormPost(r)

	req, ok := h.readLogin(w, r, form)
	if !ok || h.validator().Struct(req) != nil || strings.TrimSpace(req.Email) == "" {
		h.loginFailed(w, r, form, req, http.StatusBadRequest, msgCredentialsRequired)
		return
	}

	res, err := h.Svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: clientIP(r),
	})
	if err != nil {
		status, msg := authErrorResponse(err)
		if status == http.StatusInternalServerError {
			h.logger().ErrorContext(r.Context(), "login failed", "error", err)
		}
		setRetryAfter(w, err)
		h.loginFailed(w, r, form, req, status, msg)
		return
	}

	h.Cookies.SetSession(w, res.Session)
	if res.AppToken != "" {
		h.Cookies.SetAppToken(w, res.AppToken, res.AppTokenExpiresAt, h.now())
	}

	if form {
		dest := safeRedirectPath(req.RedirectURI)
		if dest == "/" {
			dest = h.landingPath()
		}
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	user := res.User
	WriteJSON(w, http.StatusOK, loginResponse{Success: true, User: &user})
}

func (h *AuthHandlers) readLogin(w http.ResponseWriter, r *http.Request, form bool) (loginRequest, bool) {
	var req loginRequest
	if form {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return req, false
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
		req.RedirectURI = r.PostForm.Get("redirect_uri")
		return req, true
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		return req, false
	}
	return req, true
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request, form bool, req loginRequest, status int, msg string) {
	if !form {
		writeFailure(w, status, msg)
		return
	}
	q := url.Values{}
	q.Set("error", loginErrorCode(status, msg))
	if req.RedirectURI != "" {
		q.Set("redirect_uri", safeRedirectPath(req.RedirectURI))
	}
	http.Redirect(w, r, h.loginPath()+"?"+q.Encode(), http.StatusSeeOther)
}

// Validate handles GET /api/auth/validate. It never refreshes, so repeated
// calls with the same cookies return the same answer.
func (h *AuthHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	out := h.Authenticator.Authenticate(r.Context(), readCredentials(r), service.AuthenticateOptions{})
	switch {
	case out.Allowed():
		WriteJSON(w, http.StatusOK, validateResponse{Success: true, Authenticated: true, User: out.Decision.User})
	case out.State == service.StateUnavailable:
		h.logger().ErrorContext(r.Context(), "validate: auth dependency unavailable", "error", out.Cause)
		writeFailure(w, http.StatusInternalServerError, msgInternal)
	default:
		WriteJSON(w, http.StatusUnauthorized, validateResponse{})
	}
}

// Logout handles POST /api/auth/logout by expiring every auth cookie.
// Upstream sessions are left to expire on their own.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Cookies.ClearAll(w)
	if isFormPost(r) {
		http.Redirect(w, r, h.loginPath(), http.StatusSeeOther)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandlers) loginPath() string {
	if h.LoginPath != "" {
		return h.LoginPath
	}
	return "/login"
}

func (h *AuthHandlers) landingPath() string {
	if h.LandingPath != "" {
		return h.LandingPath
	}
	return "/admin"
}

func isFormPost(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// clientIP returns the peer address. RealIP middleware has already applied
// trusted proxy headers when enabled.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loginErrorCode maps a failed login to the short code the login page renders.
func loginErrorCode(status int, msg string) string {
	switch {
	case status == http.StatusBadRequest:
		return "missing"
	case status == http.StatusUnauthorized:
		return "invalid"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case msg == msgAccountDisabled:
		return "disabled"
	case status == http.StatusForbidden:
		return "not_admin"
	default:
		return "internal"
	}
}
