package httpx

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
)

// Pages renders the login form and the protected admin landing page.
type Pages struct {
	LoginPath   string
	LogoutPath  string
	LoginAction string
	// Cookies scopes the CSRF cookie issued with each form.
	Cookies CookiePolicy
	Logger  *slog.Logger
}

var loginErrors = map[string]string{
	"missing":      msgCredentialsRequired,
	"invalid":      msgInvalidCredentials,
	"not_admin":    msgNotAdmin,
	"disabled":     msgAccountDisabled,
	"rate_limited": msgRateLimited,
	"internal":     msgInternal,
}

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "layout-start"}}<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>{{.Title}}</title></head><body>{{end}}
{{define "layout-end"}}</body></html>{{end}}

{{define "login"}}{{template "layout-start" .}}
<main>
  <h1>Admin sign in</h1>
  {{with .Error}}<p role="alert">{{.}}</p>{{end}}
  <form method="post" action="{{.Action}}">
    <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
    <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
    <label>Email <input type="email" name="email" autocomplete="username" required></label>
    <label>Password <input type="password" name="password" autocomplete="current-password" required></label>
    <button type="submit">Sign in</button>
  </form>
</main>
{{template "layout-end" .}}{{end}}

{{define "admin"}}{{template "layout-start" .}}
<main>
  <h1>Admin</h1>
  <p>Signed in as {{.User.Name}} ({{.User.Email}})</p>
  <form method="post" action="{{.LogoutPath}}">
    <input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
    <button type="submit">Sign out</button>
  </form>
</main>
{{template "layout-end" .}}{{end}}
`))

type loginPageData struct {
	Title       string
	Error       string
	Action      string
	RedirectURI string
	CSRFToken   string
}

type adminPageData struct {
	Title      string
	User       *domainauth.User
	LogoutPath string
	CSRFToken  string
}

func (p *Pages) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger().ErrorContext(r.Context(), "render page failed", "template", name, "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		return
	}
}

// Login renders GET /login.
func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect := q.Get("redirect_uri")
	if redirect != "" {
		redirect = safeRedirectPath(redirect)
	}
	action := p.LoginAction
	if action == "" {
		action = "/api/auth/login"
	}
	token, ok := p.csrfToken(w, r)
	if !ok {
		return
	}
	p.render(w, r, "login", loginPageData{
		Title:       "Sign in",
		Error:       loginErrors[q.Get("error")],
		Action:      action,
		RedirectURI: redirect,
		CSRFToken:   token,
	})
}

// Admin renders the protected landing page. It must sit behind Guard.RequireAdminPage.
func (p *Pages) Admin(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		redirectToLogin(w, r, p.loginPath())
		return
	}
	logout := p.LogoutPath
	if logout == "" {
		logout = "/api/auth/logout"
	}
	token, ok := p.csrfToken(w, r)
	if !ok {
		return
	}
	p.render(w, r, "admin", adminPageData{Title: "Admin", User: user, LogoutPath: logout, CSRFToken: token})
}

// Me handles GET /api/admin/me. It must sit behind Guard.RequireAdminAPI.
func (p *Pages) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, msgAuthRequired)
		return
	}
	WriteJSON(w, http.StatusOK, loginResponse{Success: true, User: user})
}

func (p *Pages) csrfToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token, err := ensureCSRFToken(w, r, p.Cookies)
	if err != nil {
		p.logger().ErrorContext(r.Context(), "issue csrf token failed", "error", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return "", false
	}
	return token, true
}

func (p *Pages) loginPath() string {
	if p.LoginPath != "" {
		return p.LoginPath
	}
	return "/login"
}
