package httpx

import (
	"fmt"
	"path"
	"strings"
)

// Default interception lists.
var (
	DefaultProtectedPatterns = []string{"/admin", "/admin/*", "/api/admin/*"}
	DefaultPublicPatterns    = []string{"/login", "/api/auth/login", "/api/auth/validate", "/api/auth/logout"}
)

// PathMatcher decides which request paths the gatekeeper intercepts.
//
// Patterns use path.Match syntax. A trailing "/*" matches any depth below the
// prefix, so "/admin/*" covers "/admin/users/42". Public patterns win over
// protected ones.
type PathMatcher struct {
	protected []string
	public    []string
}

// NewPathMatcher validates the patterns and builds a matcher.
func NewPathMatcher(protected, public []string) (*PathMatcher, error) {
	m := &PathMatcher{}
	for _, p := range protected {
		if err := checkPattern(p); err != nil {
			return nil, err
		}
		m.protected = append(m.protected, p)
	}
	for _, p := range public {
		if err := checkPattern(p); err != nil {
			return nil, err
		}
		m.public = append(m.public, p)
	}
	return m, nil
}

// MustPathMatcher is NewPathMatcher for static pattern lists.
func MustPathMatcher(protected, public []string) *PathMatcher {
	m, err := NewPathMatcher(protected, public)
	if err != nil {
		panic(err)
	}
	return m
}

func checkPattern(p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("path pattern %q must start with /", p)
	}
	if _, err := path.Match(p, "/"); err != nil {
		return fmt.Errorf("path pattern %q: %w", p, err)
	}
	return nil
}

// Protected reports whether requests to p must pass the gatekeeper.
// Both the raw and the cleaned path are checked so dot segments cannot slip past.
func (m *PathMatcher) Protected(p string) bool {
	if p == "" {
		p = "/"
	}
	for _, candidate := range []string{p, path.Clean(p)} {
		if m.protects(candidate) {
			return true
		}
	}
	return false
}

// Public reports whether p is on the allow-list.
func (m *PathMatcher) Public(p string) bool {
	return matchAny(m.public, p)
}

func (m *PathMatcher) protects(p string) bool {
	return !matchAny(m.public, p) && matchAny(m.protected, p)
}

func matchAny(patterns []string, p string) bool {
	for _, pat := range patterns {
		if matchPattern(pat, p) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(p, prefix+"/")
	}
	ok, err := path.Match(pattern, p)
	return err == nil && ok
}
