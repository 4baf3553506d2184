package authroles

// Package authroles provides a config-driven ProfileStore for development and tests.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	"github.com/campus-admin/admingate/internal/ports"
)

// StaticProfileStore serves profiles from memory, keyed by upstream user id.
type StaticProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domainauth.Profile
}

var _ ports.ProfileStore = (*StaticProfileStore)(nil)

// NewStaticProfileStore copies profiles into a new store.
func NewStaticProfileStore(profiles ...domainauth.Profile) *StaticProfileStore {
	s := &StaticProfileStore{profiles: make(map[string]domainauth.Profile, len(profiles))}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

// GetByUserID returns a copy of the stored profile or (nil, nil).
func (s *StaticProfileStore) GetByUserID(_ context.Context, userID string) (*domainauth.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// TouchLastLogin records the login time when the profile exists.
func (s *StaticProfileStore) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	t := at
	p.LastLogin = &t
	s.profiles[userID] = p
	return nil
}

// Upsert replaces the profile for p.UserID.
func (s *StaticProfileStore) Upsert(p domainauth.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

// ParseProfiles parses "user_id:email:name:role:active" entries.
func ParseProfiles(entries []string) ([]domainauth.Profile, error) {
	out := make([]domainauth.Profile, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		parts := strings.Split(e, ":")
		if len(parts) != 5 {
			return nil, fmt.Errorf("authroles: malformed profile entry %q", e)
		}
		active, err := strconv.ParseBool(parts[4])
		if err != nil {
			return nil, fmt.Errorf("authroles: profile %q: invalid active flag: %w", parts[0], err)
		}
		out = append(out, domainauth.Profile{
			ID:       parts[0],
			UserID:   parts[0],
			Email:    domainauth.NormalizeEmail(parts[1]),
			Name:     parts[2],
			Role:     domainauth.Role(parts[3]),
			IsActive: active,
		})
	}
	return out, nil
}
