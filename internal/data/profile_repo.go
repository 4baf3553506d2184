package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/ports"
)

// ErrProfileNotFound is returned by mutating operations when no profile matches.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepo provides database operations for admin profiles.
type ProfileRepo struct {
	db           *DB
	timeProvider TimeProvider
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{db: db, timeProvider: tp}
}

const profileColumns = `id::text, user_id, email, name, role, is_active, last_login`

func scanProfile(row pgx.Row) (*domainauth.Profile, error) {
	var (
		p    domainauth.Profile
		role string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.Name, &role, &p.IsActive, &p.LastLogin); err != nil {
		return nil, err
	}
	p.Role = domainauth.Role(role)
	return &p, nil
}

// GetByUserID returns the profile for an upstream user id, or (nil, nil) when none exists.
// Query failures are reported as upstream_unavailable so callers fail closed.
func (r *ProfileRepo) GetByUserID(ctx context.Context, userID string) (*domainauth.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM admin_profiles WHERE user_id = $1`

	p, err := scanProfile(r.db.Pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Unavailable(apperrors.MapDBError(err), "profile store")
	}
	return p, nil
}

// GetByEmail returns the profile for an email, or (nil, nil) when none exists.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*domainauth.Profile, error) {
	const q = `SELECT ` + profileColumns + ` FROM admin_profiles WHERE email = $1`

	p, err := scanProfile(r.db.Pool.QueryRow(ctx, q, domainauth.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapDBError(err)
	}
	return p, nil
}

// TouchLastLogin sets last_login for a user. Missing profiles are ignored.
func (r *ProfileRepo) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	const q = `UPDATE admin_profiles SET last_login = $2 WHERE user_id = $1`

	if _, err := r.db.Pool.Exec(ctx, q, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch last login: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Upsert inserts or updates a profile keyed by user_id and returns the stored row.
func (r *ProfileRepo) Upsert(ctx context.Context, p domainauth.Profile) (*domainauth.Profile, error) {
	if p.UserID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	if p.Role == "" {
		p.Role = domainauth.RoleStaff
	}
	const q = `
INSERT INTO admin_profiles (user_id, email, name, role, is_active, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role,
    is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at
RETURNING ` + profileColumns

	out, err := scanProfile(r.db.Pool.QueryRow(ctx, q,
		p.UserID, domainauth.NormalizeEmail(p.Email), p.Name, string(p.Role), p.IsActive, r.timeProvider.Now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// SetActive enables or disables a profile.
func (r *ProfileRepo) SetActive(ctx context.Context, userID string, active bool) error {
	const q = `UPDATE admin_profiles SET is_active = $2, updated_at = $3 WHERE user_id = $1`

	tag, err := r.db.Pool.Exec(ctx, q, userID, active, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("set profile active: %w", apperrors.MapDBError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
