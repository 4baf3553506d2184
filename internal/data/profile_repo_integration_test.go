package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	"github.com/campus-admin/admingate/internal/migrate"
	"github.com/campus-admin/admingate/internal/testutil"
)

func TestProfileRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := testutil.SetupTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	defer sqlDB.Close()
	version, err := migrate.Version(ctx, sqlDB)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, version, int64(1))

	db, err := Open(ctx, PoolConfig{DSN: dsn, MaxConns: 2})
	require.NoError(t, err)
	defer db.Close()

	now := testutil.TestTime()
	repo := NewProfileRepoWithTimeProvider(db, NewFixedTimeProvider(now))

	missing, err := repo.GetByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	want := testutil.NewProfile("user-int").WithEmail("Ops@Campus.EDU").Build()
	stored, err := repo.Upsert(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, "ops@campus.edu", stored.Email)
	assert.Equal(t, domainauth.RoleAdmin, stored.Role)
	assert.True(t, stored.IsActive)
	assert.NotEmpty(t, stored.ID)

	require.NoError(t, repo.TouchLastLogin(ctx, "user-int", now))
	got, err := repo.GetByEmail(ctx, "OPS@campus.edu")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(now))

	require.NoError(t, repo.SetActive(ctx, "user-int", false))
	got, err = repo.GetByUserID(ctx, "user-int")
	require.NoError(t, err)
	assert.False(t, domainauth.Decide(got).IsAdmin)
	assert.Equal(t, domainauth.DenyAccountDisabled, domainauth.Decide(got).Reason)

	assert.ErrorIs(t, repo.SetActive(ctx, "nobody", true), ErrProfileNotFound)
}
