package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
)

func TestMockIdentityProvider_Lifecycle(t *testing.T) {
	idp := NewMockIdentityProvider().AddAccount("u1", "Admin@Test.com", "pw")
	ctx := context.Background()

	_, err := idp.SignIn(ctx, "admin@test.com", "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredential(err))

	sess, err := idp.SignIn(ctx, "admin@test.com", "pw")
	require.NoError(t, err)

	id, err := idp.ResolveUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.ID)
	assert.Equal(t, "admin@test.com", id.Email)

	idp.ExpireAccess(sess.AccessToken)
	id, err = idp.ResolveUser(ctx, sess.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, id)

	next, err := idp.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.NotEqual(t, sess.AccessToken, next.AccessToken)

	again, err := idp.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, again)

	assert.Equal(t, int32(2), idp.SignInCalls.Load())
	assert.Equal(t, int32(2), idp.RefreshCalls.Load())
}

func TestMockIdentityProvider_FuncOverride(t *testing.T) {
	boom := errors.New("boom")
	idp := NewMockIdentityProvider()
	idp.ResolveUserFunc = func(context.Context, string) (*domainauth.Identity, error) { return nil, boom }

	_, err := idp.ResolveUser(context.Background(), "x")
	require.ErrorIs(t, err, boom)
}

func TestMemoryProfileStore(t *testing.T) {
	s := NewMemoryProfileStore(domainauth.Profile{UserID: "u1", Role: domainauth.RoleAdmin, IsActive: true})
	ctx := context.Background()

	p, err := s.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)

	require.NoError(t, s.TouchLastLogin(ctx, "u1", time.Now()))
	select {
	case id := <-s.Touched():
		assert.Equal(t, "u1", id)
	case <-time.After(time.Second):
		t.Fatal("expected touch notification")
	}

	s.Err = errors.New("down")
	_, err = s.GetByUserID(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, int32(2), s.GetCalls.Load())
}

func TestMockLimiter_Defaults(t *testing.T) {
	l := &MockLimiter{}
	d, err := l.Check(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		d, err := l.Acquire(ctx, key)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	require.NoError(t, l.Release(ctx, "a"))
	require.NoError(t, l.Reset(ctx, "b"))
	assert.Equal(t, []string{"a", "b", "c"}, l.Acquires)
	assert.Equal(t, []string{"a"}, l.Releases)
	assert.Equal(t, []string{"b"}, l.Resets)
	assert.Equal(t, []string{"c"}, l.Kept())
}
