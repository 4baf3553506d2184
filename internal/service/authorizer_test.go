package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/campus-admin/admingate/internal/domain/auth"
	apperrors "github.com/campus-admin/admingate/internal/errors"
	"github.com/campus-admin/admingate/internal/mocks"
)

func TestAuthorizer_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		profile    *domainauth.Profile
		wantAdmin  bool
		wantReason domainauth.DenyReason
	}{
		{name: "no profile", profile: nil, wantReason: domainauth.DenyNotAdmin},
		{name: "disabled admin", profile: &domainauth.Profile{UserID: "u1", Role: domainauth.RoleAdmin}, wantReason: domainauth.DenyAccountDisabled},
		{name: "active staff", profile: &domainauth.Profile{UserID: "u1", Role: domainauth.RoleStaff, IsActive: true}, wantReason: domainauth.DenyNotAdmin},
		{name: "active admin", profile: &domainauth.Profile{UserID: "u1", Email: "a@test.com", Role: domainauth.RoleAdmin, IsActive: true}, wantAdmin: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockProfileStore(ctrl)
			store.EXPECT().GetByUserID(gomock.Any(), "u1").Return(tt.profile, nil).Times(1)

			a := NewAuthorizer(AuthorizerOptions{Profiles: store})
			d, err := a.Resolve(context.Background(), "u1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdmin, d.IsAdmin)
			assert.Equal(t, tt.wantReason, d.Reason)
		})
	}
}

func TestAuthorizer_Resolve_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "plain error", err: errors.New("connection refused")},
		{name: "classified", err: apperrors.Unavailable(&pgconn.PgError{Code: pgerrcode.ConnectionFailure}, "profile store")},
		{name: "deadline", err: context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockProfileStore(ctrl)
			store.EXPECT().GetByUserID(gomock.Any(), "u1").Return(nil, tt.err)

			a := NewAuthorizer(AuthorizerOptions{Profiles: store})
			d, err := a.Resolve(context.Background(), "u1")
			require.Error(t, err)
			assert.True(t, apperrors.IsUpstreamUnavailable(err))
			assert.False(t, d.IsAdmin)
		})
	}
}

func TestAuthorizer_Resolve_AppliesTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProfileStore(ctrl)
	store.EXPECT().GetByUserID(gomock.Any(), "u1").DoAndReturn(
		func(ctx context.Context, _ string) (*domainauth.Profile, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	a := NewAuthorizer(AuthorizerOptions{Profiles: store, Timeout: 10 * time.Millisecond})
	_, err := a.Resolve(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthorizer_Resolve_EmptyUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockProfileStore(ctrl)

	a := NewAuthorizer(AuthorizerOptions{Profiles: store})
	d, err := a.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, d.IsAdmin)
}

func TestDenyError(t *testing.T) {
	assert.NoError(t, DenyError(domainauth.Decision{IsAdmin: true}))
	assert.Equal(t, apperrors.ErrCodeAccountDisabled,
		apperrors.GetCode(DenyError(domainauth.Decision{Reason: domainauth.DenyAccountDisabled})))
	assert.Equal(t, apperrors.ErrCodeNotAuthorized,
		apperrors.GetCode(DenyError(domainauth.Decision{Reason: domainauth.DenyNotAdmin})))
}
