package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantSame bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: pgx.ErrNoRows, wantCode: ErrCodeNotFound},
		{name: "wrapped no rows", err: fmt.Errorf("query: %w", pgx.ErrNoRows), wantCode: ErrCodeNotFound},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{
			name:     "connection failure",
			err:      &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantCode: ErrCodeUpstreamUnavailable,
		},
		{
			name:     "too many connections",
			err:      &pgconn.PgError{Code: pgerrcode.TooManyConnections},
			wantCode: ErrCodeUpstreamUnavailable,
		},
		{
			name:     "admin shutdown",
			err:      &pgconn.PgError{Code: pgerrcode.AdminShutdown},
			wantCode: ErrCodeUpstreamUnavailable,
		},
		{
			name:     "query canceled",
			err:      &pgconn.PgError{Code: pgerrcode.QueryCanceled},
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "syntax error",
			err:      &pgconn.PgError{Code: pgerrcode.SyntaxError},
			wantCode: ErrCodeInternal,
		},
		{name: "unrecognized", err: plain, wantSame: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDBError(tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			if tt.wantSame {
				assert.Same(t, tt.err, got)
				return
			}
			assert.Equal(t, tt.wantCode, GetCode(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
