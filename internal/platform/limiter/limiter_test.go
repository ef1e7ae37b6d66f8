package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

func TestPG_Allow(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewPG(mock, 15*time.Minute, 5, 15*time.Minute)
	l.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")
	ctx := context.Background()

	// no row
	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("patient:+911", ip).
		WillReturnError(pgx.ErrNoRows)
	ok, _, err := l.Allow(ctx, "patient:+911", ip)
	require.NoError(t, err)
	require.True(t, ok)

	// blocked
	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("patient:+911", ip).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(now.Add(5 * time.Minute)))
	ok, retry, err := l.Allow(ctx, "patient:+911", ip)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Minute, retry)

	// block expired
	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("patient:+911", ip).
		WillReturnRows(pgxmock.NewRows([]string{"blocked_until"}).AddRow(now.Add(-time.Second)))
	ok, _, err = l.Allow(ctx, "patient:+911", ip)
	require.NoError(t, err)
	require.True(t, ok)

	// db error
	mock.ExpectQuery(`SELECT blocked_until FROM auth_limiter`).
		WithArgs("patient:+911", ip).
		WillReturnError(errors.New("boom"))
	ok, _, err = l.Allow(ctx, "patient:+911", ip)
	require.Error(t, err)
	require.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_FailureLocksAtThreshold(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewPG(mock, 15*time.Minute, 3, 10*time.Minute)
	l.now = func() time.Time { return now }
	ip := HashIP("10.0.0.2")
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO auth_limiter (.+) RETURNING fail_count`).
		WithArgs("admin:ops@bhishak.in", ip, 15*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(2))
	locked, _, err := l.Failure(ctx, "admin:ops@bhishak.in", ip)
	require.NoError(t, err)
	require.False(t, locked)

	mock.ExpectQuery(`INSERT INTO auth_limiter (.+) RETURNING fail_count`).
		WithArgs("admin:ops@bhishak.in", ip, 15*time.Minute).
		WillReturnRows(pgxmock.NewRows([]string{"fail_count"}).AddRow(3))
	mock.ExpectExec(`UPDATE auth_limiter SET blocked_until`).
		WithArgs("admin:ops@bhishak.in", ip, now.Add(10*time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	locked, retry, err := l.Failure(ctx, "admin:ops@bhishak.in", ip)
	require.NoError(t, err)
	require.True(t, locked)
	require.Equal(t, 10*time.Minute, retry)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPG_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	l := NewPG(mock, time.Minute, 3, time.Minute)
	ip := HashIP("10.0.0.3")

	mock.ExpectExec(`INSERT INTO auth_limiter (.+) ON CONFLICT`).
		WithArgs("patient:+912", ip).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, l.Success(context.Background(), "patient:+912", ip))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHashIP_Stable(t *testing.T) {
	require.Equal(t, HashIP("1.2.3.4"), HashIP("1.2.3.4"))
	require.NotEqual(t, HashIP("1.2.3.4"), HashIP("1.2.3.5"))
	require.Len(t, HashIP("x"), 32)
}
