// Package limiter locks out credentials after repeated failed logins.
package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/HrishikeshVipin/Bhishak-Med-sub001/internal/platform/db"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login is currently allowed and, if not, for how long it is blocked.
	Allow(ctx context.Context, identifier string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, identifier string, ipHash []byte) error
	// Failure records a failed attempt and reports whether it triggered a lockout.
	Failure(ctx context.Context, identifier string, ipHash []byte) (bool, time.Duration, error)
}

// PG is a Postgres-backed limiter keyed by (identifier, hashed client IP).
// Failures older than window restart the count.
type PG struct {
	q        db.Querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

func NewPG(q db.Querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{q: q, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// HashIP returns a stable hash for an IP string so raw addresses are not stored.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

func (l *PG) Allow(ctx context.Context, identifier string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE identifier = $1 AND ip_hash = $2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, identifier, ipHash).Scan(&blockedUntil)
	switch {
	case err == nil:
		if now := l.now(); blockedUntil.After(now) {
			return false, blockedUntil.Sub(now), nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	default:
		return false, 0, err
	}
}

func (l *PG) Success(ctx context.Context, identifier string, ipHash []byte) error {
	const q = `
INSERT INTO auth_limiter (identifier, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', NOW())
ON CONFLICT (identifier, ip_hash)
DO UPDATE SET fail_count = 0, blocked_until = 'epoch', updated_at = NOW()`
	_, err := l.q.Exec(ctx, q, identifier, ipHash)
	return err
}

func (l *PG) Failure(ctx context.Context, identifier string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO auth_limiter (identifier, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', NOW())
ON CONFLICT (identifier, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN NOW() - auth_limiter.updated_at > $3::interval THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = NOW()
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, identifier, ipHash, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}

	const upd = `UPDATE auth_limiter SET blocked_until = $3, fail_count = 0 WHERE identifier = $1 AND ip_hash = $2`
	if _, err := l.q.Exec(ctx, upd, identifier, ipHash, l.now().Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}

// LockedError is returned by callers when a credential is locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return "too many failed attempts, retry in " + e.RetryAfter.Round(time.Second).String()
}
