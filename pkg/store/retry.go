// retry.go retries store writes that hit transient SQLite contention.
//
// Two processes can share one database (a running `sp run` and a
// `sp preset` edit in another terminal). busy_timeout covers most
// SQLITE_BUSY cases at the connection level; what slips through is retried
// here with exponential backoff and jitter.
package store

import (
	"math/rand"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryConfig controls retry behavior for transient SQLite errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  25 * time.Millisecond,
	maxDelay:   400 * time.Millisecond,
}

// retryOnContention runs fn under defaultRetryConfig. op names the write
// in log output.
func retryOnContention(op string, fn func() error) error {
	return retryOp(defaultRetryConfig, op, fn)
}

// isTransientSQLiteErr reports whether err is a lock or short-read error
// that may succeed on retry.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_IOERR_SHORT_READ:
			return true
		}
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// retryOp executes fn, retrying transient errors with backoff. Any other
// error, or success, returns immediately.
func retryOp(cfg retryConfig, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isTransientSQLiteErr(lastErr) {
			return lastErr
		}
		if attempt < cfg.maxRetries {
			delay := backoffDelay(cfg, attempt)
			log.Debug().Err(lastErr).Str("op", op).Int("attempt", attempt+1).
				Dur("delay", delay).Msg("sqlite contention, retrying")
			time.Sleep(delay)
		}
	}
	return errors.Wrapf(lastErr, "%s: gave up after %d attempts", op, cfg.maxRetries+1)
}

// backoffDelay returns baseDelay * 2^attempt capped at maxDelay, plus up to
// baseDelay of jitter.
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	if cfg.baseDelay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
