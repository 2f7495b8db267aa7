package inistore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sys/unix"
)

// fileLock is an exclusive flock held on an open lock file.
type fileLock struct {
	f *os.File
}

// acquireLock takes an exclusive flock on path, creating the file if needed.
// The lock is attempted without blocking and retried every poll until
// timeout has elapsed. A timeout of zero or less makes a single attempt.
func acquireLock(ctx context.Context, path string, timeout, poll time.Duration) (*fileLock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: opening config lock: %w", ErrIO, err)
	}

	var lastErr error
	try := func() (struct{}, error) {
		lastErr = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if lastErr == nil || errors.Is(lastErr, unix.EWOULDBLOCK) {
			return struct{}{}, lastErr
		}
		return struct{}{}, backoff.Permanent(lastErr)
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(backoff.NewConstantBackOff(poll))}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1), backoff.WithMaxElapsedTime(0))
	}

	if _, err := backoff.Retry(ctx, try, opts...); err != nil {
		f.Close()
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(lastErr, unix.EWOULDBLOCK):
			return nil, fmt.Errorf("%w after %s", ErrLockTimeout, timeout)
		default:
			return nil, fmt.Errorf("%w: acquiring config lock: %w", ErrIO, lastErr)
		}
	}
	return &fileLock{f: f}, nil
}

// release unlocks and closes the lock file. The file itself stays on disk
// so that other processes keep locking the same inode.
func (l *fileLock) release() {
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	l.f.Close()
}
