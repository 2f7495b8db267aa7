package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// StopPolicy bounds how long Stop waits for the service.
type StopPolicy struct {
	// PollInterval is the delay between running checks after the graceful
	// request.
	PollInterval time.Duration

	// MaxPolls is how many checks are made before escalating.
	MaxPolls int

	// ForceWait is the delay after the forced request before the final check.
	ForceWait time.Duration

	// Settle is an extra pause after the service is gone, for file handles
	// and pending writes to be released.
	Settle time.Duration

	// StartTimeout bounds how long Restart waits to see the service again.
	StartTimeout time.Duration
}

// DefaultStopPolicy polls every 100ms for up to 5s before escalating.
func DefaultStopPolicy() StopPolicy {
	return StopPolicy{
		PollInterval: 100 * time.Millisecond,
		MaxPolls:     50,
		ForceWait:    100 * time.Millisecond,
		StartTimeout: 3 * time.Second,
	}
}

var errStillRunning = errors.New("still running")

// Stop terminates the service and waits until it is gone. If the graceful
// request does not work within the poll budget the service is force killed
// and checked once more; ErrStopTimeout is returned if it survives even
// that. Callers decide whether a timeout is fatal.
func Stop(ctx context.Context, c Controller, p StopPolicy, logger *slog.Logger) error {
	running, err := c.Running()
	if err != nil {
		return fmt.Errorf("checking service: %w", err)
	}
	if !running {
		logger.Debug("service not running")
		return nil
	}

	if err := c.Terminate(false); err != nil {
		logger.Warn("graceful terminate failed", "error", err)
	}

	gone := func() (struct{}, error) {
		running, err := c.Running()
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if running {
			return struct{}{}, errStillRunning
		}
		return struct{}{}, nil
	}
	_, err = backoff.Retry(ctx, gone,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.PollInterval)),
		backoff.WithMaxTries(uint(max(p.MaxPolls, 1))),
		backoff.WithMaxElapsedTime(0),
	)
	switch {
	case err == nil:
		logger.Info("service stopped")
		return sleep(ctx, p.Settle)
	case ctx.Err() != nil:
		return ctx.Err()
	case !errors.Is(err, errStillRunning):
		return fmt.Errorf("checking service: %w", err)
	}

	logger.Warn("service ignored terminate, killing", "polls", p.MaxPolls)
	if err := c.Terminate(true); err != nil {
		logger.Warn("forced terminate failed", "error", err)
	}
	if err := sleep(ctx, p.ForceWait); err != nil {
		return err
	}
	running, err = c.Running()
	if err != nil {
		return fmt.Errorf("checking service: %w", err)
	}
	if running {
		return ErrStopTimeout
	}
	logger.Info("service killed")
	return sleep(ctx, p.Settle)
}

// WaitRunning polls until the service is running or timeout elapses.
func WaitRunning(ctx context.Context, c Controller, timeout, poll time.Duration) error {
	up := func() (struct{}, error) {
		running, err := c.Running()
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !running {
			return struct{}{}, ErrNotStarted
		}
		return struct{}{}, nil
	}
	opts := []backoff.RetryOption{backoff.WithBackOff(backoff.NewConstantBackOff(poll))}
	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1), backoff.WithMaxElapsedTime(0))
	}
	_, err := backoff.Retry(ctx, up, opts...)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, ErrNotStarted):
		return ErrNotStarted
	}
	return fmt.Errorf("checking service: %w", err)
}

// Restart stops the service if it runs, launches it and waits for it to
// show up. A stop timeout is logged and the launch goes ahead.
func Restart(ctx context.Context, c Controller, p StopPolicy, logger *slog.Logger) error {
	if err := Stop(ctx, c, p, logger); err != nil {
		if !errors.Is(err, ErrStopTimeout) {
			return err
		}
		logger.Warn("service still running, launching anyway")
	}
	if err := c.Launch(); err != nil {
		return err
	}
	if err := WaitRunning(ctx, c, p.StartTimeout, p.PollInterval); err != nil {
		logger.Error("service did not come back", "error", err)
		return err
	}
	logger.Info("service restarted")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
