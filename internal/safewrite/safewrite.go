// Package safewrite updates rkipc.ini while the camera service is down.
//
// rkipc keeps the configuration in memory and writes it back when it exits,
// so a change made while it runs is lost on the next stop. Writer.Apply
// stops the service, writes under the file lock, then launches a fresh
// instance:
//
//	Idle -> ServiceStopping -> LockedWrite -> ServiceStarting -> Idle
//
// If the service cannot be confirmed gone, even after a forced kill, the
// write still goes ahead. The remaining race with the dying process is
// accepted over blocking configuration changes forever.
package safewrite

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/service"
)

// State is a step of the safe-write procedure.
type State int

const (
	Idle State = iota
	ServiceStopping
	LockedWrite
	ServiceStarting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ServiceStopping:
		return "service-stopping"
	case LockedWrite:
		return "locked-write"
	case ServiceStarting:
		return "service-starting"
	}
	return "unknown"
}

// Updater applies a batch of entries to the configuration file.
// *inistore.Store satisfies it.
type Updater interface {
	UpdateBatch(ctx context.Context, entries []inistore.Entry) error
}

// Report describes one Apply run. Only the write result is returned as
// Apply's error; the rest is here for callers that want to show it.
type Report struct {
	RunID        string
	Updated      int
	StopTimedOut bool
	StopErr      error
	LaunchErr    error
}

// Writer runs the safe-write procedure. Runs are serialized within the
// process so that one run cannot relaunch the service under another's write.
type Writer struct {
	store  Updater
	ctrl   service.Controller
	policy service.StopPolicy
	logger *slog.Logger

	// OnTransition, if set, is called on every state change while the
	// run's lock is held.
	OnTransition func(from, to State)

	mu    sync.Mutex
	state State // guarded by mu
}

// New returns a Writer. A nil logger discards output.
func New(store Updater, ctrl service.Controller, policy service.StopPolicy, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{store: store, ctrl: ctrl, policy: policy, logger: logger}
}

// Apply stops the service, applies entries and launches the service again.
// The service is relaunched even when the write fails, since it was stopped
// either way. An empty batch does nothing.
func (w *Writer) Apply(ctx context.Context, entries []inistore.Entry) (Report, error) {
	if len(entries) == 0 {
		return Report{}, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	rep := Report{RunID: uuid.NewString()}
	log := w.logger.With("run", rep.RunID)
	log.Info("applying config updates", "count", len(entries))

	w.enter(ServiceStopping, log)
	err := service.Stop(ctx, w.ctrl, w.policy, log)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrStopTimeout):
		rep.StopTimedOut = true
		log.Warn("service still present after forced kill, writing anyway")
	case ctx.Err() != nil:
		// Nothing written yet. Put the service back and give up.
		rep.LaunchErr = w.start(log)
		w.enter(Idle, log)
		return rep, ctx.Err()
	default:
		rep.StopErr = err
		log.Warn("could not confirm service stopped, writing anyway", "error", err)
	}

	w.enter(LockedWrite, log)
	writeErr := w.store.UpdateBatch(ctx, entries)
	if writeErr != nil {
		log.Error("config write failed", "error", writeErr)
	} else {
		rep.Updated = len(entries)
	}

	rep.LaunchErr = w.start(log)
	w.enter(Idle, log)
	return rep, writeErr
}

func (w *Writer) start(log *slog.Logger) error {
	w.enter(ServiceStarting, log)
	if err := w.ctrl.Launch(); err != nil {
		log.Warn("service launch failed", "error", err)
		return err
	}
	return nil
}

func (w *Writer) enter(to State, log *slog.Logger) {
	from := w.state
	w.state = to
	log.Debug("safe write state", "from", from.String(), "to", to.String())
	if w.OnTransition != nil {
		w.OnTransition(from, to)
	}
}
