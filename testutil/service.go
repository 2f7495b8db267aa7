package testutil

import (
	"errors"
	"sync"
)

// FakeService is an in-memory stand-in for the dependent service. It
// satisfies service.Controller.
type FakeService struct {
	mu sync.Mutex

	alive       bool
	terminating bool
	pending     int

	// Stubborn services ignore the graceful request.
	Stubborn bool

	// Unkillable services ignore the forced request too.
	Unkillable bool

	// ExitAfter is the number of Running calls that still report the
	// service alive after a graceful request.
	ExitAfter int

	// LaunchErr is returned by Launch when set.
	LaunchErr error

	// RunningErr is returned by Running when set.
	RunningErr error

	// OnLaunch runs inside Launch, before the service is marked alive.
	OnLaunch func()

	calls []string
}

// NewFakeService returns a fake that is running when alive is true.
func NewFakeService(alive bool) *FakeService {
	return &FakeService{alive: alive}
}

func (f *FakeService) Terminate(force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if force {
		f.calls = append(f.calls, "kill")
		if !f.Unkillable {
			f.alive = false
			f.terminating = false
		}
		return nil
	}
	f.calls = append(f.calls, "term")
	if !f.Stubborn && f.alive {
		f.terminating = true
		f.pending = f.ExitAfter
	}
	return nil
}

func (f *FakeService) Running() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RunningErr != nil {
		return false, f.RunningErr
	}
	if f.terminating {
		if f.pending == 0 {
			f.alive = false
			f.terminating = false
		} else {
			f.pending--
		}
	}
	return f.alive, nil
}

func (f *FakeService) Launch() error {
	f.mu.Lock()
	f.calls = append(f.calls, "launch")
	hook := f.OnLaunch
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LaunchErr != nil {
		return f.LaunchErr
	}
	f.alive = true
	return nil
}

// Alive reports the fake's current state without counting as a poll.
func (f *FakeService) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

// Calls returns the Terminate and Launch calls seen so far: "term",
// "kill" and "launch".
func (f *FakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ErrFakeLaunch is a convenience error for LaunchErr.
var ErrFakeLaunch = errors.New("fake launch failed")
