// Package service controls the camera's dependent service, the process that
// owns rkipc.ini while it runs and rewrites it on exit.
//
// The package exposes the two capabilities the rest of lfcfg needs, ask the
// service to terminate and report whether it is still running, plus a way
// to launch it again. Stop and Restart build the bounded stop procedure on
// top of any Controller.
package service

import (
	"errors"
	"os"
	"strings"
)

var (
	// ErrStopTimeout is returned by Stop when the service survived both the
	// graceful and the forced termination.
	ErrStopTimeout = errors.New("service did not stop")

	// ErrNotStarted is returned by WaitRunning when the service is not seen
	// running before the deadline.
	ErrNotStarted = errors.New("service did not start")
)

// Spec describes how to find and launch the service.
type Spec struct {
	// Name is the process name as reported by /proc/<pid>/comm.
	Name string

	// Command is the program and its arguments.
	Command []string

	// Dir is the working directory for the launched process.
	Dir string

	// Env holds KEY=VALUE pairs added to the launching environment. Values
	// may reference existing variables, e.g. "PATH=/opt/bin:$PATH".
	Env []string
}

// DefaultSpec is the stock rkipc setup on the Luckfox Pico firmware.
func DefaultSpec() Spec {
	return Spec{
		Name:    "rkipc",
		Command: []string{"/oem/usr/bin/rkipc", "-a", "/oem/usr/share/iqfiles"},
		Dir:     "/oem",
		Env:     []string{"LD_LIBRARY_PATH=/oem/usr/lib:/oem/lib:$LD_LIBRARY_PATH"},
	}
}

// Controller is the control surface of the dependent service.
type Controller interface {
	// Terminate asks every instance of the service to exit. With force set
	// the request cannot be ignored.
	Terminate(force bool) error

	// Running reports whether any live instance exists.
	Running() (bool, error)

	// Launch starts a detached instance and returns without waiting for it.
	Launch() error
}

// Environ returns base with the pairs in extra applied. References to
// variables in extra values are expanded against base, and a variable that
// expands to nothing leaves no dangling separator behind.
func Environ(base, extra []string) []string {
	env := make([]string, len(base))
	copy(env, base)

	lookup := func(name string) string {
		for i := len(env) - 1; i >= 0; i-- {
			if k, v, ok := strings.Cut(env[i], "="); ok && k == name {
				return v
			}
		}
		return ""
	}

	for _, kv := range extra {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		v = strings.Trim(os.Expand(v, lookup), ":")
		replaced := false
		for i := range env {
			if strings.HasPrefix(env[i], k+"=") {
				env[i] = k + "=" + v
				replaced = true
			}
		}
		if !replaced {
			env = append(env, k+"="+v)
		}
	}
	return env
}
