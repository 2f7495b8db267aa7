package service

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// commLen is the longest process name the kernel keeps in comm.
const commLen = 15

// ProcController finds the service by scanning /proc and controls it with
// signals.
type ProcController struct {
	spec     Spec
	procRoot string
	kill     func(pid int, sig unix.Signal) error
	logger   *slog.Logger
}

// ProcOption configures a ProcController.
type ProcOption func(*ProcController)

// WithProcRoot scans root instead of /proc.
func WithProcRoot(root string) ProcOption {
	return func(c *ProcController) { c.procRoot = root }
}

// WithKill replaces the function used to deliver signals.
func WithKill(kill func(pid int, sig unix.Signal) error) ProcOption {
	return func(c *ProcController) { c.kill = kill }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) ProcOption {
	return func(c *ProcController) { c.logger = l }
}

// NewProcController returns a controller for spec.
func NewProcController(spec Spec, opts ...ProcOption) *ProcController {
	c := &ProcController{
		spec:     spec,
		procRoot: "/proc",
		kill:     unix.Kill,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PIDs returns the live processes whose name matches the service name.
// Zombies are skipped: they hold no files and cannot be signalled away.
func (c *ProcController) PIDs() ([]int, error) {
	entries, err := os.ReadDir(c.procRoot)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", c.procRoot, err)
	}

	name := c.spec.Name
	if len(name) > commLen {
		name = name[:commLen]
	}

	var pids []int
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		dir := filepath.Join(c.procRoot, e.Name())
		comm, err := os.ReadFile(filepath.Join(dir, "comm"))
		if err != nil {
			// Exited between ReadDir and here.
			continue
		}
		if strings.TrimSpace(string(comm)) != name {
			continue
		}
		if procState(dir) == 'Z' {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// procState returns the state letter from <dir>/stat, or 0 if unknown.
// The comm field can contain spaces and parentheses, so the state is read
// after the last ')'.
func procState(dir string) byte {
	data, err := os.ReadFile(filepath.Join(dir, "stat"))
	if err != nil {
		return 0
	}
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	if i < 0 {
		return 0
	}
	fields := strings.Fields(s[i+1:])
	if len(fields) == 0 || fields[0] == "" {
		return 0
	}
	return fields[0][0]
}

// Running implements Controller.
func (c *ProcController) Running() (bool, error) {
	pids, err := c.PIDs()
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// Terminate implements Controller. It sends SIGTERM, or SIGKILL when force
// is set, to every matching process.
func (c *ProcController) Terminate(force bool) error {
	pids, err := c.PIDs()
	if err != nil {
		return err
	}
	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}

	var errs []error
	for _, pid := range pids {
		c.logger.Debug("signalling service", "name", c.spec.Name, "pid", pid, "signal", sig.String())
		if err := c.kill(pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			errs = append(errs, fmt.Errorf("signal %s to %d: %w", sig, pid, err))
		}
	}
	return errors.Join(errs...)
}

// Launch implements Controller. The process runs in its own session with
// stdio on the null device. A background goroutine reaps it when it exits.
func (c *ProcController) Launch() error {
	if len(c.spec.Command) == 0 {
		return fmt.Errorf("launching %s: no command configured", c.spec.Name)
	}
	cmd := exec.Command(c.spec.Command[0], c.spec.Command[1:]...)
	cmd.Dir = c.spec.Dir
	cmd.Env = Environ(os.Environ(), c.spec.Env)
	if c.spec.Dir != "" {
		cmd.Env = Environ(cmd.Env, []string{"PWD=" + c.spec.Dir})
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %s: %w", c.spec.Name, err)
	}
	c.logger.Info("launched service", "name", c.spec.Name, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		c.logger.Info("service exited", "name", c.spec.Name, "pid", cmd.Process.Pid, "error", err)
	}()
	return nil
}
