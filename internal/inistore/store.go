// Package inistore implements read and update access to an INI-style
// configuration file that is shared with another process.
//
// Every operation reads the file from disk; nothing is cached between
// calls. Updates take an exclusive flock on a sibling "<path>.lock" file,
// rewrite the document in memory, write it to a temporary file in the same
// directory and rename it over the original, so readers only ever see the
// old or the new content.
package inistore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLockTimeout bounds how long UpdateBatch waits for the lock.
	DefaultLockTimeout = 5 * time.Second

	// DefaultLockPoll is the interval between lock attempts.
	DefaultLockPoll = 50 * time.Millisecond
)

// Store reads and updates a single configuration file.
type Store struct {
	path        string
	fs          FS
	lockTimeout time.Duration
	lockPoll    time.Duration
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithFS replaces the filesystem used for reading and replacing the file.
func WithFS(fsys FS) Option {
	return func(s *Store) { s.fs = fsys }
}

// WithLockTimeout sets the lock timeout. Zero makes a single attempt.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithLockPoll sets the interval between lock attempts.
func WithLockPoll(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockPoll = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store for the file at path. The file is not touched.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:        path,
		fs:          OSFS{},
		lockTimeout: DefaultLockTimeout,
		lockPoll:    DefaultLockPoll,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the path of the file UpdateBatch locks.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Read returns the trimmed value of key in section. It returns ErrNotFound
// when the key is absent or the file cannot be read.
func (s *Store) Read(section, key string) (string, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		s.logger.Debug("config file not readable", "path", s.path, "error", err)
		return "", fmt.Errorf("[%s] %s: %w", section, key, ErrNotFound)
	}
	v, ok := Parse(data).Lookup(section, key)
	if !ok {
		return "", fmt.Errorf("[%s] %s: %w", section, key, ErrNotFound)
	}
	return v, nil
}

// ReadOr is Read with fallback returned in place of ErrNotFound.
func (s *Store) ReadOr(section, key, fallback string) string {
	v, err := s.Read(section, key)
	if err != nil {
		return fallback
	}
	return v
}

// Sections returns the section names present in the file, or nil if it
// cannot be read.
func (s *Store) Sections() []string {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return nil
	}
	return Parse(data).Sections()
}

// Update sets a single key. It is UpdateBatch with one entry.
func (s *Store) Update(ctx context.Context, section, key, value string) error {
	return s.UpdateBatch(ctx, []Entry{{Section: section, Key: key, Value: value}})
}

// UpdateBatch applies entries to the file in one locked read, rewrite and
// replace cycle. It returns ErrInvalidEntry, ErrLockTimeout or ErrIO (all
// wrapped) on failure, in which case the file is unchanged. Cancelling ctx
// only has an effect while waiting for the lock; once the rewrite starts it
// runs to completion.
func (s *Store) UpdateBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	normalized := make([]Entry, len(entries))
	for i, e := range entries {
		n, err := normalize(e)
		if err != nil {
			return err
		}
		normalized[i] = n
	}

	lock, err := acquireLock(ctx, s.LockPath(), s.lockTimeout, s.lockPoll)
	if err != nil {
		s.logger.Error("config lock failed", "path", s.path, "error", err)
		return err
	}
	defer lock.release()

	info, err := s.fs.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	src, err := s.fs.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: reading config file: %w", ErrIO, err)
	}

	if err := s.replace(Rewrite(src, normalized), info.Mode().Perm()); err != nil {
		s.logger.Error("config replace failed", "path", s.path, "error", err)
		return err
	}

	for _, e := range normalized {
		s.logger.Info("updated config", "section", e.Section, "key", e.Key, "value", e.Value)
	}
	return nil
}

// replace writes data to a temporary sibling of the config file and
// renames it over the original.
func (s *Store) replace(data []byte, perm fs.FileMode) error {
	tmp := s.path + ".tmp." + uuid.NewString()

	if err := s.fs.WriteFile(tmp, data, perm); err != nil {
		s.fs.Remove(tmp) // best effort cleanup
		return fmt.Errorf("%w: writing temporary file: %w", ErrIO, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		s.fs.Remove(tmp) // best effort cleanup
		return fmt.Errorf("%w: replacing config file: %w", ErrIO, err)
	}
	return nil
}

// normalize trims an entry and rejects anything that would not survive a
// write followed by a read.
func normalize(e Entry) (Entry, error) {
	n := Entry{
		Section: strings.TrimSpace(e.Section),
		Key:     strings.TrimSpace(e.Key),
		Value:   strings.TrimSpace(e.Value),
	}
	switch {
	case n.Section == "":
		return n, fmt.Errorf("%w: empty section", ErrInvalidEntry)
	case n.Key == "":
		return n, fmt.Errorf("%w: empty key in [%s]", ErrInvalidEntry, n.Section)
	case strings.ContainsAny(n.Section, "]\r\n"):
		return n, fmt.Errorf("%w: section %q", ErrInvalidEntry, n.Section)
	case strings.ContainsAny(n.Key, "=\r\n") || strings.IndexAny(n.Key, "[;#") == 0:
		return n, fmt.Errorf("%w: key %q", ErrInvalidEntry, n.Key)
	case strings.ContainsAny(n.Value, "\r\n"):
		return n, fmt.Errorf("%w: value for %s contains a line break", ErrInvalidEntry, n.Key)
	}
	return n, nil
}
