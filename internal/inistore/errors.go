package inistore

import "errors"

var (
	// ErrNotFound is returned by Read when the key is absent or the file
	// cannot be read. It is a normal result; callers supply a default.
	ErrNotFound = errors.New("config key not found")

	// ErrLockTimeout is returned when the exclusive lock is not acquired
	// within the store's lock timeout. The file is left untouched.
	ErrLockTimeout = errors.New("config lock not acquired")

	// ErrIO wraps any open, read, write or rename failure. The original
	// file is left untouched.
	ErrIO = errors.New("config file i/o failure")

	// ErrInvalidEntry is returned for entries that cannot be written
	// without corrupting the file.
	ErrInvalidEntry = errors.New("invalid config entry")
)
