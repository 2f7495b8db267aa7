package inistore

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the filesystem interface the Store writes through.
// This allows injection of failing filesystems for testing.
type FS interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(name string) ([]byte, error)

	// WriteFile creates name, which must not exist, and writes data to
	// it durably.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Rename atomically replaces newpath with oldpath.
	Rename(oldpath, newpath string) error

	// Remove removes a file.
	Remove(name string) error

	// Stat returns file info for a path.
	Stat(name string) (fs.FileInfo, error)
}

// OSFS implements FS using the os package.
type OSFS struct{}

func (OSFS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

func (OSFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	// OpenFile applies the umask; keep the mode of the file being replaced.
	if err := f.Chmod(perm); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (OSFS) Rename(oldpath, newpath string) error {
	if err := os.Rename(oldpath, newpath); err != nil {
		return err
	}
	// Persist the directory entry. Best effort: the rename already happened.
	if d, err := os.Open(filepath.Dir(newpath)); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}

func (OSFS) Remove(name string) error {
	return os.Remove(name)
}

func (OSFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
