package inistore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

const storageIni = "[storage.0]\nenable = 0\nfolder_name = recordings\n"

// writeConfig creates rkipc.ini with content in a fresh directory.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rkipc.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// tempFiles returns leftover temporary files next to path.
func tempFiles(t *testing.T, path string) []string {
	t.Helper()
	matches, err := filepath.Glob(path + ".tmp.*")
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestRead(t *testing.T) {
	s := New(writeConfig(t, storageIni))

	v, err := s.Read("storage.0", "folder_name")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v != "recordings" {
		t.Errorf("Read = %q, want %q", v, "recordings")
	}
}

func TestRead_NotFound(t *testing.T) {
	s := New(writeConfig(t, storageIni))

	_, err := s.Read("storage.0", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing key error = %v, want ErrNotFound", err)
	}
	_, err = s.Read("video.0", "enable")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing section error = %v, want ErrNotFound", err)
	}
}

func TestRead_MissingFileIsNotFound(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.ini"))

	_, err := s.Read("storage.0", "enable")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read on missing file error = %v, want ErrNotFound", err)
	}
	if got := s.ReadOr("storage.0", "enable", "1"); got != "1" {
		t.Errorf("ReadOr = %q, want fallback %q", got, "1")
	}
}

func TestSectionsFromFile(t *testing.T) {
	s := New(writeConfig(t, "[video.0]\n[storage.0]\n"))
	got := s.Sections()
	if len(got) != 2 || got[0] != "video.0" || got[1] != "storage.0" {
		t.Errorf("Sections() = %v, want [video.0 storage.0]", got)
	}
}

func TestUpdate_ReplacesInPlace(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	if err := s.Update(context.Background(), "storage.0", "enable", "1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	want := "[storage.0]\nenable = 1\nfolder_name = recordings\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	if left := tempFiles(t, path); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

func TestUpdate_AppendsMissingSection(t *testing.T) {
	path := writeConfig(t, "[a]\nx = 1\n")
	s := New(path)

	if err := s.Update(context.Background(), "b", "y", "2"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got, want := readFile(t, path), "[a]\nx = 1\n\n[b]\ny = 2\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestUpdateBatch_SeveralSections(t *testing.T) {
	path := writeConfig(t, "[a]\nx = 1\n[b]\ny = 2\n")
	s := New(path)

	err := s.UpdateBatch(context.Background(), []Entry{
		{Section: "a", Key: "z", Value: "9"},
		{Section: "b", Key: "y", Value: "3"},
	})
	if err != nil {
		t.Fatalf("UpdateBatch: %v", err)
	}
	if got, want := readFile(t, path), "[a]\nx = 1\nz = 9\n[b]\ny = 3\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
}

func TestUpdateBatch_LockTimeout(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path, WithLockTimeout(100*time.Millisecond), WithLockPoll(10*time.Millisecond))

	held, err := acquireLock(context.Background(), s.LockPath(), 0, time.Millisecond)
	if err != nil {
		t.Fatalf("holding lock: %v", err)
	}

	start := time.Now()
	err = s.Update(context.Background(), "storage.0", "enable", "1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Update with lock held error = %v, want ErrLockTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Update waited %s, want about the 100ms timeout", elapsed)
	}
	if got := readFile(t, path); got != storageIni {
		t.Errorf("file changed while locked: %q", got)
	}

	held.release()
	if err := s.Update(context.Background(), "storage.0", "enable", "1"); err != nil {
		t.Fatalf("Update after release: %v", err)
	}
}

func TestUpdateBatch_LockHeldByOtherDescriptor(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path, WithLockTimeout(0))

	f, err := os.OpenFile(s.LockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		t.Fatal(err)
	}

	err = s.Update(context.Background(), "storage.0", "enable", "1")
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("error = %v, want ErrLockTimeout", err)
	}
}

func TestUpdateBatch_CancelledBeforeLock(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Update(ctx, "storage.0", "enable", "1")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if got := readFile(t, path); got != storageIni {
		t.Errorf("file changed: %q", got)
	}
}

func TestUpdateBatch_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rkipc.ini")
	s := New(path)

	err := s.Update(context.Background(), "storage.0", "enable", "1")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("error = %v, want ErrIO", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config file should not be created, stat err = %v", err)
	}
}

func TestUpdateBatch_InvalidEntries(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	bad := []Entry{
		{Section: "", Key: "k", Value: "v"},
		{Section: "s", Key: "", Value: "v"},
		{Section: "a]b", Key: "k", Value: "v"},
		{Section: "s", Key: "a=b", Value: "v"},
		{Section: "s", Key: "#k", Value: "v"},
		{Section: "s", Key: "k", Value: "line\nbreak"},
	}
	for _, e := range bad {
		err := s.UpdateBatch(context.Background(), []Entry{{Section: "storage.0", Key: "enable", Value: "1"}, e})
		if !errors.Is(err, ErrInvalidEntry) {
			t.Errorf("UpdateBatch(%+v) error = %v, want ErrInvalidEntry", e, err)
		}
	}
	if got := readFile(t, path); got != storageIni {
		t.Errorf("file changed by rejected batch: %q", got)
	}
}

func TestUpdateBatch_TrimsInput(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	if err := s.Update(context.Background(), " storage.0 ", " enable ", " 1 "); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if v, _ := s.Read("storage.0", "enable"); v != "1" {
		t.Errorf("Read = %q, want %q", v, "1")
	}
}

func TestUpdateBatch_Empty(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	if err := s.UpdateBatch(context.Background(), nil); err != nil {
		t.Fatalf("UpdateBatch(nil): %v", err)
	}
	if _, err := os.Stat(s.LockPath()); !os.IsNotExist(err) {
		t.Errorf("empty batch should not touch the lock file, stat err = %v", err)
	}
}

func TestUpdateBatch_PreservesMode(t *testing.T) {
	path := writeConfig(t, storageIni)
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatal(err)
	}
	s := New(path)

	if err := s.Update(context.Background(), "storage.0", "enable", "1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

// failRenameFS fails every rename the way a cross-device or read-only
// target would.
type failRenameFS struct {
	OSFS
}

func (failRenameFS) Rename(oldpath, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EROFS}
}

func TestUpdateBatch_RenameFails(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path, WithFS(failRenameFS{}))

	err := s.Update(context.Background(), "storage.0", "enable", "1")
	if !errors.Is(err, ErrIO) {
		t.Fatalf("error = %v, want ErrIO", err)
	}
	if !errors.Is(err, unix.EROFS) {
		t.Errorf("error = %v, want it to wrap EROFS", err)
	}
	if got := readFile(t, path); got != storageIni {
		t.Errorf("original changed: %q", got)
	}
	if left := tempFiles(t, path); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

// crashingFS writes only part of the data before failing, like a full disk.
type crashingFS struct {
	OSFS
}

func (crashingFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if err := os.WriteFile(name, data[:len(data)/2], perm); err != nil {
		return err
	}
	return unix.ENOSPC
}

func TestUpdateBatch_WriteFails(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path, WithFS(crashingFS{}))

	err := s.Update(context.Background(), "storage.0", "enable", "1")
	if !errors.Is(err, ErrIO) || !errors.Is(err, unix.ENOSPC) {
		t.Fatalf("error = %v, want ErrIO wrapping ENOSPC", err)
	}
	if got := readFile(t, path); got != storageIni {
		t.Errorf("original changed: %q", got)
	}
	if left := tempFiles(t, path); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

func TestUpdateBatch_LockFileOutsideConfig(t *testing.T) {
	path := writeConfig(t, storageIni)
	s := New(path)

	if err := s.Update(context.Background(), "storage.0", "enable", "1"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.LockPath()); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
	if strings.Contains(readFile(t, path), "lock") {
		t.Error("config content mentions the lock")
	}
}
