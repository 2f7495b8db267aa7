// Package migrate applies a one-time set of rkipc.ini defaults, recorded by
// a marker file so it never runs twice.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/internal/settings"
)

// DefaultMarker is where completion is recorded on the camera.
const DefaultMarker = "/userdata/.migrated_v2.1_v8"

// markerContent is written to the marker on success.
const markerContent = "migrated=1\n"

// Applier runs a batch through the safe-write procedure.
// *safewrite.Writer satisfies it.
type Applier interface {
	Apply(ctx context.Context, entries []inistore.Entry) (safewrite.Report, error)
}

// Migration describes one migration run.
type Migration struct {
	// Marker is the completion marker path.
	Marker string

	// Entries overrides the batch; nil means DefaultEntries.
	Entries []inistore.Entry

	// Force runs the migration even if the marker exists.
	Force bool

	Logger *slog.Logger
}

// DefaultEntries is the stock recording and snapshot setup: recording on,
// the default folder, two-minute files and a snapshot every 30 seconds.
func DefaultEntries() []inistore.Entry {
	entries, err := settings.Defaults(
		"storage_enable",
		"folder_name",
		"file_duration",
		"snapshot_enable",
		"snapshot_interval",
	)
	if err != nil {
		panic(err) // the names above are in the catalogue
	}
	return entries
}

// Done reports whether the marker exists.
func Done(marker string) (bool, error) {
	_, err := os.Stat(marker)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Run applies the migration unless it already ran. It reports whether the
// batch was applied. The marker is written only after a successful write
// has been flushed to disk, so a failed run is retried next time.
func Run(ctx context.Context, a Applier, m Migration) (bool, error) {
	log := m.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	marker := m.Marker
	if marker == "" {
		marker = DefaultMarker
	}

	if !m.Force {
		done, err := Done(marker)
		if err != nil {
			return false, fmt.Errorf("checking migration marker: %w", err)
		}
		if done {
			log.Debug("migration already applied", "marker", marker)
			return false, nil
		}
	}

	entries := m.Entries
	if entries == nil {
		entries = DefaultEntries()
	}

	log.Info("applying config migration", "entries", len(entries))
	if _, err := a.Apply(ctx, entries); err != nil {
		return false, fmt.Errorf("applying migration: %w", err)
	}
	unix.Sync()

	if err := os.WriteFile(marker, []byte(markerContent), 0644); err != nil {
		log.Error("failed to create migration marker", "marker", marker, "error", err)
		return true, fmt.Errorf("writing migration marker: %w", err)
	}
	log.Info("migration complete", "marker", marker)
	return true, nil
}
