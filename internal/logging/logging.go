// Package logging builds the structured logger lfcfg passes to its
// components. Records go to a size-rotated file, optionally also to a
// terminal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// File is the log file path. Empty disables file output.
	File string

	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Tee, if set, receives every record as well.
	Tee io.Writer
}

// Logger is a slog.Logger that owns its output file.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New returns a Logger for opts. With neither File nor Tee set the logger
// discards everything.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var writers []io.Writer
	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: opts.MaxBackups,
			LocalTime:  true,
		}
		writers = append(writers, file)
	}
	if opts.Tee != nil {
		writers = append(writers, opts.Tee)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		return Discard(), nil
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(h), file: file}, nil
}

// Discard returns a Logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel parses a level name. The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
