// Package settings maps the camera's user-facing settings onto rkipc.ini.
//
// Each Field names a setting as the web form and the CLI know it, the
// section and key it lives under, its stock default and the conversion
// between the units users type (minutes, seconds) and the units rkipc
// stores (seconds, milliseconds).
package settings

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"luckfox-webcfg/internal/inistore"
)

// MaxUpdates is the most fields accepted in one batch.
const MaxUpdates = 32

// Field is one user-facing setting.
type Field struct {
	Name    string
	Section string
	Key     string

	// Default is the stock value in file units.
	Default string

	// Help is a short description for listings.
	Help string

	toFile   func(string) (string, error)
	fromFile func(string) string
}

// ToFile validates v, given in user units, and converts it to file units.
func (f Field) ToFile(v string) (string, error) {
	v = strings.TrimSpace(v)
	if f.toFile == nil {
		return v, nil
	}
	out, err := f.toFile(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", f.Name, err)
	}
	return out, nil
}

// FromFile converts v, read from the file, to user units. Values that do
// not parse are returned unchanged.
func (f Field) FromFile(v string) string {
	if f.fromFile == nil {
		return v
	}
	return f.fromFile(v)
}

// Resolutions lists the video sizes the sensor pipeline supports.
var Resolutions = []string{"2304x1296", "1920x1080", "1280x720", "704x576"}

// Codecs lists the accepted values of output_data_type.
var Codecs = []string{"H.264", "H.265"}

var fields = []Field{
	{
		Name: "storage_enable", Section: "storage.0", Key: "enable", Default: "1",
		Help:   "record to the SD card (0 or 1)",
		toFile: boolean,
	},
	{
		Name: "folder_name", Section: "storage.0", Key: "folder_name", Default: "recordings",
		Help:   "recording folder under the SD card mount",
		toFile: folderName,
	},
	{
		Name: "file_duration", Section: "storage.0", Key: "file_duration", Default: "120",
		Help:     "length of each recording in minutes (1-60)",
		toFile:   scaled(1, 60, 60),
		fromFile: unscaled(60),
	},
	{
		Name: "rtsp_enable", Section: "video.source", Key: "enable_rtsp", Default: "1",
		Help:   "serve the RTSP stream (0 or 1)",
		toFile: boolean,
	},
	{
		Name: "width", Section: "video.0", Key: "width", Default: "2304",
		Help:   "main stream width in pixels",
		toFile: positive,
	},
	{
		Name: "height", Section: "video.0", Key: "height", Default: "1296",
		Help:   "main stream height in pixels",
		toFile: positive,
	},
	{
		Name: "max_rate", Section: "video.0", Key: "max_rate", Default: "2048",
		Help:   "main stream bitrate in kbps (512-2048, steps of 128)",
		toFile: bitrate,
	},
	{
		Name: "output_data_type", Section: "video.0", Key: "output_data_type", Default: "H.265",
		Help:   "main stream codec (H.264 or H.265)",
		toFile: oneOf(Codecs),
	},
	{
		Name: "snapshot_enable", Section: "video.jpeg", Key: "enable_cycle_snapshot", Default: "1",
		Help:   "take periodic JPEG snapshots (0 or 1)",
		toFile: boolean,
	},
	{
		Name: "snapshot_interval", Section: "video.jpeg", Key: "snapshot_interval_ms", Default: "30000",
		Help:     "seconds between snapshots (10-3600)",
		toFile:   scaled(10, 3600, 1000),
		fromFile: unscaled(1000),
	},
}

// Fields returns the catalogue in display order.
func Fields() []Field {
	return slices.Clone(fields)
}

// Lookup returns the field called name.
func Lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Pair is a field name and a value in user units.
type Pair struct {
	Name  string
	Value string
}

// ParseForm splits a URL-encoded "name=value&name=value" body into pairs,
// keeping their order. Empty segments are skipped.
func ParseForm(body string) ([]Pair, error) {
	var pairs []Pair
	for _, seg := range strings.Split(body, "&") {
		if seg == "" {
			continue
		}
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			return nil, fmt.Errorf("malformed form segment %q", seg)
		}
		name, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("decoding value of %s: %w", name, err)
		}
		pairs = append(pairs, Pair{Name: name, Value: value})
	}
	return pairs, nil
}

// ParseArgs turns "name=value" command line arguments into pairs.
func ParseArgs(args []string) ([]Pair, error) {
	pairs := make([]Pair, 0, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("expected name=value, got %q", a)
		}
		pairs = append(pairs, Pair{Name: strings.TrimSpace(k), Value: v})
	}
	return pairs, nil
}

// Entries validates pairs and converts them to file entries. The
// pseudo-field "resolution" (WxH) sets both width and height. Every
// problem found is reported in one error; nothing is returned unless all
// pairs are valid.
func Entries(pairs []Pair) ([]inistore.Entry, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no settings given")
	}
	if len(pairs) > MaxUpdates {
		return nil, fmt.Errorf("too many settings: %d (max %d)", len(pairs), MaxUpdates)
	}

	var entries []inistore.Entry
	var errs []string
	for _, p := range pairs {
		if p.Name == "resolution" {
			w, h, err := resolution(p.Value)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			entries = append(entries,
				inistore.Entry{Section: "video.0", Key: "width", Value: w},
				inistore.Entry{Section: "video.0", Key: "height", Value: h})
			continue
		}

		f, ok := Lookup(p.Name)
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown setting", p.Name))
			continue
		}
		v, err := f.ToFile(p.Value)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		entries = append(entries, inistore.Entry{Section: f.Section, Key: f.Key, Value: v})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid settings:\n  %s", strings.Join(errs, "\n  "))
	}
	return entries, nil
}

// Reader is the read side of the configuration store.
type Reader interface {
	ReadOr(section, key, fallback string) string
}

// Values maps field names to values in user units.
type Values map[string]string

// Load reads every field from r, using the field default where the file
// has no value.
func Load(r Reader) Values {
	vals := make(Values, len(fields))
	for _, f := range fields {
		vals[f.Name] = f.FromFile(r.ReadOr(f.Section, f.Key, f.Default))
	}
	return vals
}

// Defaults returns the stock file entries for the named fields, or for
// every field when no names are given.
func Defaults(names ...string) ([]inistore.Entry, error) {
	if len(names) == 0 {
		for _, f := range fields {
			names = append(names, f.Name)
		}
	}
	entries := make([]inistore.Entry, 0, len(names))
	for _, n := range names {
		f, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%s: unknown setting", n)
		}
		entries = append(entries, inistore.Entry{Section: f.Section, Key: f.Key, Value: f.Default})
	}
	return entries, nil
}

func boolean(v string) (string, error) {
	if v != "0" && v != "1" {
		return "", fmt.Errorf("must be 0 or 1, got %q", v)
	}
	return v, nil
}

func folderName(v string) (string, error) {
	switch {
	case v == "", v == ".", v == "..":
		return "", fmt.Errorf("invalid folder name %q", v)
	case strings.ContainsAny(v, "/\\"):
		return "", fmt.Errorf("folder name must not contain a path separator, got %q", v)
	}
	return v, nil
}

func positive(v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return "", fmt.Errorf("must be a positive integer, got %q", v)
	}
	return strconv.Itoa(n), nil
}

func bitrate(v string) (string, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 512 || n > 2048 || n%128 != 0 {
		return "", fmt.Errorf("must be 512-2048 in steps of 128, got %q", v)
	}
	return strconv.Itoa(n), nil
}

// scaled accepts an integer in [lo, hi] and multiplies it by factor.
func scaled(lo, hi, factor int) func(string) (string, error) {
	return func(v string) (string, error) {
		n, err := strconv.Atoi(v)
		if err != nil || n < lo || n > hi {
			return "", fmt.Errorf("must be an integer from %d to %d, got %q", lo, hi, v)
		}
		return strconv.Itoa(n * factor), nil
	}
}

// unscaled divides by factor, rounding to the nearest whole unit so a file
// value that is not an exact multiple is shown as the closest setting.
func unscaled(factor int) func(string) string {
	return func(v string) string {
		n, err := strconv.Atoi(v)
		if err != nil {
			return v
		}
		half := factor / 2
		if n < 0 {
			half = -half
		}
		return strconv.Itoa((n + half) / factor)
	}
}

func oneOf(allowed []string) func(string) (string, error) {
	return func(v string) (string, error) {
		if !slices.Contains(allowed, v) {
			return "", fmt.Errorf("invalid value %q (allowed: %s)", v, strings.Join(allowed, ", "))
		}
		return v, nil
	}
}

func resolution(v string) (w, h string, err error) {
	v = strings.TrimSpace(v)
	if !slices.Contains(Resolutions, v) {
		return "", "", fmt.Errorf("resolution: invalid value %q (allowed: %s)", v, strings.Join(Resolutions, ", "))
	}
	w, h, _ = strings.Cut(v, "x")
	return w, h, nil
}
