// Package status collects a snapshot of the camera's health: whether the
// stream and recorder are up, the state of the SD card and basic system
// figures.
package status

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"luckfox-webcfg/internal/service"
	"luckfox-webcfg/internal/settings"
)

const unknown = "unknown"

// SDState is the SD card's mount and write state.
type SDState string

const (
	SDUnmounted SDState = "unmounted"
	SDReadOnly  SDState = "read-only"
	SDReadWrite SDState = "read-write"
)

// Snapshot is the device status at one point in time.
type Snapshot struct {
	RTSPRunning     bool    `json:"rtsp_running"`
	RecordingActive bool    `json:"recording_active"`
	SDStatus        SDState `json:"sd_status"`
	SnapshotEnabled bool    `json:"snapshot_enabled"`
	Uptime          string  `json:"uptime"`
	Memory          string  `json:"memory"`
	Storage         string  `json:"storage"`
	Time            string  `json:"time"`
	VideoCount      int     `json:"video_count"`
}

// Sources locates the data a Collector reads.
type Sources struct {
	ProcRoot     string
	SDMount      string
	RecordingDir string

	// RecordingTimeout is how recently a recording must have been written
	// for the recorder to count as active.
	RecordingTimeout time.Duration

	// RTSPPort is the port the stream server listens on.
	RTSPPort int
}

// DefaultSources returns the paths used on the camera.
func DefaultSources() Sources {
	return Sources{
		ProcRoot:         "/proc",
		SDMount:          "/mnt/sdcard",
		RecordingDir:     "/mnt/sdcard/recordings",
		RecordingTimeout: 5 * time.Minute,
		RTSPPort:         554,
	}
}

// Collector builds Snapshots.
type Collector struct {
	src    Sources
	svc    service.Controller
	config settings.Reader

	now    func() time.Time
	statfs func(path string, buf *unix.Statfs_t) error
}

// NewCollector returns a Collector. svc is consulted when no listener is
// found on the RTSP port; config supplies the snapshot setting.
func NewCollector(src Sources, svc service.Controller, config settings.Reader) *Collector {
	return &Collector{
		src:    src,
		svc:    svc,
		config: config,
		now:    time.Now,
		statfs: unix.Statfs,
	}
}

// Collect gathers a Snapshot. Individual checks that fail leave their field
// at its zero value or "unknown"; Collect itself never fails.
func (c *Collector) Collect() Snapshot {
	now := c.now()
	s := Snapshot{
		RTSPRunning:     c.rtspRunning(),
		SDStatus:        c.sdState(),
		SnapshotEnabled: c.config.ReadOr("video.jpeg", "enable_cycle_snapshot", "0") == "1",
		Uptime:          unknown,
		Memory:          unknown,
		Storage:         unknown,
		Time:            now.Format("2006-01-02 15:04:05"),
	}

	if s.RTSPRunning {
		if newest, ok := newestRecording(c.src.RecordingDir); ok {
			s.RecordingActive = now.Sub(newest) < c.src.RecordingTimeout
		}
	}
	s.VideoCount = countRecordings(c.src.RecordingDir)

	if up, err := readUptime(filepath.Join(c.src.ProcRoot, "uptime")); err == nil {
		s.Uptime = FormatUptime(up)
	}
	if total, avail, err := readMeminfo(filepath.Join(c.src.ProcRoot, "meminfo")); err == nil {
		s.Memory = FormatMemory(total, avail)
	}
	var st unix.Statfs_t
	if err := c.statfs(c.src.SDMount, &st); err == nil {
		bsize := uint64(st.Bsize)
		s.Storage = FormatStorage((st.Blocks-st.Bfree)*bsize, st.Blocks*bsize)
	}
	return s
}

func (c *Collector) rtspRunning() bool {
	for _, name := range []string{"net/tcp", "net/tcp6"} {
		ok, err := listening(filepath.Join(c.src.ProcRoot, name), c.src.RTSPPort)
		if err == nil && ok {
			return true
		}
	}
	if c.svc == nil {
		return false
	}
	running, err := c.svc.Running()
	return err == nil && running
}

// sdState checks the mount point by creating and removing a file.
func (c *Collector) sdState() SDState {
	if _, err := os.Stat(c.src.SDMount); err != nil {
		return SDUnmounted
	}
	f, err := os.CreateTemp(c.src.SDMount, ".write_test_*")
	if err != nil {
		return SDReadOnly
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return SDReadWrite
}

// newestRecording returns the latest modification time of the regular,
// non-hidden files in dir.
func newestRecording(dir string) (time.Time, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, false
	}
	var newest time.Time
	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(newest) {
			newest, found = info.ModTime(), true
		}
	}
	return newest, found
}

func countRecordings(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}

// FormatUptime renders d as "2d 3h 45m", "5h 12m" or "23m".
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Minute)
	days, hours, minutes := total/(24*60), total/60%24, total%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatMemory renders used and total memory, from kB figures, as
// "45M / 256M (17%)".
func FormatMemory(totalKB, availKB uint64) string {
	if totalKB == 0 {
		return unknown
	}
	totalMB, availMB := totalKB/1024, availKB/1024
	if availMB > totalMB {
		availMB = totalMB
	}
	used := totalMB - availMB
	pct := 0
	if totalMB > 0 {
		pct = int(used * 100 / totalMB)
	}
	return fmt.Sprintf("%dM / %dM (%d%%)", used, totalMB, pct)
}

// FormatStorage renders used and total bytes as "12.5G / 119.1G".
func FormatStorage(used, total uint64) string {
	return humanSize(used) + " / " + humanSize(total)
}

func humanSize(n uint64) string {
	const units = "KMGTPE"
	if n < 1024 {
		return fmt.Sprintf("%dB", n)
	}
	v := float64(n) / 1024
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f%c", v, units[i])
}
