package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"luckfox-webcfg/internal/config"
	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/internal/logging"
	"luckfox-webcfg/internal/safewrite"
	"luckfox-webcfg/testutil"
)

const testIni = `[storage.0]
enable = 0
folder_name = recordings
file_duration = 120

[video.0]
width = 2304
height = 1296
max_rate = 2048
output_data_type = H.265

[video.jpeg]
enable_cycle_snapshot = 1
snapshot_interval_ms = 30000
`

type testEnv struct {
	App *App
	Out *bytes.Buffer
	Err *bytes.Buffer
	Svc *testutil.FakeService
	Dir string
}

// setupTestApp creates an App over a temporary rkipc.ini and a fake
// service that is running.
func setupTestApp(t *testing.T, ini string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.IniFile = filepath.Join(dir, "rkipc.ini")
	cfg.Log.File = ""
	cfg.Service.StopPollInterval = time.Millisecond
	cfg.Service.StopMaxPolls = 3
	cfg.Service.ForceKillWait = time.Millisecond
	cfg.Service.StartTimeout = 100 * time.Millisecond
	cfg.Status.SDMount = filepath.Join(dir, "sdcard")
	cfg.Status.RecordingDir = filepath.Join(dir, "sdcard", "recordings")
	cfg.Migration.Marker = filepath.Join(dir, ".migrated")
	cfg.Migration.Settle = 0

	if ini != "" {
		if err := os.WriteFile(cfg.IniFile, []byte(ini), 0644); err != nil {
			t.Fatal(err)
		}
	}

	svc := testutil.NewFakeService(true)
	store := inistore.New(cfg.IniFile, inistore.WithLockTimeout(100*time.Millisecond))
	logger := logging.Discard()

	var out, errOut bytes.Buffer
	app := &App{
		Config:     cfg,
		ConfigPath: filepath.Join(dir, "lfcfg.yaml"),
		Store:      store,
		Service:    svc,
		Writer:     safewrite.New(store, svc, cfg.StopPolicy(), logger.Logger),
		Logger:     logger,
		Out:        &out,
		Err:        &errOut,
	}
	return &testEnv{App: app, Out: &out, Err: &errOut, Svc: svc, Dir: dir}
}

func readIni(t *testing.T, app *App) string {
	t.Helper()
	data, err := os.ReadFile(app.Config.IniFile)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func equalCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

var errFake = testutil.ErrFakeLaunch
