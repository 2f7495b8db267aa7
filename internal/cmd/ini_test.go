package cmd

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGetCmd(t *testing.T) {
	env := setupTestApp(t, testIni)

	cmd := newGetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"video.0", "max_rate"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got := strings.TrimSpace(env.Out.String()); got != "2048" {
		t.Errorf("get video.0 max_rate = %q, want %q", got, "2048")
	}
}

func TestGetCmd_NotSet(t *testing.T) {
	env := setupTestApp(t, testIni)

	cmd := newGetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"video.0", "gop"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got := strings.TrimSpace(env.Out.String()); got != "[video.0] gop (not set)" {
		t.Errorf("get missing key = %q", got)
	}
}

func TestGetCmd_MissingFile(t *testing.T) {
	env := setupTestApp(t, "")

	cmd := newGetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"storage.0", "enable"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get on a missing file should not fail: %v", err)
	}
	if !strings.Contains(env.Out.String(), "(not set)") {
		t.Errorf("output = %q, want (not set)", env.Out.String())
	}
}

func TestGetCmd_JSON(t *testing.T) {
	env := setupTestApp(t, testIni)
	env.App.JSON = true

	cmd := newGetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"storage.0", "folder_name"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(env.Out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if result["value"] != "recordings" || result["found"] != true {
		t.Errorf("unexpected JSON: %v", result)
	}
}

func TestSetCmd_StopsAndRestartsService(t *testing.T) {
	env := setupTestApp(t, testIni)

	cmd := newSetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"storage.0", "enable", "1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if !strings.Contains(readIni(t, env.App), "[storage.0]\nenable = 1\nfolder_name = recordings\n") {
		t.Errorf("file not updated in place:\n%s", readIni(t, env.App))
	}
	if calls := env.Svc.Calls(); !equalCalls(calls, []string{"term", "launch"}) {
		t.Errorf("service calls = %v, want [term launch]", calls)
	}
	if !env.Svc.Alive() {
		t.Error("service should be running again")
	}
	if !strings.Contains(env.Out.String(), "[storage.0] enable = 1") {
		t.Errorf("output = %q", env.Out.String())
	}
}

func TestSetCmd_Raw(t *testing.T) {
	env := setupTestApp(t, testIni)

	cmd := newSetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"--raw", "network", "dhcp", "1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("set --raw failed: %v", err)
	}

	if !strings.HasSuffix(readIni(t, env.App), "\n[network]\ndhcp = 1\n") {
		t.Errorf("section not appended:\n%s", readIni(t, env.App))
	}
	if calls := env.Svc.Calls(); len(calls) != 0 {
		t.Errorf("--raw should not touch the service, got %v", calls)
	}
}

func TestSetCmd_InvalidEntry(t *testing.T) {
	env := setupTestApp(t, testIni)

	cmd := newSetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"--raw", "video.0", "bad=key", "1"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a key containing '='")
	}
	if got := readIni(t, env.App); got != testIni {
		t.Errorf("file changed on error:\n%s", got)
	}
}

func TestSetCmd_LaunchFailureWarns(t *testing.T) {
	env := setupTestApp(t, testIni)
	env.Svc.LaunchErr = errFake

	cmd := newSetCmd(NewTestProvider(env.App))
	cmd.SetArgs([]string{"storage.0", "enable", "1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("a launch failure should not fail the write: %v", err)
	}
	if !strings.Contains(env.Err.String(), "service not restarted") {
		t.Errorf("stderr = %q, want a restart warning", env.Err.String())
	}
	if !strings.Contains(readIni(t, env.App), "enable = 1") {
		t.Error("file not updated")
	}
}
