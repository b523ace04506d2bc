package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), FileName))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestLoadKeepsMissingFieldsAtDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `{"theme": "equilux", "shape": "square", "alpha": 0.5}`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Theme != "equilux" || got.Shape != "square" || got.Alpha != 0.5 {
		t.Fatalf("display fields not loaded: %+v", got)
	}
	if got.CPUAlert != 90 || got.ProcessAlert != 50 || got.DaysToKeep != 7 {
		t.Fatalf("missing fields should keep defaults: %+v", got)
	}
}

func TestLoadResetsOutOfRangeFieldsIndividually(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `{"cpu_alert": 150, "ram_alert": 75, "days_to_keep": 0, "shape": "hexagon"}`)

	got, err := Load(path)
	if !errors.Is(err, ErrInvalidFields) {
		t.Fatalf("expected ErrInvalidFields, got %v", err)
	}
	if got.CPUAlert != 90 || got.DaysToKeep != 7 || got.Shape != "circle" {
		t.Fatalf("invalid fields not reset: %+v", got)
	}
	if got.RAMAlert != 75 {
		t.Fatalf("valid field lost: %+v", got)
	}
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, `{"cpu_alert": "high"`)

	got, err := Load(path)
	if err == nil || errors.Is(err, ErrInvalidFields) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	want := Defaults()
	want.Theme = "black"
	want.Alpha = 0.35
	want.ProcessAlert = 25
	want.DiscordWebhook = "https://discord.com/api/webhooks/1/abc"

	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	raw, _ := os.ReadFile(path)
	var keys map[string]any
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}
	for _, k := range []string{"cpu_alert", "ram_alert", "gpu_alert", "process_alert", "days_to_keep", "theme", "shape", "alpha"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("saved file missing key %q", k)
		}
	}
}

func TestSaveRejectsInvalidSettings(t *testing.T) {
	s := Defaults()
	s.GPUAlert = 0
	if err := Save(filepath.Join(t.TempDir(), FileName), s); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestOpenBootstrapsDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store := Open(path, nil)
	if store.Settings() != Defaults() {
		t.Fatalf("expected defaults, got %+v", store.Settings())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	if th := store.Thresholds(); th.CPUAlert != 90 || th.ProcessAlert != 50 {
		t.Fatalf("thresholds = %+v", th)
	}
	if store.RetentionDays() != 7 {
		t.Fatalf("retention = %d", store.RetentionDays())
	}
}

func TestStoreUpdateValidatesAndNotifies(t *testing.T) {
	store := Open(filepath.Join(t.TempDir(), FileName), nil)
	var seen []Settings
	store.OnReload(func(s Settings) { seen = append(seen, s) })

	if err := store.Update(func(s *Settings) { s.CPUAlert = 0 }); err == nil {
		t.Fatalf("expected invalid update to fail")
	}
	if store.Thresholds().CPUAlert != 90 {
		t.Fatalf("rejected update leaked into settings")
	}

	if err := store.Update(func(s *Settings) { s.CPUAlert = 70 }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if store.Thresholds().CPUAlert != 70 || len(seen) != 1 {
		t.Fatalf("update not applied: %+v, hooks=%d", store.Settings(), len(seen))
	}
	reloaded, err := Load(store.Path())
	if err != nil || reloaded.CPUAlert != 70 {
		t.Fatalf("update not persisted: %+v %v", reloaded, err)
	}
}

func TestStoreReloadKeepsSettingsOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store := Open(path, nil)
	if err := store.Update(func(s *Settings) { s.DaysToKeep = 30 }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	writeFile(t, path, "not json")
	if err := store.Reload(); err == nil {
		t.Fatalf("expected reload error")
	}
	if store.RetentionDays() != 30 {
		t.Fatalf("settings changed after failed reload: %d", store.RetentionDays())
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	store := Open(path, nil)

	reloaded := make(chan Settings, 4)
	store.OnReload(func(s Settings) { reloaded <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	next := Defaults()
	next.ProcessAlert = 33
	if err := Save(path, next); err != nil {
		t.Fatalf("Save: %v", err)
	}

	select {
	case s := <-reloaded:
		if s.ProcessAlert != 33 {
			t.Fatalf("reloaded settings = %+v", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("settings were not reloaded")
	}
	if store.Thresholds().ProcessAlert != 33 {
		t.Fatalf("store not updated")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}
