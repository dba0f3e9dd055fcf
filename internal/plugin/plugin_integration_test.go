package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/projmap/internal/cue"
)

func TestPlugin_Tone_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	if runtime.GOOS == "windows" {
		t.Skip("tone plugin is not built on Windows")
	}

	// Find the built plugin
	pluginDir := findPluginDir("tone")
	if pluginDir == "" {
		t.Skip("tone plugin not found")
	}
	if _, err := os.Stat(filepath.Join(pluginDir, "tone")); err != nil {
		t.Skip("tone plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir))
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("tone")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !plug.Manifest.Subscribes(cue.EventTone) {
		t.Error("tone plugin should subscribe to tone events")
	}

	// Dry run so the test does not need an audio device.
	config, _ := json.Marshal(map[string]any{
		"seconds": 0.05,
		"dry_run": true,
		"dir":     t.TempDir(),
	})
	req := NewRequest(cue.Event{Kind: cue.EventTone, Percent: 60, Frequency: cue.Frequency(60), Time: time.Now()}, config)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got error %q", resp.Error)
	}

	var data struct {
		File      string `json:"file"`
		Frequency int    `json:"frequency"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to parse data: %v", err)
	}
	if data.Frequency != cue.Frequency(60) {
		t.Errorf("expected frequency %d, got %d", cue.Frequency(60), data.Frequency)
	}
	if _, err := os.Stat(data.File); err != nil {
		t.Errorf("wav file missing: %v", err)
	}

	// Unknown events are rejected by the hook itself.
	req.Event = "explode"
	resp, err = NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for unknown event")
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
			return dir
		}
	}
	return ""
}
