package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/projmap/internal/app"
	"github.com/ayusman/projmap/internal/capture"
	"github.com/ayusman/projmap/internal/depth"
	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/diag"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/server"
	"github.com/ayusman/projmap/internal/store"
	"github.com/ayusman/projmap/testdata"
)

func getJSON(t *testing.T, client *http.Client, url string, v any) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// diskFrames is a loop of one empty frame followed by a steady disk.
func diskFrames() []*depth.Frame {
	return testdata.Sequence(10, func(i int) *depth.Frame {
		if i == 0 {
			return testdata.Background(testdata.BackgroundMM)
		}
		return testdata.Disk(100, 75, 40, testdata.ObjectMM)
	})
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	live := params.NewStore(params.DefaultParams())
	application, err := app.New(app.Config{
		Source:      capture.NewMockSource(diskFrames(), true),
		SourceName:  "mock",
		Detector:    detector.NewHoughDetector(),
		Params:      live,
		Store:       s,
		PluginDir:   filepath.Join(tmpDir, "plugins"),
		FPS:         100,
		SnapshotDir: filepath.Join(tmpDir, "snapshots"),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	srv := server.New(server.Config{
		Store:     s,
		Params:    live,
		Pipeline:  application,
		Plugins:   application.PluginManager(),
		HookStats: application.HookStats,
	})
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	sessionID := application.SessionID()

	t.Run("SignalConverges", func(t *testing.T) {
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			var st app.Status
			getJSON(t, client, ts.URL+"/api/signal", &st)
			sig := st.Signal
			if !sig.IsZero() {
				if d := sig.X - 100; d < -3 || d > 3 {
					t.Errorf("signal x = %d, want about 100", sig.X)
				}
				if d := sig.Radius - 40; d < -3 || d > 3 {
					t.Errorf("signal radius = %d, want about 40", sig.Radius)
				}
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatal("signal never left zero")
	})

	t.Run("Snapshot", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/snapshot", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/snapshot error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	t.Run("TuneParams", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/params", strings.NewReader(`{"circle":{"param2":25}}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/params error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if live.Get().Circle.Param2 != 25 {
			t.Errorf("param2 = %d, want 25", live.Get().Circle.Param2)
		}
	})

	application.Stop()

	t.Run("SessionRecorded", func(t *testing.T) {
		var session struct {
			ID     string `json:"id"`
			Frames int    `json:"frames"`
		}
		if code := getJSON(t, client, ts.URL+"/api/sessions/"+sessionID, &session); code != http.StatusOK {
			t.Fatalf("GET session status = %d", code)
		}
		if session.Frames == 0 {
			t.Error("no detections were logged")
		}

		var stats diag.Stats
		getJSON(t, client, ts.URL+"/api/sessions/"+sessionID+"/stats", &stats)
		if stats.Frames != session.Frames {
			t.Errorf("stats frames = %d, want %d", stats.Frames, session.Frames)
		}
		if stats.Recorded == 0 || stats.HitRate <= 0.5 {
			t.Errorf("stats = %+v, expected mostly recorded frames", stats)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		var health map[string]any
		if code := getJSON(t, client, ts.URL+"/api/health", &health); code != http.StatusOK {
			t.Fatalf("health check failed after app operations")
		}
		if health["running"] != false {
			t.Errorf("running = %v after Stop", health["running"])
		}
	})
}

func TestE2E_PresetRestoredOnStartup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	// First run: save and apply a preset over HTTP.
	first := params.NewStore(params.DefaultParams())
	srv := server.New(server.Config{Store: s, Params: first})
	ts := httptest.NewServer(srv)

	tuned := params.DefaultParams()
	tuned.Binarize.Manual = true
	tuned.Binarize.Thresh = 180
	body, _ := json.Marshal(map[string]any{"name": "evening", "params": tuned})

	resp, err := ts.Client().Post(ts.URL+"/api/presets", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST /api/presets error = %v", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	resp, err = ts.Client().Post(ts.URL+"/api/presets/"+created.ID+"/apply", "application/json", nil)
	if err != nil {
		t.Fatalf("apply error = %v", err)
	}
	resp.Body.Close()
	ts.Close()
	srv.Close()

	// Second run: the app picks the active preset back up.
	second := params.NewStore(params.DefaultParams())
	application, err := app.New(app.Config{
		Source:   capture.NewMockSource(nil, false),
		Detector: detector.NewMockDetector(),
		Params:   second,
		Store:    s,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	if err := application.LoadActivePreset(); err != nil {
		t.Fatalf("LoadActivePreset() error = %v", err)
	}
	got := second.Get().Binarize
	if !got.Manual || got.Thresh != 180 {
		t.Errorf("binarize = %+v, want manual 180", got)
	}
}
