package main

import (
	"path/filepath"
	"testing"

	"github.com/ayusman/projmap/internal/app"
	"github.com/ayusman/projmap/internal/capture"
	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/store"
)

func TestSettingsURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}
	for _, tt := range tests {
		if got := settingsURL(tt.addr); got != tt.want {
			t.Errorf("settingsURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestFindDir(t *testing.T) {
	fallback := t.TempDir()

	if got := findDir("no-such-dir-here", fallback); got != fallback {
		t.Errorf("findDir() = %q, want fallback %q", got, fallback)
	}
	if got := findDir("no-such-dir-here", filepath.Join(fallback, "missing")); got != "" {
		t.Errorf("findDir() = %q, want empty", got)
	}
}

func TestOpenSource(t *testing.T) {
	_, name := openSource(Args{Device: 1})
	if name != "openni2:1" {
		t.Errorf("device source name = %q", name)
	}

	dir := t.TempDir()
	src, name := openSource(Args{Replay: dir})
	if name != "replay:"+dir {
		t.Errorf("replay source name = %q", name)
	}
	if src.IsOpen() {
		t.Error("source should not be opened yet")
	}
}

func TestRestoreParams_FlagSurvivesPreset(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	saved := params.DefaultParams()
	saved.Binarize.Thresh = 180
	preset := &store.Preset{Name: "evening", Params: saved}
	if err := st.Presets().Create(preset); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := st.Settings().Set(store.SettingActivePreset, preset.ID); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	tests := []struct {
		name string
		flag bool
	}{
		{"flag set", true},
		{"flag unset", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := params.NewStore(params.DefaultParams())
			a, err := app.New(app.Config{
				Source:   capture.NewMockSource(nil, false),
				Detector: detector.NewMockDetector(),
				Params:   live,
				Store:    st,
			})
			if err != nil {
				t.Fatalf("app.New() error = %v", err)
			}
			defer a.Close()

			if err := restoreParams(a, Args{ReliabilityFilter: tt.flag}, live); err != nil {
				t.Fatalf("restoreParams() error = %v", err)
			}

			got := live.Get()
			if got.Binarize.Thresh != 180 {
				t.Errorf("binarize.thresh = %d, want preset value 180", got.Binarize.Thresh)
			}
			if got.Depth.ReliabilityFilter != tt.flag {
				t.Errorf("reliability filter = %v, want %v", got.Depth.ReliabilityFilter, tt.flag)
			}
		})
	}
}
