// Package app runs the depth pipeline: it polls a depth source, detects the
// circle gesture, stabilizes it, advances the cue and dispatches hooks.
package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/capture"
	"github.com/ayusman/projmap/internal/cue"
	"github.com/ayusman/projmap/internal/depth"
	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/diag"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/plugin"
	"github.com/ayusman/projmap/internal/stabilizer"
	"github.com/ayusman/projmap/internal/store"
	"github.com/ayusman/projmap/internal/vision"
)

// Pipeline timing constants.
const (
	// DefaultFPS is the tick rate of the frame loop. The sensor delivers 30
	// depth frames per second.
	DefaultFPS = 30
	// LogInterval limits how often an identical frame loop message is logged.
	LogInterval = 10 * time.Second
)

// ErrNoSnapshotDir is returned by Snapshot when no directory is configured.
var ErrNoSnapshotDir = errors.New("snapshot directory not configured")

// Config holds configuration options for the application.
type Config struct {
	Source capture.Source
	// SourceName is recorded with the session, e.g. "openni2:0".
	SourceName string
	// Detector defaults to the Hough detector.
	Detector detector.Detector
	// Params defaults to a store holding DefaultParams.
	Params *params.Store
	// Store enables the session and detection log when set.
	Store        *store.Store
	PluginDir    string
	FPS          int
	EmitOnStreak bool
	// CircleLog receives one line per raw circle when set.
	CircleLog    io.Writer
	SnapshotDir  string
	Projector    cue.Projector
	ToneDuration time.Duration
	Dispatch     plugin.DispatchConfig
	// Runner executes hooks. Defaults to a plugin.Executor.
	Runner plugin.Runner
}

// Status is a snapshot of the pipeline for readers outside the frame loop.
type Status struct {
	Enabled   bool              `json:"enabled"`
	Running   bool              `json:"running"`
	SessionID string            `json:"session_id,omitempty"`
	Frames    uint64            `json:"frames"`
	Skipped   uint64            `json:"skipped"`
	Seq       uint64            `json:"seq"`
	Updated   time.Time         `json:"updated"`
	Threshold float32           `json:"threshold"`
	Circles   []detector.Circle `json:"circles"`
	Result    stabilizer.Result `json:"result"`
	Signal    stabilizer.Signal `json:"signal"`
	Cue       cue.State         `json:"cue"`
}

// Snapshot names the files written by App.Snapshot.
type Snapshot struct {
	Image string `json:"image"`
	Raw   string `json:"raw,omitempty"`
}

// App is the main application that owns the frame loop and its state.
type App struct {
	config    Config
	source    capture.Source
	detector  detector.Detector
	processor *vision.Processor
	params    *params.Store
	pluginMgr *plugin.Manager
	limiter   *diag.LogLimiter

	// loopMu serializes frame passes with Reset.
	loopMu     sync.Mutex
	stabilizer *stabilizer.Stabilizer
	machine    *cue.Machine
	last       *depth.Frame

	mu         sync.RWMutex
	enabled    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	session    *store.Session
	sink       diag.Sink
	dispatcher *plugin.Dispatcher
	status     Status
}

// New creates a new App. The source is not opened until Start.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, errors.New("app: no depth source")
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Projector == (cue.Projector{}) {
		config.Projector = cue.DefaultProjector()
	}
	if config.Runner == nil {
		config.Runner = plugin.NewExecutor(plugin.DefaultTimeout)
	}

	processor, err := vision.NewDefaultProcessor()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	a := &App{
		config:     config,
		source:     config.Source,
		detector:   config.Detector,
		processor:  processor,
		params:     config.Params,
		pluginMgr:  plugin.NewManager(config.PluginDir),
		limiter:    diag.NewLogLimiter(LogInterval),
		stabilizer: stabilizer.New(stabilizer.WithEmitOnStreak(config.EmitOnStreak)),
		machine:    cue.NewMachine(config.Projector, config.ToneDuration),
		enabled:    true,
		sink:       diag.Nop{},
	}
	if a.detector == nil {
		a.detector = detector.NewHoughDetector()
	}
	if a.params == nil {
		a.params = params.NewStore(params.DefaultParams())
	}
	a.status.Enabled = true

	return a, nil
}

// SetEnabled pauses or resumes frame processing. The loop keeps ticking.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
	a.status.Enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// DiscoverPlugins scans the plugin directory for hooks.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// LoadActivePreset applies the preset recorded as active in the settings
// table. It is a no-op without a store or an active preset.
func (a *App) LoadActivePreset() error {
	if a.config.Store == nil {
		return nil
	}

	id, err := a.config.Store.Settings().Get(store.SettingActivePreset)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	preset, err := a.config.Store.Presets().GetByID(id)
	if err != nil {
		return fmt.Errorf("active preset %s: %w", id, err)
	}
	if err := a.params.Set(preset.Params); err != nil {
		return fmt.Errorf("active preset %s: %w", preset.Name, err)
	}

	log.Printf("Loaded preset %q", preset.Name)
	return nil
}

// Start opens the source, starts a session and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	var sinks diag.Multi
	if a.config.CircleLog != nil {
		sinks = append(sinks, diag.NewLogSink(a.config.CircleLog))
	}
	a.session = nil
	if a.config.Store != nil {
		session, err := a.config.Store.Sessions().Start(a.config.SourceName, a.params.Get())
		if err != nil {
			a.source.Close()
			return fmt.Errorf("start session: %w", err)
		}
		a.session = session
		sinks = append(sinks, diag.NewStoreSink(a.config.Store.Detections(), session.ID, diag.DefaultBatchSize))
	}
	a.sink = sinks

	a.dispatcher = plugin.NewDispatcher(a.pluginMgr, a.config.Runner, a.config.Dispatch)
	a.dispatcher.Start()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.status.Running = true
	if a.session != nil {
		a.status.SessionID = a.session.ID
	}
	go a.run(a.stopCh, a.doneCh)

	log.Println("Depth pipeline started")
	return nil
}

// Stop halts the frame loop, ends the session and closes the source.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	doneCh := a.doneCh
	a.stopCh = nil
	a.mu.Unlock()

	<-doneCh

	a.mu.Lock()
	defer a.mu.Unlock()

	a.dispatcher.Stop()

	if err := a.sink.Close(); err != nil {
		log.Printf("Error flushing diagnostics: %v", err)
	}
	a.sink = diag.Nop{}

	if a.session != nil {
		if err := a.config.Store.Sessions().End(a.session.ID); err != nil {
			log.Printf("Error ending session: %v", err)
		}
	}

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}

	a.status.Running = false
	log.Println("Depth pipeline stopped")
}

// Close stops the pipeline and releases the detector and working images.
func (a *App) Close() {
	a.Stop()

	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	a.processor.Close()
}

// Reset clears the stabilizer history and the cue.
func (a *App) Reset() {
	a.loopMu.Lock()
	a.stabilizer.Reset()
	a.machine.Reset()
	a.loopMu.Unlock()

	a.mu.Lock()
	a.status.Signal = stabilizer.Signal{}
	a.status.Result = stabilizer.Result{}
	a.status.Cue = cue.State{}
	a.mu.Unlock()
}

// Signal returns the current stabilized signal.
func (a *App) Signal() stabilizer.Signal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.Signal
}

// Cue returns the cue state of the last tick.
func (a *App) Cue() cue.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.Cue
}

// Status returns a copy of the pipeline status.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.status
	s.Circles = append([]detector.Circle(nil), a.status.Circles...)
	return s
}

// SessionID returns the id of the running session, or "".
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status.SessionID
}

// EncodeView encodes one of the working images of the last frame.
func (a *App) EncodeView(view vision.View, ext gocv.FileExt) ([]byte, error) {
	return a.processor.Encode(view, ext)
}

// Snapshot writes the depth view of the last frame as PNG into the snapshot
// directory, along with the raw 16-bit frame.
func (a *App) Snapshot() (*Snapshot, error) {
	if a.config.SnapshotDir == "" {
		return nil, ErrNoSnapshotDir
	}
	if err := os.MkdirAll(a.config.SnapshotDir, 0755); err != nil {
		return nil, err
	}

	a.loopMu.Lock()
	last := a.last
	a.loopMu.Unlock()

	stamp := time.Now().Format("20060102-150405.000")
	snap := &Snapshot{Image: filepath.Join(a.config.SnapshotDir, "depth-"+stamp+".png")}
	if err := a.processor.WriteFile(vision.ViewDepth, snap.Image); err != nil {
		return nil, err
	}

	if last != nil {
		raw := filepath.Join(a.config.SnapshotDir, "raw-"+stamp+".png")
		if err := capture.SaveFrame(last, raw); err != nil {
			log.Printf("Error saving raw frame: %v", err)
		} else {
			snap.Raw = raw
		}
	}

	log.Printf("Snapshot saved to %s", snap.Image)
	return snap, nil
}

// Params returns the live parameter store.
func (a *App) Params() *params.Store {
	return a.params
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// HookStats returns dispatch counters and recent outcomes. Both are empty
// before the first Start.
func (a *App) HookStats() (plugin.DispatchStats, []plugin.Outcome) {
	a.mu.RLock()
	d := a.dispatcher
	a.mu.RUnlock()

	if d == nil {
		return plugin.DispatchStats{}, nil
	}
	return d.Stats(), d.History()
}
