package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	arg "github.com/alexflint/go-arg"

	"github.com/ayusman/projmap/internal/app"
	"github.com/ayusman/projmap/internal/capture"
	"github.com/ayusman/projmap/internal/params"
	"github.com/ayusman/projmap/internal/server"
	"github.com/ayusman/projmap/internal/store"
	"github.com/ayusman/projmap/internal/tray"
)

var version = "<not set>"

// Args are the command line options.
type Args struct {
	Device            int    `arg:"-d,--device" help:"OpenNI2 depth device index"`
	Replay            string `arg:"-r,--replay" help:"replay 16-bit PNG depth frames from this directory instead of the device"`
	Params            string `arg:"-p,--params" help:"YAML parameter file"`
	DB                string `arg:"--db" help:"SQLite database path"`
	Addr              string `arg:"-a,--addr" help:"HTTP listen address"`
	Plugins           string `arg:"--plugins" help:"hook plugin directory"`
	Diagnostics       bool   `arg:"--diagnostics" help:"print every detected circle"`
	FPS               int    `arg:"--fps" help:"frame loop rate"`
	Tray              bool   `arg:"--tray" help:"show the system tray menu"`
	Web               string `arg:"--web" help:"static web directory"`
	EmitOnStreak      bool   `arg:"--emit-on-streak" help:"publish the average on every successful frame"`
	ReliabilityFilter bool   `arg:"--reliability-filter" help:"map samples outside the reliable range to 0"`
}

func (Args) Version() string {
	return version
}

func (Args) Description() string {
	return "projmap - track a circle in front of a depth sensor and drive a projected cue"
}

func procArgs() Args {
	var args Args
	args.Addr = ":8080"
	args.FPS = app.DefaultFPS
	arg.MustParse(&args)
	return args
}

func main() {
	if err := runMain(); err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()
	log.Printf("running version: %s", version)

	dataDir, err := dataDir()
	if err != nil {
		return err
	}
	if args.DB == "" {
		args.DB = filepath.Join(dataDir, "projmap.db")
	}
	if args.Params == "" {
		args.Params = filepath.Join(dataDir, "params.yaml")
	}
	if args.Plugins == "" {
		args.Plugins = findDir("plugins", filepath.Join(dataDir, "plugins"))
	}
	if args.Web == "" {
		args.Web = findDir("web", filepath.Join(dataDir, "web"))
	}

	p, err := params.Load(args.Params)
	if err != nil {
		return err
	}
	live := params.NewStore(p)

	st, err := store.New(args.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	source, sourceName := openSource(args)

	var circleLog io.Writer
	if args.Diagnostics {
		circleLog = os.Stdout
	}

	a, err := app.New(app.Config{
		Source:       source,
		SourceName:   sourceName,
		Params:       live,
		Store:        st,
		PluginDir:    args.Plugins,
		FPS:          args.FPS,
		EmitOnStreak: args.EmitOnStreak,
		CircleLog:    circleLog,
		SnapshotDir:  filepath.Join(dataDir, "snapshots"),
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := restoreParams(a, args, live); err != nil {
		return err
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Error discovering plugins: %v", err)
	}
	if err := a.Start(); err != nil {
		return err
	}

	srv := server.New(server.Config{
		StaticDir:  args.Web,
		Store:      st,
		Params:     live,
		ParamsFile: args.Params,
		Pipeline:   a,
		Plugins:    a.PluginManager(),
		HookStats:  a.HookStats,
	})
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", args.Addr)
		if err := srv.ListenAndServe(args.Addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if !args.Tray {
		select {
		case err := <-errCh:
			return err
		case s := <-sigCh:
			log.Printf("Received %v, shutting down", s)
			return nil
		}
	}

	// systray needs the main goroutine.
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnReset(a.Reset)
	t.OnSettings(func() { openBrowser(settingsURL(args.Addr)) })

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case err := <-errCh:
				log.Printf("Server failed: %v", err)
				t.Quit()
				return
			case <-sigCh:
				t.Quit()
				return
			case <-ticker.C:
				s := a.Status()
				t.SetEnabled(s.Enabled)
				t.SetStatus(s.Signal, s.Cue)
			}
		}
	}()

	t.Run()
	close(stop)
	return nil
}

// restoreParams loads the active preset and then layers the command line
// switches over it, so a flag survives a preset that does not set it.
func restoreParams(a *app.App, args Args, live *params.Store) error {
	if err := a.LoadActivePreset(); err != nil {
		log.Printf("Error loading active preset: %v", err)
	}
	if !args.ReliabilityFilter {
		return nil
	}
	_, err := live.Update(func(p *params.Params) error {
		p.Depth.ReliabilityFilter = true
		return nil
	})
	return err
}

func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".projmap")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func openSource(args Args) (capture.Source, string) {
	if args.Replay != "" {
		log.Printf("Replaying depth frames from %s", args.Replay)
		return capture.NewReplaySource(args.Replay, true), "replay:" + args.Replay
	}
	return capture.NewDeviceSource(args.Device), fmt.Sprintf("openni2:%d", args.Device)
}

// findDir returns the first existing directory among name, ../name,
// ../../name and fallback, or "".
func findDir(name, fallback string) string {
	candidates := []string{name, filepath.Join("..", name), filepath.Join("..", "..", name), fallback}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	cmd := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "windows":
		cmd = "explorer"
	}
	if err := exec.Command(cmd, url).Start(); err != nil {
		log.Printf("Error opening browser: %v", err)
	}
}
