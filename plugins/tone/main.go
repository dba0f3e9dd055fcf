// Package main provides the tone hook. It synthesizes the charge tone for a
// cue event as a WAV file and plays it with the platform audio player.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/ayusman/projmap/internal/cue"
	"github.com/ayusman/projmap/internal/plugin"
)

// Config is read from the manifest config block.
type Config struct {
	// Player overrides the audio command. It receives the WAV path as its
	// only argument.
	Player string `json:"player"`
	// Seconds is the tone length.
	Seconds float64 `json:"seconds"`
	// DryRun writes the WAV file without playing it.
	DryRun bool `json:"dry_run"`
	// Dir receives the WAV files. Defaults to the OS temp dir.
	Dir string `json:"dir"`
}

// Result is reported back in the response data.
type Result struct {
	File      string `json:"file"`
	Frequency int    `json:"frequency"`
	Samples   int    `json:"samples"`
	Played    bool   `json:"played"`
}

// chimeFrequency is used for full and finish, which carry no charge tone.
const chimeFrequency = 880

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	res, err := handle(req)
	if err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("event %s failed: %v", req.Event, err)})
		return
	}

	data, _ := json.Marshal(res)
	writeResponse(plugin.Response{Success: true, Data: data})
}

func handle(req plugin.Request) (*Result, error) {
	cfg := Config{Seconds: cue.DefaultToneDuration.Seconds()}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Seconds <= 0 {
		return nil, fmt.Errorf("seconds must be positive")
	}

	freq := req.Frequency
	switch req.Event {
	case cue.EventTone:
		if freq <= 0 {
			freq = cue.Frequency(req.Percent)
		}
	case cue.EventFull, cue.EventFinish:
		freq = chimeFrequency
	default:
		return nil, fmt.Errorf("unknown event: %s", req.Event)
	}

	dir := cfg.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("projmap-%s-%d.wav", req.Event, freq))

	samples := cue.SineWave(cue.ToneSamples(cfg.Seconds), cue.SampleRate, freq)
	if err := writeFile(path, samples); err != nil {
		return nil, err
	}

	res := &Result{File: path, Frequency: freq, Samples: len(samples)}
	if cfg.DryRun {
		return res, nil
	}

	player := cfg.Player
	if player == "" {
		player = defaultPlayer()
	}
	if out, err := exec.Command(player, path).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", player, err, out)
	}
	res.Played = true
	return res, nil
}

func writeFile(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cue.WriteWAV(f, samples, cue.SampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func defaultPlayer() string {
	if runtime.GOOS == "darwin" {
		return "afplay"
	}
	return "aplay"
}

func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
