package app

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/projmap/internal/depth"
	"github.com/ayusman/projmap/internal/detector"
	"github.com/ayusman/projmap/internal/diag"
	"github.com/ayusman/projmap/internal/stabilizer"
)

// run is the frame loop. Each tick acquires the newest frame, if any, runs
// one synchronous pass and advances the cue.
func (a *App) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			a.Tick(now)
		}
	}
}

// Tick runs one loop iteration at time now. Without a new frame the pass is
// skipped and the previous signal is kept; the cue still advances with it.
// It reports whether a frame was processed.
func (a *App) Tick(now time.Time) bool {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()

	f, ok := a.source.TryAcquireLatest()
	processed := false
	if ok {
		processed = a.process(f, now)
	}

	state, events := a.machine.Step(a.stabilizer.Current(), now)

	a.mu.Lock()
	a.status.Cue = state
	d := a.dispatcher
	a.mu.Unlock()

	if d != nil {
		for _, ev := range events {
			d.Dispatch(ev)
		}
	}
	return processed
}

// Process runs a single pass over f without touching the source or the cue.
func (a *App) Process(f *depth.Frame, now time.Time) (stabilizer.Result, bool) {
	a.loopMu.Lock()
	defer a.loopMu.Unlock()

	if !a.process(f, now) {
		return stabilizer.Result{}, false
	}
	return a.Status().Result, true
}

func (a *App) process(f *depth.Frame, now time.Time) bool {
	prm := a.params.Get()

	edges, ok := a.processor.Prepare(f, prm)
	if !ok {
		if f != nil {
			a.limiter.Printf("Skipping frame: expected %dx%d depth frame, got %dx%d", depth.Width, depth.Height, f.Width, f.Height)
		}
		a.skip()
		return false
	}

	shapes, err := a.detector.Detect(edges, prm)
	if err != nil {
		a.limiter.Printf("Error detecting shapes: %v", err)
		a.skip()
		return false
	}

	res := a.stabilizer.Update(shapes.Observations())
	a.last = f

	a.processor.Draw(func(canvas *gocv.Mat) {
		detector.Render(shapes, canvas)
		if !res.Signal.IsZero() {
			detector.RenderSignal(res.Signal, canvas)
		}
	})
	threshold := a.processor.Threshold()

	a.mu.Lock()
	a.status.Frames++
	a.status.Seq = f.Seq
	a.status.Updated = now
	a.status.Threshold = threshold
	a.status.Circles = append(a.status.Circles[:0], shapes.Circles...)
	a.status.Result = res
	a.status.Signal = res.Signal
	sink := a.sink
	a.mu.Unlock()

	sink.Record(diag.Record{
		Seq:       f.Seq,
		Time:      now,
		Shapes:    shapes,
		Threshold: threshold,
		Result:    res,
	})
	return true
}

func (a *App) skip() {
	a.mu.Lock()
	a.status.Skipped++
	a.mu.Unlock()
}
