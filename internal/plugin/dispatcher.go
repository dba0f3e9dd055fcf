package plugin

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/juju/ratelimit"

	"github.com/ayusman/projmap/internal/cue"
)

// Runner executes one hook request. Executor is the production Runner.
type Runner interface {
	Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error)
}

// DispatchConfig tunes the hook dispatcher.
type DispatchConfig struct {
	// Rate is the sustained number of hook runs per second.
	Rate float64
	// Burst is the token bucket capacity.
	Burst int64
	// QueueSize bounds runs waiting for a worker.
	QueueSize int
	// Workers is the number of concurrent hook runs.
	Workers int
	// HistorySize is how many outcomes are kept for inspection.
	HistorySize int
	// Clock drives the token bucket. Nil uses the wall clock.
	Clock ratelimit.Clock
}

// DefaultDispatchConfig allows a little more than one hook per charge tone.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		Rate:        20,
		Burst:       20,
		QueueSize:   64,
		Workers:     2,
		HistorySize: 50,
	}
}

// Outcome records one hook run.
type Outcome struct {
	Plugin   string        `json:"plugin"`
	Event    cue.EventKind `json:"event"`
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// DispatchStats counts what happened to dispatched runs.
type DispatchStats struct {
	Queued    int `json:"queued"`
	Throttled int `json:"throttled"`
	Dropped   int `json:"dropped"`
	Failed    int `json:"failed"`
}

type job struct {
	plugin *Plugin
	event  cue.Event
}

// Dispatcher fans cue events out to subscribed hooks on a small worker pool.
// Runs beyond the token bucket rate are throttled and runs that find the
// queue full are dropped; Dispatch never blocks the frame loop.
type Dispatcher struct {
	manager *Manager
	runner  Runner
	cfg     DispatchConfig
	bucket  *ratelimit.Bucket
	queue   chan job

	mu      sync.Mutex
	closed  bool
	stats   DispatchStats
	history []Outcome

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Zero config fields take defaults.
func NewDispatcher(manager *Manager, runner Runner, cfg DispatchConfig) *Dispatcher {
	def := DefaultDispatchConfig()
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}

	var bucket *ratelimit.Bucket
	if cfg.Clock != nil {
		bucket = ratelimit.NewBucketWithRateAndClock(cfg.Rate, cfg.Burst, cfg.Clock)
	} else {
		bucket = ratelimit.NewBucketWithRate(cfg.Rate, cfg.Burst)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager: manager,
		runner:  runner,
		cfg:     cfg,
		bucket:  bucket,
		queue:   make(chan job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop cancels running hooks and waits for the workers. Queued runs are
// discarded.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.cancel()
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

// Dispatch queues a run for every hook subscribed to ev.Kind and returns how
// many were queued.
func (d *Dispatcher) Dispatch(ev cue.Event) int {
	queued := 0
	for _, p := range d.manager.Subscribers(ev.Kind) {
		if d.enqueue(job{plugin: p, event: ev}) {
			queued++
		}
	}
	return queued
}

func (d *Dispatcher) enqueue(j job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	if d.bucket.TakeAvailable(1) == 0 {
		d.stats.Throttled++
		return false
	}

	select {
	case d.queue <- j:
		d.stats.Queued++
		return true
	default:
		d.stats.Dropped++
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for j := range d.queue {
		if d.ctx.Err() != nil {
			continue
		}
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	start := time.Now()
	out := Outcome{
		Plugin: j.plugin.Manifest.Name,
		Event:  j.event.Kind,
		Time:   start,
	}

	resp, err := d.runner.Execute(d.ctx, j.plugin, NewRequest(j.event, j.plugin.Manifest.Config))
	out.Duration = time.Since(start)

	switch {
	case err != nil:
		out.Error = err.Error()
	case !resp.Success:
		out.Error = resp.Error
	default:
		out.Success = true
	}

	if !out.Success {
		log.Printf("hook %s on %s failed: %s", out.Plugin, out.Event, out.Error)
	}

	d.mu.Lock()
	if !out.Success {
		d.stats.Failed++
	}
	d.history = append(d.history, out)
	if over := len(d.history) - d.cfg.HistorySize; over > 0 {
		d.history = append(d.history[:0], d.history[over:]...)
	}
	d.mu.Unlock()
}

// Stats returns the dispatch counters.
func (d *Dispatcher) Stats() DispatchStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// History returns the most recent outcomes, oldest first.
func (d *Dispatcher) History() []Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Outcome(nil), d.history...)
}
