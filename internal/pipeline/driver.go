// Package pipeline drives the three-stage search: coarse generation into one
// buffer slot while the accelerator filters the other, with survivors handed
// to the verifier queue in order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/filter"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
	"github.com/samcharles93/seedscan/internal/verify"
)

var (
	// ErrStage wraps any stage failure that halted a run.
	ErrStage   = errors.New("pipeline stage failed")
	ErrRunning = errors.New("pipeline already running")
	ErrConfig  = errors.New("invalid pipeline configuration")
)

const (
	MaxBitsPerIter = 16
	MaxWorkers     = 256
	CursorMask     = layout.StructureSeedMask
)

type State int32

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Generator is stage 1. *coarse.Pool implements it.
type Generator interface {
	Generate(ctx context.Context, start, count uint64, workers int, sink coarse.Sink) error
}

// Filter is stage 2. *filter.Kernel implements it.
type Filter interface {
	Run(ctx context.Context, b *filter.Buffers) error
}

type Config struct {
	// Start is the first structure seed to scan, aligned down to the
	// iteration width.
	Start       uint64
	BitsPerIter int
	Workers     int
	// ReportEvery is the progress interval in iterations; 0 disables
	// progress callbacks.
	ReportEvery int
	// Iterations bounds the run; 0 runs until stopped.
	Iterations uint64
	RunID      string
}

func (c Config) validate() error {
	if c.BitsPerIter < 1 || c.BitsPerIter > MaxBitsPerIter {
		return fmt.Errorf("%w: bits per iteration %d outside [1, %d]", ErrConfig, c.BitsPerIter, MaxBitsPerIter)
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: worker count %d outside [1, %d]", ErrConfig, c.Workers, MaxWorkers)
	}
	if c.ReportEvery < 0 {
		return fmt.Errorf("%w: negative report interval", ErrConfig)
	}
	return nil
}

// Align rounds cursor down to a multiple of 2^bits inside the key space.
func Align(cursor uint64, bits int) uint64 {
	return cursor & CursorMask &^ (1<<bits - 1)
}

// Progress is a snapshot of a run. Cursor is the next structure seed not yet
// fully verified, so restarting there repeats no work and skips none.
// SeedsPerSecond and AcceleratorUtilization cover Interval, the time since
// the previous report.
type Progress struct {
	RunID                  string        `json:"run_id"`
	State                  string        `json:"state"`
	Elapsed                time.Duration `json:"elapsed"`
	Interval               time.Duration `json:"interval"`
	SeedsPerSecond         float64       `json:"seeds_per_second"`
	AcceleratorUtilization float64       `json:"accelerator_utilization"`
	Cursor                 uint64        `json:"cursor"`
	Iterations             uint64        `json:"iterations"`
	Workers                int           `json:"workers"`
	Verify                 verify.Stats  `json:"verify"`
}

type Result struct {
	// Stopped is set when the run ended on a stop request or cancellation
	// rather than a failure.
	Stopped    bool
	Cursor     uint64
	Iterations uint64
}

// Driver owns two buffer slots and the run state. One Run at a time.
type Driver struct {
	gen    Generator
	kernel Filter
	slots  [2]*filter.Buffers
	queue  *verify.Queue
	cfg    Config

	onProgress func(Progress)

	state   atomic.Int32
	stop    atomic.Bool
	workers atomic.Int32

	mu         sync.Mutex
	started    time.Time
	cursor     uint64
	iterations uint64
	accelTime  time.Duration

	// Report window.
	windowStart time.Time
	windowIters uint64
	windowAccel time.Duration
}

func New(gen Generator, kernel Filter, slots [2]*filter.Buffers, queue *verify.Queue, cfg Config) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	d := &Driver{
		gen:    gen,
		kernel: kernel,
		slots:  slots,
		queue:  queue,
		cfg:    cfg,
		cursor: Align(cfg.Start, cfg.BitsPerIter),
	}
	d.workers.Store(int32(cfg.Workers))
	return d, nil
}

// OnProgress registers the progress callback. It runs on the verifier's
// goroutine right after a report-boundary commit and must not block for
// long. Call before Run.
func (d *Driver) OnProgress(fn func(Progress)) {
	d.onProgress = fn
}

func (d *Driver) RunID() string { return d.cfg.RunID }

func (d *Driver) State() State { return State(d.state.Load()) }

// Stop asks the running loop to leave at the next iteration boundary. The
// iteration in flight still completes.
func (d *Driver) Stop() {
	d.stop.Store(true)
	d.state.CompareAndSwap(int32(Running), int32(Stopping))
}

// SetWorkers changes the stage-1 pool size from the next iteration on.
func (d *Driver) SetWorkers(n int) error {
	if n < 1 || n > MaxWorkers {
		return fmt.Errorf("%w: worker count %d outside [1, %d]", ErrConfig, n, MaxWorkers)
	}
	d.workers.Store(int32(n))
	return nil
}

func (d *Driver) Snapshot() Progress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Driver) snapshotLocked() Progress {
	p := Progress{
		RunID:      d.cfg.RunID,
		State:      d.State().String(),
		Cursor:     d.cursor,
		Iterations: d.iterations,
		Workers:    int(d.workers.Load()),
	}
	if d.queue != nil {
		p.Verify = d.queue.Stats()
	}
	if d.started.IsZero() {
		return p
	}
	now := time.Now()
	p.Elapsed = now.Sub(d.started)
	p.Interval = now.Sub(d.windowStart)
	if secs := p.Interval.Seconds(); secs > 0 {
		seeds := float64(d.iterations-d.windowIters) * float64(uint64(1)<<d.cfg.BitsPerIter) * kernelgen.InvocationsPerInput
		p.SeedsPerSecond = seeds / secs
		p.AcceleratorUtilization = (d.accelTime - d.windowAccel).Seconds() / secs
	}
	return p
}

func (d *Driver) resetWindowLocked() {
	d.windowStart = time.Now()
	d.windowIters = d.iterations
	d.windowAccel = d.accelTime
}

func stageErr(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStage, stage, err)
}

// Run scans until stopped, cancelled, bounded by Config.Iterations or halted
// by a stage failure. Cancelling ctx acts like Stop: it is observed between
// iterations and in-flight work runs to completion. A failure is returned as
// an error wrapping ErrStage; the returned cursor is then the last committed
// one.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	if !d.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return Result{}, ErrRunning
	}
	defer d.state.Store(int32(Idle))
	d.stop.Store(false)

	log := logger.FromContext(ctx).With("run_id", d.cfg.RunID)
	work := logger.WithContext(context.WithoutCancel(ctx), log)

	d.mu.Lock()
	d.started = time.Now()
	d.iterations = 0
	d.accelTime = 0
	d.resetWindowLocked()
	cursor := d.cursor
	d.mu.Unlock()

	width := uint64(1) << d.cfg.BitsPerIter
	log.Info("scan started",
		"cursor", cursor,
		"bits_per_iter", d.cfg.BitsPerIter,
		"workers", d.workers.Load(),
	)

	var (
		inflight  <-chan error
		fatal     error
		sometimes = rate.Sometimes{Interval: time.Second}
	)
	for i := uint64(0); ; i++ {
		if d.stop.Load() || ctx.Err() != nil || (d.cfg.Iterations > 0 && i >= d.cfg.Iterations) {
			break
		}
		if err := d.queue.Err(); err != nil {
			fatal = stageErr("verify", err)
			break
		}

		slot := d.slots[i%2]
		workers := int(d.workers.Load())
		if err := d.gen.Generate(work, cursor, width, workers, slot); err != nil {
			fatal = stageErr("generate", err)
			break
		}
		if inflight != nil {
			err := <-inflight
			inflight = nil
			if err != nil {
				fatal = err
				break
			}
		}
		sometimes.Do(func() {
			log.Debug("iteration", "index", i, "cursor", cursor, "candidates", slot.Len(), "workers", workers)
		})
		inflight = d.launch(work, slot, cursor, width, i)
		cursor = (cursor + width) & CursorMask
	}
	if inflight != nil {
		if err := <-inflight; err != nil && fatal == nil {
			fatal = err
		}
	}
	if err := d.queue.Flush(work); err != nil && fatal == nil {
		fatal = stageErr("verify", err)
	}

	d.mu.Lock()
	res := Result{Stopped: fatal == nil, Cursor: d.cursor, Iterations: d.iterations}
	d.mu.Unlock()
	if fatal != nil {
		log.Error("scan halted", "cursor", res.Cursor, "iterations", res.Iterations, "error", fatal)
		return res, fatal
	}
	log.Info("scan stopped", "cursor", res.Cursor, "iterations", res.Iterations)
	return res, nil
}

// launch runs the accelerator on b and forwards its survivors. The returned
// channel yields once survivors have been queued, after which b may be
// refilled.
func (d *Driver) launch(ctx context.Context, b *filter.Buffers, start, width, iter uint64) <-chan error {
	done := make(chan error, 1)
	go func() {
		t0 := time.Now()
		err := d.kernel.Run(ctx, b)
		d.mu.Lock()
		d.accelTime += time.Since(t0)
		d.mu.Unlock()
		if err != nil {
			done <- stageErr("filter", err)
			return
		}
		survivors, err := b.Survivors()
		if err != nil {
			done <- stageErr("filter", err)
			return
		}
		for _, s := range survivors {
			if err := d.queue.Submit(ctx, s); err != nil {
				done <- stageErr("verify", err)
				return
			}
		}
		next := (start + width) & CursorMask
		if err := d.queue.Barrier(ctx, func() { d.commit(next, iter) }); err != nil {
			done <- stageErr("verify", err)
			return
		}
		done <- nil
	}()
	return done
}

// commit runs on the verifier goroutine once every survivor of iteration iter
// has been verified.
func (d *Driver) commit(next, iter uint64) {
	d.mu.Lock()
	d.cursor = next
	d.iterations = iter + 1
	report := d.cfg.ReportEvery > 0 && d.iterations%uint64(d.cfg.ReportEvery) == 0
	var p Progress
	if report {
		p = d.snapshotLocked()
		d.resetWindowLocked()
	}
	d.mu.Unlock()
	if report && d.onProgress != nil {
		d.onProgress(p)
	}
}
