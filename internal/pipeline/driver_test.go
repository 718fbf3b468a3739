package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samcharles93/seedscan/internal/accel"
	"github.com/samcharles93/seedscan/internal/backend/cpu"
	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/filter"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/verify"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

type span struct{ start, count uint64 }

// fakeGen records requested ranges and whether stage 1 ran while the
// accelerator was busy.
type fakeGen struct {
	mu       sync.Mutex
	spans    []span
	workers  []int
	failAt   int
	filter   *fakeFilter
	overlaps int
	onCall   func(i int)
}

func (g *fakeGen) Generate(ctx context.Context, start, count uint64, workers int, sink coarse.Sink) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failAt > 0 && len(g.spans) == g.failAt {
		return errors.New("layout worker crashed")
	}
	if g.onCall != nil {
		g.onCall(len(g.spans))
	}
	g.spans = append(g.spans, span{start, count})
	g.workers = append(g.workers, workers)
	if g.filter != nil && g.filter.running.Load() > 0 {
		g.overlaps++
	}
	time.Sleep(time.Millisecond)
	return sink.SetInputs(nil)
}

type fakeFilter struct {
	running atomic.Int32
	runs    atomic.Int32
	maxSeen atomic.Int32
	delay   time.Duration
	fail    error
}

func (f *fakeFilter) Run(ctx context.Context, b *filter.Buffers) error {
	n := f.running.Add(1)
	defer f.running.Add(-1)
	if n > f.maxSeen.Load() {
		f.maxSeen.Store(n)
	}
	f.runs.Add(1)
	time.Sleep(f.delay)
	return f.fail
}

type acceptAll struct{}

func (acceptAll) Verify(context.Context, layout.Survivor) (bool, error) { return true, nil }
func (acceptAll) Close() error                                          { return nil }

func newSlots(t *testing.T) [2]*filter.Buffers {
	t.Helper()
	s := accel.NewSession(cpu.New(2))
	t.Cleanup(func() { _ = s.Close() })
	var slots [2]*filter.Buffers
	for i := range slots {
		b, err := filter.NewBuffers(s)
		require.NoError(t, err)
		slots[i] = b
	}
	return slots
}

func newQueue(t *testing.T) *verify.Queue {
	q := verify.NewQueue(context.Background(), acceptAll{}, 0, nil)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestAlign(t *testing.T) {
	t.Parallel()

	require.Equal(t, uint64(0x1200), Align(0x12ab, 8))
	require.Equal(t, uint64(0), Align(1<<48, 4))
	require.Equal(t, uint64(1<<48-16), Align(1<<48-1, 4))
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{BitsPerIter: 0, Workers: 1},
		{BitsPerIter: 17, Workers: 1},
		{BitsPerIter: 4, Workers: 0},
		{BitsPerIter: 4, Workers: 257},
		{BitsPerIter: 4, Workers: 1, ReportEvery: -1},
	} {
		_, err := New(nil, nil, [2]*filter.Buffers{}, nil, cfg)
		require.ErrorIs(t, err, ErrConfig, "%+v", cfg)
	}
}

func TestRunOverlapsStageOneWithAccelerator(t *testing.T) {
	t.Parallel()

	f := &fakeFilter{delay: 5 * time.Millisecond}
	g := &fakeGen{filter: f}
	d, err := New(g, f, newSlots(t), newQueue(t), Config{BitsPerIter: 4, Workers: 3, Iterations: 12})
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Stopped)
	require.Equal(t, uint64(12), res.Iterations)
	require.Equal(t, uint64(12*16), res.Cursor)
	require.Equal(t, int32(12), f.runs.Load())
	require.Equal(t, int32(1), f.maxSeen.Load(), "more than one accelerator run in flight")
	require.Positive(t, g.overlaps, "stage 1 never ran during an accelerator run")
	for i, s := range g.spans {
		require.Equal(t, span{uint64(i) * 16, 16}, s)
	}
	require.Equal(t, Idle, d.State())
}

func TestStopAndResumeScansNextRange(t *testing.T) {
	t.Parallel()

	const bits = 5
	start := uint64(7 << 20)
	f := &fakeFilter{}
	g := &fakeGen{}
	d, err := New(g, f, newSlots(t), newQueue(t), Config{Start: start + 3, BitsPerIter: bits, Workers: 1, ReportEvery: 1})
	require.NoError(t, err)
	var reports []Progress
	d.OnProgress(func(p Progress) {
		reports = append(reports, p)
		if p.Iterations == 3 {
			d.Stop()
		}
	})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Stopped)
	require.GreaterOrEqual(t, res.Iterations, uint64(3))
	require.Equal(t, start+res.Iterations<<bits, res.Cursor)
	require.Len(t, g.spans, int(res.Iterations), "every generated range is committed on a graceful stop")
	require.Len(t, reports, int(res.Iterations))
	for i, p := range reports {
		require.Equal(t, uint64(i+1), p.Iterations)
		require.Equal(t, start+uint64(i+1)<<bits, p.Cursor)
	}

	g2 := &fakeGen{}
	d2, err := New(g2, f, newSlots(t), newQueue(t), Config{Start: res.Cursor, BitsPerIter: bits, Workers: 1, Iterations: 2})
	require.NoError(t, err)
	res2, err := d2.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, span{res.Cursor, 1 << bits}, g2.spans[0])

	last := g.spans[len(g.spans)-1]
	require.Equal(t, last.start+last.count, g2.spans[0].start, "gap or overlap on resume")
	require.Equal(t, res.Cursor+2<<bits, res2.Cursor)
}

func TestCancelActsAsStop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFilter{delay: time.Millisecond}
	d, err := New(&fakeGen{}, f, newSlots(t), newQueue(t), Config{BitsPerIter: 2, Workers: 1, ReportEvery: 1})
	require.NoError(t, err)
	d.OnProgress(func(p Progress) {
		if p.Iterations == 2 {
			cancel()
		}
	})
	res, err := d.Run(ctx)
	require.NoError(t, err)
	require.True(t, res.Stopped)
	require.Equal(t, res.Iterations<<2, res.Cursor)
}

func TestGeneratorFailurePreservesCursor(t *testing.T) {
	t.Parallel()

	f := &fakeFilter{}
	g := &fakeGen{failAt: 4}
	d, err := New(g, f, newSlots(t), newQueue(t), Config{BitsPerIter: 3, Workers: 2})
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrStage)
	require.ErrorContains(t, err, "layout worker crashed")
	require.False(t, res.Stopped)
	require.Equal(t, uint64(4), res.Iterations)
	require.Equal(t, uint64(4<<3), res.Cursor)
}

func TestFilterFailureIsDistinctFromStop(t *testing.T) {
	t.Parallel()

	f := &fakeFilter{fail: filter.ErrCapacity}
	d, err := New(&fakeGen{}, f, newSlots(t), newQueue(t), Config{Start: 1 << 10, BitsPerIter: 4, Workers: 1})
	require.NoError(t, err)

	res, err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrStage)
	require.ErrorIs(t, err, filter.ErrCapacity)
	require.False(t, res.Stopped)
	require.Equal(t, uint64(1<<10), res.Cursor, "cursor must not advance past a failed run")
}

func TestCursorWraps(t *testing.T) {
	t.Parallel()

	g := &fakeGen{}
	d, err := New(g, &fakeFilter{}, newSlots(t), newQueue(t), Config{Start: CursorMask, BitsPerIter: 4, Workers: 1, Iterations: 2})
	require.NoError(t, err)
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []span{{1<<48 - 16, 16}, {0, 16}}, g.spans)
	require.Equal(t, uint64(16), res.Cursor)
}

func TestSetWorkersAppliesNextIteration(t *testing.T) {
	t.Parallel()

	g := &fakeGen{}
	d, err := New(g, &fakeFilter{}, newSlots(t), newQueue(t), Config{BitsPerIter: 1, Workers: 4, Iterations: 6})
	require.NoError(t, err)
	var setErr error
	g.onCall = func(i int) {
		if i == 2 {
			setErr = d.SetWorkers(2)
		}
	}
	require.ErrorIs(t, d.SetWorkers(0), ErrConfig)

	_, err = d.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, setErr)
	require.Equal(t, []int{4, 4, 4, 2, 2, 2}, g.workers)
	require.Equal(t, 2, d.Snapshot().Workers)
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	f := &fakeFilter{}
	g := &blockingGen{release: release}
	d, err := New(g, f, newSlots(t), newQueue(t), Config{BitsPerIter: 1, Workers: 1, Iterations: 1})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := d.Run(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return d.State() == Running }, time.Second, time.Millisecond)
	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, ErrRunning)
	d.Stop()
	require.Equal(t, Stopping, d.State())
	close(release)
	require.NoError(t, <-errc)
}

func TestProgressRatesCoverReportInterval(t *testing.T) {
	t.Parallel()

	d, err := New(nil, nil, [2]*filter.Buffers{}, nil, Config{BitsPerIter: 2, Workers: 1, ReportEvery: 2})
	require.NoError(t, err)
	var reports []Progress
	d.OnProgress(func(p Progress) { reports = append(reports, p) })

	now := time.Now()
	d.mu.Lock()
	d.started = now.Add(-10 * time.Second)
	d.iterations = 7
	d.accelTime = 9 * time.Second
	d.windowStart = now.Add(-time.Second)
	d.windowIters = 6
	d.windowAccel = 9*time.Second - 500*time.Millisecond
	d.mu.Unlock()

	p := d.Snapshot()
	require.GreaterOrEqual(t, p.Elapsed, 10*time.Second)
	require.Less(t, p.Interval, 2*time.Second)
	require.InDelta(t, 0.5, p.AcceleratorUtilization, 0.05, "busy time before the window must not count")
	require.InDelta(t, float64(4*kernelgen.InvocationsPerInput), p.SeedsPerSecond, float64(kernelgen.InvocationsPerInput))

	d.commit(8, 7)
	require.Len(t, reports, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	require.Equal(t, uint64(8), d.windowIters, "a report starts a new window")
	require.Equal(t, d.accelTime, d.windowAccel)
	require.WithinDuration(t, time.Now(), d.windowStart, time.Second)
}

type blockingGen struct{ release chan struct{} }

func (g *blockingGen) Generate(ctx context.Context, start, count uint64, workers int, sink coarse.Sink) error {
	<-g.release
	return sink.SetInputs(nil)
}

func TestEndToEndOnCPU(t *testing.T) {
	t.Parallel()

	const (
		bits       = 6
		filterBits = 12
		iterations = 3
	)
	ctx := context.Background()
	s := accel.NewSession(cpu.New(4))
	defer s.Close()

	ranges, err := xrsr.MakeRanges(xrsr.DefaultFieldSpecs)
	require.NoError(t, err)
	kernel, err := filter.NewKernel(ctx, s, filter.Config{Ranges: ranges, FilterBits: filterBits})
	require.NoError(t, err)
	var slots [2]*filter.Buffers
	for i := range slots {
		slots[i], err = filter.NewBuffers(s)
		require.NoError(t, err)
	}

	gen := coarse.Synthetic{RarityBits: 4, Key: 99}
	pool := coarse.NewPool(coarse.SyntheticFactory(gen))
	defer pool.Close(ctx)

	var mu sync.Mutex
	var hits []layout.Hit
	q := verify.NewQueue(ctx, verify.Recompute{FilterBits: filterBits}, 0, func(h layout.Hit) {
		mu.Lock()
		hits = append(hits, h)
		mu.Unlock()
	})
	defer q.Close()

	start := uint64(0xabc) << 20
	d, err := New(pool, kernel, slots, q, Config{Start: start, BitsPerIter: bits, Workers: 3, Iterations: iterations})
	require.NoError(t, err)
	res, err := d.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, start+iterations<<bits, res.Cursor)

	cands, err := gen.GenerateLayouts(ctx, start, res.Cursor)
	require.NoError(t, err)
	var want int
	for _, c := range cands {
		aux := c.Aux()
		for upper := range 1 << 16 {
			ws := kernelgen.WorldSeed(uint32(c.StructureSeed), uint32(c.StructureSeed>>32), uint16(upper))
			if kernelgen.Passes(xrsr.Apply(xrsr.UpgradeSeed(ws)), aux[0], aux[1], filterBits) {
				want++
			}
		}
	}
	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, want)
	require.Len(t, hits, want)
	for _, h := range hits {
		require.GreaterOrEqual(t, h.WorldSeed&layout.StructureSeedMask, start)
		require.Less(t, h.WorldSeed&layout.StructureSeedMask, res.Cursor)
	}
	require.Equal(t, uint64(want), q.Stats().Hits)
}
