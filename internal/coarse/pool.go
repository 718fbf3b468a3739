// Package coarse is stage 1: fanning a structure seed range out to a pool of
// layout generators and collecting their candidates in worker order.
package coarse

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
)

var ErrCapacity = errors.New("layout buffer too small")

// Worker generates the candidates of structure seeds in [start, end).
type Worker interface {
	GenerateLayouts(ctx context.Context, start, end uint64) ([]layout.Candidate, error)
	Close() error
}

// Factory creates the worker for pool slot index.
type Factory func(ctx context.Context, index int) (Worker, error)

// Sink receives one concatenated batch.
type Sink interface {
	Capacity() int
	SetInputs([]layout.Candidate) error
}

// Pool is a resizable set of worker handles. A handle's worker is created on
// first use; a handle dropped by a shrink is closed once its in-flight call,
// if any, has returned. A later grow always gets fresh handles.
type Pool struct {
	factory Factory

	mu      sync.Mutex
	handles []*handle
}

type handle struct {
	index int

	// mu is held for the duration of a call, so retirement waits for it.
	mu      sync.Mutex
	worker  Worker
	retired bool
}

func NewPool(factory Factory) *Pool {
	return &Pool{factory: factory}
}

// Size is the number of live handles.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Resize grows or shrinks the pool to n handles.
func (p *Pool) Resize(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resizeLocked(ctx, n)
}

func (p *Pool) resizeLocked(ctx context.Context, n int) {
	if len(p.handles) > n {
		for _, h := range p.handles[n:] {
			go h.retire(ctx)
		}
		p.handles = p.handles[:n:n]
	}
	for i := len(p.handles); i < n; i++ {
		p.handles = append(p.handles, &handle{index: i})
	}
}

func (h *handle) retire(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retired = true
	if h.worker == nil {
		return
	}
	if err := h.worker.Close(); err != nil {
		logger.FromContext(ctx).Warn("closing layout worker", "index", h.index, "error", err)
	}
	h.worker = nil
}

func (h *handle) generate(ctx context.Context, factory Factory, start, end uint64) ([]layout.Candidate, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retired {
		return nil, fmt.Errorf("layout worker %d retired", h.index)
	}
	if h.worker == nil {
		w, err := factory(ctx, h.index)
		if err != nil {
			return nil, fmt.Errorf("create layout worker %d: %w", h.index, err)
		}
		h.worker = w
	}
	return h.worker.GenerateLayouts(ctx, start, end)
}

// Split returns the bounds of sub-range i of n over [start, start+count).
func Split(start, count uint64, i, n int) (uint64, uint64) {
	return start + count*uint64(i)/uint64(n), start + count*uint64(i+1)/uint64(n)
}

// Generate resizes the pool to workers, runs one call per handle over
// contiguous sub-ranges of [start, start+count) and hands the concatenation
// to sink. Nothing reaches the sink when the batch would not fit.
func (p *Pool) Generate(ctx context.Context, start, count uint64, workers int, sink Sink) error {
	if workers < 1 {
		return fmt.Errorf("worker count %d must be positive", workers)
	}
	p.mu.Lock()
	p.resizeLocked(ctx, workers)
	handles := append([]*handle(nil), p.handles...)
	p.mu.Unlock()

	outs := make([][]layout.Candidate, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	for i, h := range handles {
		first, last := Split(start, count, i, len(handles))
		g.Go(func() error {
			out, err := h.generate(gctx, p.factory, first, last)
			outs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := lo.SumBy(outs, func(o []layout.Candidate) int { return len(o) })
	if total > sink.Capacity() {
		return fmt.Errorf("%w: %d candidates, capacity %d", ErrCapacity, total, sink.Capacity())
	}
	return sink.SetInputs(lo.Flatten(outs))
}

// Close retires every handle and waits for them to shut down.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	handles := p.handles
	p.handles = nil
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Go(func() { h.retire(ctx) })
	}
	wg.Wait()
}
