// Package verify is stage 3: exact checking of accelerator survivors on a
// single exclusive resource.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
)

// ErrClosed is returned by submissions after Close.
var ErrClosed = errors.New("verify queue closed")

// Verifier decides whether a survivor is a real hit.
type Verifier interface {
	Verify(ctx context.Context, s layout.Survivor) (bool, error)
	Close() error
}

// DefaultDepth bounds the number of queued jobs before Submit blocks.
const DefaultDepth = 4096

type job struct {
	survivor layout.Survivor
	// commit runs in order with the survivors around it instead of a verify.
	commit func()
}

// Stats counts work done by the serving goroutine.
type Stats struct {
	Verified   uint64 `json:"verified"`
	Hits       uint64 `json:"hits"`
	Pending    int    `json:"pending"`
	Generation uint64 `json:"generation"`
}

// Queue serialises every verifier call. Jobs run one at a time in
// submission order on a single goroutine, so a commit barrier runs only after
// every survivor submitted before it has been verified.
type Queue struct {
	jobs  chan job
	onHit func(layout.Hit)
	log   logger.Logger

	mu      sync.Mutex
	pending Verifier
	retired bool
	gen     uint64
	err     error

	// sendMu orders sends against closing jobs.
	sendMu sync.RWMutex
	closed bool

	verified atomic.Uint64
	hits     atomic.Uint64

	failed   chan struct{}
	stopped  chan struct{}
	closeErr error
}

// NewQueue starts serving v. onHit is called from the serving goroutine for
// every confirmed hit and may be nil.
func NewQueue(ctx context.Context, v Verifier, depth int, onHit func(layout.Hit)) *Queue {
	if depth <= 0 {
		depth = DefaultDepth
	}
	q := &Queue{
		jobs:    make(chan job, depth),
		onHit:   onHit,
		log:     logger.FromContext(ctx),
		failed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.serve(context.WithoutCancel(ctx), v)
	return q
}

// Replace swaps the verifier. The current handle finishes its in-flight call
// before it is closed; the next job goes to v. After Close, v is closed and
// ErrClosed returned.
func (q *Queue) Replace(v Verifier) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.retired {
		if err := v.Close(); err != nil {
			q.log.Warn("closing verifier", "error", err)
		}
		return ErrClosed
	}
	if q.pending != nil {
		// Never adopted.
		if err := q.pending.Close(); err != nil {
			q.log.Warn("closing verifier", "error", err)
		}
	}
	q.pending = v
	q.gen++
	return nil
}

func (q *Queue) adopt(cur Verifier) Verifier {
	q.mu.Lock()
	next := q.pending
	q.pending = nil
	q.mu.Unlock()
	if next == nil {
		return cur
	}
	if err := cur.Close(); err != nil {
		q.log.Warn("closing replaced verifier", "error", err)
	}
	return next
}

func (q *Queue) serve(ctx context.Context, cur Verifier) {
	defer close(q.stopped)
	for j := range q.jobs {
		if q.Err() != nil {
			continue
		}
		if j.commit != nil {
			j.commit()
			continue
		}
		cur = q.adopt(cur)
		ok, err := cur.Verify(ctx, j.survivor)
		q.verified.Add(1)
		if err != nil {
			q.fail(fmt.Errorf("verify seed %d: %w", int64(j.survivor.WorldSeed), err))
			continue
		}
		if ok {
			q.hits.Add(1)
			if q.onHit != nil {
				q.onHit(layout.NewHit(j.survivor))
			}
		}
	}
	q.mu.Lock()
	q.retired = true
	q.mu.Unlock()
	cur = q.adopt(cur)
	q.closeErr = cur.Close()
}

func (q *Queue) fail(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
		close(q.failed)
	}
}

// Err returns the first verifier failure. Once set, queued jobs are dropped
// and barriers no longer commit.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *Queue) push(ctx context.Context, j job) error {
	if err := q.Err(); err != nil {
		return err
	}
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues one survivor, blocking while the queue is full.
func (q *Queue) Submit(ctx context.Context, s layout.Survivor) error {
	return q.push(ctx, job{survivor: s})
}

// Barrier queues commit behind everything submitted so far.
func (q *Queue) Barrier(ctx context.Context, commit func()) error {
	return q.push(ctx, job{commit: commit})
}

// Flush waits until every job submitted before it has been served.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.Barrier(ctx, func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-q.failed:
		return q.Err()
	case <-q.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	gen := q.gen
	q.mu.Unlock()
	return Stats{
		Verified:   q.verified.Load(),
		Hits:       q.hits.Load(),
		Pending:    len(q.jobs),
		Generation: gen,
	}
}

// Close drains the queue and closes the verifier.
func (q *Queue) Close() error {
	q.sendMu.Lock()
	if q.closed {
		q.sendMu.Unlock()
		<-q.stopped
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.sendMu.Unlock()
	<-q.stopped
	return q.closeErr
}
