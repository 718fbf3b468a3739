package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/samcharles93/seedscan/internal/verify"
)

type swapRecorder struct {
	got chan verify.Verifier
	err error
}

func (s *swapRecorder) Replace(v verify.Verifier) error {
	s.got <- v
	return s.err
}

func TestReloadVerifiersOnSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal)
	sw := &swapRecorder{got: make(chan verify.Verifier, 4)}
	builds := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		reloadVerifiers(ctx, sigs, sw, func() (verify.Verifier, error) {
			builds++
			if builds == 1 {
				return nil, errors.New("verifier binary missing")
			}
			return verify.Recompute{FilterBits: builds}, nil
		})
	}()

	sigs <- syscall.SIGHUP
	sigs <- syscall.SIGHUP
	select {
	case v := <-sw.got:
		if v != (verify.Recompute{FilterBits: 2}) {
			t.Fatalf("unexpected verifier %#v", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("verifier was not replaced")
	}
	if len(sw.got) != 0 {
		t.Fatalf("a failed build must not replace the verifier")
	}

	cancel()
	<-done
}

func TestReloadVerifiersStopsOnClosedQueue(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	sw := &swapRecorder{got: make(chan verify.Verifier, 1), err: verify.ErrClosed}
	sigs <- syscall.SIGHUP

	done := make(chan struct{})
	go func() {
		defer close(done)
		reloadVerifiers(context.Background(), sigs, sw, func() (verify.Verifier, error) {
			return verify.Recompute{}, nil
		})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("reload loop kept running after the queue closed")
	}
}
