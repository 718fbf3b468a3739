package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/checkpoint"
	"github.com/samcharles93/seedscan/internal/pipeline"
)

// runScanFlags parses args with the real scan flags and resolves the start
// the way the scan action does, without opening a backend.
func runScanFlags(t *testing.T, args ...string) scanOptions {
	t.Helper()
	var o scanOptions
	cmd := &cli.Command{
		Name:  "scan",
		Flags: scanFlags(&o),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := resolveStart(ctx, c, &o); err != nil {
				return err
			}
			o.clampAll()
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"scan"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return o
}

func TestResumeRestoresRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	saved := uint64(7<<20 + 3<<5)
	err := checkpoint.NewStore(path).Save(checkpoint.State{
		RunID:       "run-1",
		Cursor:      saved,
		BitsPerIter: 5,
		Workers:     3,
		ReportEvery: 4,
		Ranges:      "4x8",
		FilterBits:  12,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	o := runScanFlags(t, "--resume", "--state-file", path, "--workers", "2")

	if o.start != saved || o.runID != "run-1" {
		t.Fatalf("cursor not restored: start=%d run_id=%q", o.start, o.runID)
	}
	if o.bitsPerIter != 5 {
		t.Fatalf("bits_per_iter not restored: %d", o.bitsPerIter)
	}
	if got := pipeline.Align(o.start, o.bitsPerIter); got != saved {
		t.Fatalf("resumed start %d differs from saved cursor %d", got, saved)
	}
	if o.ranges != "4x8" || o.filterBits != 12 || o.reportEvery != 4 {
		t.Fatalf("run config not restored: %+v", o)
	}
	if o.workers != 2 {
		t.Fatalf("explicit --workers must win over the checkpoint: %d", o.workers)
	}
}

func TestResumeFlagOverridesBits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	err := checkpoint.NewStore(path).Save(checkpoint.State{Cursor: 3 << 10, BitsPerIter: 10, FilterBits: 9})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	o := runScanFlags(t, "--resume", "--state-file", path, "--bits-per-iter", "8", "--filter-bits", "14")
	if o.bitsPerIter != 8 || o.filterBits != 14 {
		t.Fatalf("flags must win over the checkpoint: %+v", o)
	}
	if o.start != 3<<10 {
		t.Fatalf("cursor not restored: %d", o.start)
	}
}

func TestResumeWithoutCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	o := runScanFlags(t, "--resume", "--state-file", path, "--start", "4096")
	if o.start != 4096 || o.runID != "" {
		t.Fatalf("explicit start must be kept: %+v", o)
	}
	if o.bitsPerIter != pipeline.MaxBitsPerIter {
		t.Fatalf("flag default must be kept: %d", o.bitsPerIter)
	}
}

func TestFreshRunStartsAtRandomSeed(t *testing.T) {
	dir := t.TempDir()

	a := runScanFlags(t, "--state-file", filepath.Join(dir, "a.json"))
	b := runScanFlags(t, "--state-file", filepath.Join(dir, "b.json"))
	if a.start&^pipeline.CursorMask != 0 || b.start&^pipeline.CursorMask != 0 {
		t.Fatalf("start outside the structure seed space: %#x %#x", a.start, b.start)
	}
	if a.start == b.start {
		t.Fatalf("two fresh runs picked the same start %#x", a.start)
	}

	c := runScanFlags(t, "--state-file", filepath.Join(dir, "c.json"), "--start", "0")
	if c.start != 0 {
		t.Fatalf("explicit --start 0 must be kept, got %d", c.start)
	}
}
