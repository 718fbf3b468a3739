package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/api"
	"github.com/samcharles93/seedscan/internal/backend"
	"github.com/samcharles93/seedscan/internal/checkpoint"
	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/filter"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
	"github.com/samcharles93/seedscan/internal/pipeline"
	"github.com/samcharles93/seedscan/internal/verify"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

type scanOptions struct {
	start        uint64
	runID        string
	resume       bool
	bitsPerIter  int
	workers      int
	ranges       string
	reportEvery  int
	filterBits   int
	verifyBits   int
	rarityBits   int
	stateFile    string
	listen       string
	generatorCmd string
	verifierCmd  string
}

// defaultWorkers is the host's logical core count, within the pool limits.
func defaultWorkers() int {
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		n = 1
	}
	return clamp(n, 1, pipeline.MaxWorkers)
}

func (o *scanOptions) clampAll() {
	o.bitsPerIter = clamp(o.bitsPerIter, 1, pipeline.MaxBitsPerIter)
	o.workers = clamp(o.workers, 1, pipeline.MaxWorkers)
	o.reportEvery = clamp(o.reportEvery, 0, 1<<16)
	o.filterBits = clamp(o.filterBits, 0, 64)
	o.verifyBits = clamp(o.verifyBits, 0, 64)
	o.rarityBits = clamp(o.rarityBits, 0, 64)
}

func scanCmd() *cli.Command {
	o := scanOptions{}
	return &cli.Command{
		Name:  "scan",
		Usage: "Run the search pipeline until stopped",
		Flags: scanFlags(&o),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyScanConfig(cmd, LoadConfig(), &o)
			if err := resolveStart(ctx, cmd, &o); err != nil {
				return cli.Exit(fmt.Sprintf("error: scan: %v", err), 1)
			}
			o.clampAll()
			if err := runScan(ctx, o); err != nil {
				return cli.Exit(fmt.Sprintf("error: scan: %v", err), 1)
			}
			return nil
		},
	}
}

func scanFlags(o *scanOptions) []cli.Flag {
	return []cli.Flag{
		backendFlag(),
		&cli.Uint64Flag{
			Name:        "start",
			Usage:       "first structure seed to scan",
			Destination: &o.start,
		},
		&cli.BoolFlag{
			Name:        "resume",
			Usage:       "continue from the cursor in the state file",
			Destination: &o.resume,
		},
		&cli.IntFlag{
			Name:        "bits-per-iter",
			Usage:       "log2 of structure seeds per iteration (1..16)",
			Value:       pipeline.MaxBitsPerIter,
			Destination: &o.bitsPerIter,
		},
		&cli.IntFlag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "layout generator workers (1..256)",
			Value:       defaultWorkers(),
			Destination: &o.workers,
		},
		&cli.StringFlag{
			Name:        "ranges",
			Usage:       "precompute tables as WIDTHxCOUNT[,...] (width 1..10, count 0..50), or none",
			Value:       xrsr.FormatFieldSpecs(xrsr.DefaultFieldSpecs),
			Destination: &o.ranges,
		},
		&cli.IntFlag{
			Name:        "report-every",
			Usage:       "iterations between progress reports (0 disables)",
			Value:       1,
			Destination: &o.reportEvery,
		},
		&cli.IntFlag{
			Name:        "filter-bits",
			Usage:       "bits the accelerator filter compares",
			Value:       kernelgen.DefaultFilterBits,
			Destination: &o.filterBits,
		},
		&cli.IntFlag{
			Name:        "verify-bits",
			Usage:       "extra bits the built-in verifier checks",
			Value:       verify.DefaultVerifyBits,
			Destination: &o.verifyBits,
		},
		&cli.IntFlag{
			Name:        "rarity-bits",
			Usage:       "selectivity of the built-in layout generator",
			Value:       coarse.DefaultRarityBits,
			Destination: &o.rarityBits,
		},
		&cli.StringFlag{
			Name:        "state-file",
			Usage:       "checkpoint file (default ~/.local/state/seedscan/state.json)",
			Destination: &o.stateFile,
		},
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "serve the status API on this address",
			Destination: &o.listen,
		},
		&cli.StringFlag{
			Name:        "generator-cmd",
			Usage:       "external layout generator command",
			Destination: &o.generatorCmd,
		},
		&cli.StringFlag{
			Name:        "verifier-cmd",
			Usage:       "external verifier command",
			Destination: &o.verifierCmd,
		},
	}
}

// resolveStart picks the first cursor. With --resume the checkpoint's cursor
// and run configuration are restored; flags given on the command line still
// win. A fresh run without --start begins at a random structure seed.
func resolveStart(ctx context.Context, c *cli.Command, o *scanOptions) error {
	log := logger.FromContext(ctx)
	if o.stateFile == "" {
		path, err := checkpoint.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolve state file: %w", err)
		}
		o.stateFile = path
	}
	if o.resume {
		st, err := checkpoint.NewStore(o.stateFile).Load()
		switch {
		case errors.Is(err, checkpoint.ErrNotFound):
			log.Warn("nothing to resume, starting fresh", "state_file", o.stateFile)
		case err != nil:
			return err
		default:
			applyCheckpoint(c, st, o)
			if st.BitsPerIter > 0 && o.bitsPerIter != st.BitsPerIter {
				log.Warn("bits per iteration overridden; cursor will be aligned down", "was", st.BitsPerIter, "now", o.bitsPerIter)
			}
			log.Info("resuming", "cursor", o.start, "run_id", o.runID, "bits_per_iter", o.bitsPerIter,
				"updated_at", st.UpdatedAt)
			return nil
		}
	}
	if !c.IsSet("start") {
		o.start = rand.Uint64() & pipeline.CursorMask
		log.Info("random start", "start", o.start)
	}
	return nil
}

// applyCheckpoint restores a saved run over the options, except where the
// matching flag was set explicitly.
func applyCheckpoint(c *cli.Command, st checkpoint.State, o *scanOptions) {
	o.start, o.runID = st.Cursor, st.RunID
	if st.BitsPerIter > 0 && !c.IsSet("bits-per-iter") {
		o.bitsPerIter = st.BitsPerIter
	}
	if st.Workers > 0 && !c.IsSet("workers") {
		o.workers = st.Workers
	}
	if !c.IsSet("report-every") {
		o.reportEvery = st.ReportEvery
	}
	if st.Ranges != "" && !c.IsSet("ranges") {
		o.ranges = st.Ranges
	}
	if !c.IsSet("filter-bits") {
		o.filterBits = st.FilterBits
	}
}

func runScan(ctx context.Context, o scanOptions) error {
	log := logger.FromContext(ctx)

	ranges, specs, err := parseRanges(o.ranges)
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(o.stateFile)

	session, err := backend.Open(ctx, backendName, backend.Options{})
	if err != nil {
		return err
	}
	defer session.Close()
	info := session.Info()
	log.Info("accelerator ready", "backend", info.Backend, "device", info.Name)

	kernel, err := filter.NewKernel(ctx, session, filter.Config{Ranges: ranges, FilterBits: o.filterBits})
	if err != nil {
		return err
	}
	var slots [2]*filter.Buffers
	for i := range slots {
		if slots[i], err = filter.NewBuffers(session); err != nil {
			return err
		}
	}

	pool := coarse.NewPool(layoutFactory(o.generatorCmd, o.rarityBits))
	defer pool.Close(ctx)

	v, err := newVerifier(ctx, o.verifierCmd, o.filterBits, o.verifyBits)
	if err != nil {
		return err
	}
	hits := api.NewHitStore(0)
	queue := verify.NewQueue(ctx, v, 0, func(h layout.Hit) {
		log.Info("hit", "seed", int64(h.WorldSeed), "start_chunk_x", h.StartChunkX, "start_chunk_z", h.StartChunkZ,
			"portal_x", h.PortalX, "portal_z", h.PortalZ)
		fmt.Println(h)
		hits.Add(h)
	})
	defer queue.Close()

	driver, err := pipeline.New(pool, kernel, slots, queue, pipeline.Config{
		Start:       o.start,
		BitsPerIter: o.bitsPerIter,
		Workers:     o.workers,
		ReportEvery: o.reportEvery,
		RunID:       o.runID,
	})
	if err != nil {
		return err
	}

	save := func(cur uint64) {
		err := store.Save(checkpoint.State{
			RunID:       driver.RunID(),
			Cursor:      cur,
			BitsPerIter: o.bitsPerIter,
			Workers:     o.workers,
			ReportEvery: o.reportEvery,
			Ranges:      xrsr.FormatFieldSpecs(specs),
			FilterBits:  o.filterBits,
		})
		if err != nil {
			log.Warn("saving checkpoint", "error", err)
		}
	}
	driver.OnProgress(func(p pipeline.Progress) {
		log.Info("progress",
			"cursor", p.Cursor,
			"iterations", p.Iterations,
			"elapsed", p.Elapsed,
			"interval", p.Interval,
			"seeds_per_sec", p.SeedsPerSecond,
			"accel_util", p.AcceleratorUtilization,
			"hits", p.Verify.Hits,
		)
		save(p.Cursor)
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadVerifiers(runCtx, hup, queue, func() (verify.Verifier, error) {
		return newVerifier(ctx, o.verifierCmd, o.filterBits, o.verifyBits)
	})

	if o.listen != "" {
		serveCtx, cancelServe := context.WithCancel(ctx)
		defer cancelServe()
		go serveAPI(serveCtx, o.listen, api.NewServer(driver, hits, kernel.Module(), info))
	}

	res, err := driver.Run(runCtx)
	save(res.Cursor)
	if err != nil {
		return fmt.Errorf("halted at cursor %d: %w", res.Cursor, err)
	}
	log.Info("stopped", "cursor", res.Cursor, "iterations", res.Iterations, "state_file", store.Path())
	return nil
}

func serveAPI(ctx context.Context, addr string, server *api.Server) {
	log := logger.FromContext(ctx)
	e := echo.New()
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	server.Register(e)
	log.Info("starting status server", "address", addr)
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = 10 * time.Second
			return nil
		},
	}
	if err := sc.Start(ctx, e); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("status server stopped", "error", err)
	}
}
