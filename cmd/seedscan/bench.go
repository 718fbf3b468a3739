package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/backend"
	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/filter"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/layout"
	"github.com/samcharles93/seedscan/internal/logger"
	"github.com/samcharles93/seedscan/internal/verify"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

const (
	benchLayoutSeeds   = 1 << 16
	benchVerifyEvery   = 50
	benchStartChunkX   = -30
	benchStartChunkZ   = -164
	defaultBenchInputs = 256
)

// benchLoop calls fn for run 1, 2, ... until runs is reached (0 means until
// interrupted) and logs the rate every interval runs.
func benchLoop(ctx context.Context, runs, interval int, unit string, fn func(i int) (int, error)) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	log := logger.FromContext(ctx)

	start := time.Now()
	done := 0
	for i := 0; runs == 0 || i < runs; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := fn(i)
		if err != nil {
			return err
		}
		done += n
		if (i+1)%interval == 0 {
			delta := time.Since(start)
			log.Info("bench", "runs", i+1, "elapsed", delta, unit+"_per_sec", float64(done)/delta.Seconds())
			start, done = time.Now(), 0
		}
	}
	return nil
}

func benchCmd() *cli.Command {
	var (
		runs         int
		generatorCmd string
		verifierCmd  string
		rarityBits   int
		filterBits   int
		verifyBits   int
		ranges       string
		inputs       int
	)
	runsFlag := func() cli.Flag {
		return &cli.IntFlag{
			Name:        "runs",
			Usage:       "number of runs (0 = until interrupted)",
			Destination: &runs,
		}
	}

	return &cli.Command{
		Name:  "bench",
		Usage: "Measure the throughput of one pipeline stage",
		Commands: []*cli.Command{
			{
				Name:  "layout",
				Usage: "generate layouts for consecutive 2^16 seed ranges",
				Flags: []cli.Flag{
					runsFlag(),
					&cli.StringFlag{Name: "generator-cmd", Destination: &generatorCmd},
					&cli.IntFlag{Name: "rarity-bits", Value: coarse.DefaultRarityBits, Destination: &rarityBits},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					w, err := layoutFactory(generatorCmd, rarityBits)(ctx, 0)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					defer w.Close()
					err = benchLoop(ctx, runs, 1, "seeds", func(i int) (int, error) {
						first := uint64(i) * benchLayoutSeeds
						_, err := w.GenerateLayouts(ctx, first, first+benchLayoutSeeds)
						return benchLayoutSeeds, err
					})
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: bench layout: %v", err), 1)
					}
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "verify consecutive world seeds against a fixed layout",
				Flags: []cli.Flag{
					runsFlag(),
					&cli.StringFlag{Name: "verifier-cmd", Destination: &verifierCmd},
					&cli.IntFlag{Name: "filter-bits", Value: kernelgen.DefaultFilterBits, Destination: &filterBits},
					&cli.IntFlag{Name: "verify-bits", Value: verify.DefaultVerifyBits, Destination: &verifyBits},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					v, err := newVerifier(ctx, verifierCmd, filterBits, verifyBits)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					defer v.Close()
					aux := layout.Candidate{StartChunkX: benchStartChunkX, StartChunkZ: benchStartChunkZ}.Aux()
					err = benchLoop(ctx, runs, benchVerifyEvery, "seeds", func(i int) (int, error) {
						_, err := v.Verify(ctx, layout.Survivor{WorldSeed: uint64(i), Aux: aux})
						return 1, err
					})
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: bench verify: %v", err), 1)
					}
					return nil
				},
			},
			{
				Name:  "kernel",
				Usage: "run the fine filter over synthetic batches",
				Flags: []cli.Flag{
					runsFlag(),
					backendFlag(),
					&cli.StringFlag{
						Name:        "ranges",
						Value:       xrsr.FormatFieldSpecs(xrsr.DefaultFieldSpecs),
						Destination: &ranges,
					},
					&cli.IntFlag{Name: "filter-bits", Value: kernelgen.DefaultFilterBits, Destination: &filterBits},
					&cli.IntFlag{
						Name:        "inputs",
						Usage:       "candidates per batch",
						Value:       defaultBenchInputs,
						Destination: &inputs,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := benchKernel(ctx, runs, ranges, filterBits, clamp(inputs, 1, filter.MaxInputs)); err != nil {
						return cli.Exit(fmt.Sprintf("error: bench kernel: %v", err), 1)
					}
					return nil
				},
			},
		},
	}
}

func benchKernel(ctx context.Context, runs int, rangeSpec string, filterBits, inputs int) error {
	rs, _, err := parseRanges(rangeSpec)
	if err != nil {
		return err
	}
	session, err := backend.Open(ctx, backendName, backend.Options{})
	if err != nil {
		return err
	}
	defer session.Close()
	kernel, err := filter.NewKernel(ctx, session, filter.Config{Ranges: rs, FilterBits: filterBits})
	if err != nil {
		return err
	}
	buf, err := filter.NewBuffers(session)
	if err != nil {
		return err
	}

	gen := coarse.Synthetic{}
	logger.FromContext(ctx).Info("bench kernel",
		"backend", session.Info().Backend,
		"device", session.Info().Name,
		"inputs", inputs,
		"fingerprint", kernel.Module().Fingerprint,
	)
	return benchLoop(ctx, runs, 1, "seeds", func(i int) (int, error) {
		first := uint64(i) * uint64(inputs)
		cands, err := gen.GenerateLayouts(ctx, first, first+uint64(inputs))
		if err != nil {
			return 0, err
		}
		if err := buf.SetInputs(cands); err != nil {
			return 0, err
		}
		if err := kernel.Run(ctx, buf); err != nil {
			return 0, err
		}
		return inputs * kernelgen.InvocationsPerInput, nil
	})
}
