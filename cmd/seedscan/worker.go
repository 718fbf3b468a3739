package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/coarse"
	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/verify"
	"github.com/samcharles93/seedscan/internal/workerproc"
)

// workerCmd serves the built-in collaborators over stdin and stdout, so
// "seedscan worker layout" can stand in for an external --generator-cmd.
func workerCmd() *cli.Command {
	var (
		rarityBits int
		key        uint64
		filterBits int
		verifyBits int
	)
	return &cli.Command{
		Name:   "worker",
		Usage:  "Serve a built-in stage over the worker protocol",
		Hidden: true,
		Commands: []*cli.Command{
			{
				Name:  "layout",
				Usage: "serve " + coarse.CallGenerateLayouts,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "rarity-bits", Value: coarse.DefaultRarityBits, Destination: &rarityBits},
					&cli.Uint64Flag{Name: "key", Destination: &key},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					g := coarse.Synthetic{RarityBits: rarityBits, Key: key}
					return workerproc.Serve(ctx, os.Stdin, os.Stdout, coarse.Handlers(g))
				},
			},
			{
				Name:  "verify",
				Usage: "serve " + verify.CallTestWorldSeed,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "filter-bits", Value: kernelgen.DefaultFilterBits, Destination: &filterBits},
					&cli.IntFlag{Name: "verify-bits", Value: verify.DefaultVerifyBits, Destination: &verifyBits},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					v := verify.Recompute{FilterBits: filterBits, VerifyBits: verifyBits}
					return workerproc.Serve(ctx, os.Stdin, os.Stdout, verify.Handlers(v))
				},
			},
		},
	}
}
