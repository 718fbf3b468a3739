package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/kernelgen"
	"github.com/samcharles93/seedscan/internal/xrsr"
)

func kernelCmd() *cli.Command {
	var (
		ranges     string
		filterBits int
		layoutOnly bool
	)
	return &cli.Command{
		Name:  "kernel",
		Usage: "Print the generated fine filter source and its table layout",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "ranges",
				Usage:       "precompute tables as WIDTHxCOUNT[,...], or none",
				Value:       xrsr.FormatFieldSpecs(xrsr.DefaultFieldSpecs),
				Destination: &ranges,
			},
			&cli.IntFlag{
				Name:        "filter-bits",
				Value:       kernelgen.DefaultFilterBits,
				Destination: &filterBits,
			},
			&cli.BoolFlag{
				Name:        "layout",
				Usage:       "print only the layout summary",
				Destination: &layoutOnly,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rs, specs, err := parseRanges(ranges)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			m, err := kernelgen.Compile(kernelgen.Options{Ranges: rs, FilterBits: filterBits})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: compile: %v", err), 1)
			}

			w := os.Stderr
			if layoutOnly {
				w = os.Stdout
			}
			fmt.Fprintf(w, "ranges:        %s\n", xrsr.FormatFieldSpecs(specs))
			for _, r := range m.Ranges {
				fmt.Fprintf(w, "  %-12s %d entries\n", r, r.Size())
			}
			fmt.Fprintf(w, "residual bits: %d\n", len(m.Residual))
			fmt.Fprintf(w, "table:         %d entries, %d bytes\n", m.TableEntries(), m.SharedBytes())
			fmt.Fprintf(w, "fingerprint:   %s\n", m.Fingerprint)
			if layoutOnly {
				return nil
			}
			_, err = fmt.Print(m.Source)
			return err
		},
	}
}
