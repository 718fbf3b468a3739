package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:   "seedscan",
		Usage:  "Search the structure seed space for world seeds matching a layout",
		Flags:  loggingFlags(),
		Before: setupLogger,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			scanCmd(),
			kernelCmd(),
			skipTableCmd(),
			benchCmd(),
			workerCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
