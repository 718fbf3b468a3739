package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/logger"
)

var (
	backendName string
	logLevel    string
	logFormat   string
	debug       bool
)

func backendFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "backend",
		Usage:       "accelerator backend (auto, cpu, cuda)",
		Value:       "auto",
		Destination: &backendName,
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setupLogger installs the process logger. Logs go to stderr so stdout stays
// clean for hits and generated source.
func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := LoadConfig()
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	if debug {
		level = slog.LevelDebug
	}
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	log := logger.NewFormat(os.Stderr, format, level, stderrIsTTY())
	return logger.WithContext(ctx, log), nil
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
