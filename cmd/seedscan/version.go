package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/backend"
	"github.com/samcharles93/seedscan/internal/version"
)

func versionCmd() *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			info := version.Resolve()
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(struct {
					version.Info
					Backends string `json:"backends"`
				}{info, backend.Available()})
			}
			fmt.Printf("seedscan %s\n", info)
			if info.BuildTime != "" {
				fmt.Printf("built:    %s\n", info.BuildTime)
			}
			fmt.Printf("backends: %s\n", backend.Available())
			return nil
		},
	}
}
