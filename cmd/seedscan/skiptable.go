package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seedscan/internal/xrsr"
)

func skipTableCmd() *cli.Command {
	var (
		distance uint64
		format   string
	)
	return &cli.Command{
		Name:  "skiptable",
		Usage: "Compute the basis images of an n-step jump",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:        "distance",
				Aliases:     []string{"n"},
				Usage:       "jump distance in draws",
				Value:       xrsr.JumpDistance,
				Destination: &distance,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (go, json)",
				Value:       "go",
				Destination: &format,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			images := xrsr.JumpImages(distance)
			switch format {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(images)
			case "go":
				fmt.Printf("// basis images of a %d-step jump\n", distance)
				fmt.Println("xrsr.Images{")
				for _, s := range images {
					fmt.Printf("\t{0x%08x, 0x%08x, 0x%08x, 0x%08x},\n", s[0], s[1], s[2], s[3])
				}
				fmt.Println("}")
				return nil
			default:
				return cli.Exit(fmt.Sprintf("error: unknown format %q (expected go or json)", format), 1)
			}
		},
	}
}
