package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/samcharles93/setupconv/internal/binfile"
	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/urfave/cli/v3"
)

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarise the sections of a file and their assembled offsets",
		ArgsUsage: "<input>",
		Flags: append(append(kindFlags(), formatFlags()[0]),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the summary as JSON",
				Destination: &asJSON,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("inspect takes exactly one input file")
			}
			applyConversionConfig(cmd, configFromContext(ctx))
			opts, err := baseOptions()
			if err != nil {
				return err
			}
			job := convert.Job{In: cmd.Args().First(), Out: "-", Opts: opts}
			job.Opts.To = convert.FormatBinary
			if err := job.Resolve(); err != nil {
				return err
			}
			data, err := binfile.Load(job.In)
			if err != nil {
				return err
			}
			g, err := convert.Load(job.Opts.Kind, job.Opts.From, data, job.Opts.Beta)
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}
			sum, err := convert.Inspect(g)
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}

			w := cmd.Root().Writer
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			return convert.WriteSummary(w, sum)
		},
	}
}
