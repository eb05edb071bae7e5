package main

import (
	"context"
	"fmt"
	"os"

	"github.com/samcharles93/setupconv/internal/binfile"
	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/urfave/cli/v3"
)

func convertCmd() *cli.Command {
	var output string

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert one file",
		ArgsUsage: "<input>",
		Flags: append(append(kindFlags(), formatFlags()...),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output path, or - for stdout (default: input with the new extension)",
				Destination: &output,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("convert takes exactly one input file")
			}
			applyConversionConfig(cmd, configFromContext(ctx))
			opts, err := baseOptions()
			if err != nil {
				return err
			}
			job := convert.Job{In: cmd.Args().First(), Out: output, Opts: opts}
			if output == "-" {
				if opts.To == convert.FormatUnknown {
					return fmt.Errorf("--to is required when writing to stdout")
				}
				return convertToStdout(ctx, job)
			}
			res, err := convert.ConvertFile(ctx, job)
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}
			logger.FromContext(ctx).Info("wrote output", "input", job.In, "run_id", res.RunID, "bytes", len(res.Data))
			return nil
		},
	}
}

func convertToStdout(ctx context.Context, job convert.Job) error {
	if err := job.Resolve(); err != nil {
		return err
	}
	data, err := binfile.Load(job.In)
	if err != nil {
		return err
	}
	res, err := convert.Convert(ctx, data, job.Opts)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	_, err = os.Stdout.Write(res.Data)
	return err
}
