package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/urfave/cli/v3"
)

func batchCmd() *cli.Command {
	var (
		outDir  string
		workers int
	)

	return &cli.Command{
		Name:      "batch",
		Usage:     "Convert many files concurrently",
		ArgsUsage: "<input>...",
		Flags: append(append(kindFlags(), formatFlags()...),
			&cli.StringFlag{
				Name:        "out-dir",
				Usage:       "directory for outputs (default: next to each input)",
				Destination: &outDir,
			},
			&cli.IntFlag{
				Name:        "workers",
				Aliases:     []string{"j"},
				Usage:       "conversions to run at once",
				Value:       runtime.GOMAXPROCS(0),
				Destination: &workers,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.NArg() == 0 {
				return fmt.Errorf("batch needs at least one input file")
			}
			applyBatchConfig(cmd, configFromContext(ctx), &workers)
			opts, err := baseOptions()
			if err != nil {
				return err
			}
			if opts.To == convert.FormatUnknown {
				return fmt.Errorf("--to is required for batch conversion")
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}

			jobs := make([]convert.Job, 0, cmd.NArg())
			for _, in := range cmd.Args().Slice() {
				job := convert.Job{In: in, Opts: opts}
				if outDir != "" {
					job.Out = filepath.Join(outDir, filepath.Base(convert.OutputPath(in, opts.To)))
				}
				jobs = append(jobs, job)
			}

			log.Debug("starting batch", "files", len(jobs), "workers", workers)
			failed := 0
			for _, o := range convert.Batch(ctx, jobs, workers) {
				if o.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("conversion failed: %d of %d files", failed, len(jobs))
			}
			log.Info("batch complete", "files", len(jobs))
			return nil
		},
	}
}
