package main

import (
	"context"
	"fmt"

	"github.com/samcharles93/setupconv/internal/binfile"
	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/urfave/cli/v3"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Check that binary files survive a round trip through every format",
		ArgsUsage: "<input.bin>...",
		Flags:     kindFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if cmd.NArg() == 0 {
				return fmt.Errorf("verify needs at least one binary file")
			}
			applyConversionConfig(cmd, configFromContext(ctx))
			opts, err := baseOptions()
			if err != nil {
				return err
			}

			bad := 0
			for _, in := range cmd.Args().Slice() {
				kind := opts.Kind
				if kind == convert.KindUnknown {
					kind = convert.DetectKind(in)
				}
				if kind == convert.KindUnknown {
					return fmt.Errorf("cannot infer kind of %q; use --kind", in)
				}
				data, err := binfile.Load(in)
				if err != nil {
					return err
				}
				rep, err := convert.Verify(ctx, data, kind, opts.Beta)
				if err != nil {
					log.Error("verify failed", "input", in, "error", err)
					bad++
					continue
				}
				for _, c := range rep.Checks {
					status := "ok"
					if !c.OK {
						status = "MISMATCH"
					}
					fmt.Fprintf(cmd.Root().Writer, "%-8s %s via %-4s %s\n", status, rep.Hash[:16], c.Via, in)
				}
				if !rep.OK() {
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("verify: %d of %d files did not round trip", bad, cmd.NArg())
			}
			return nil
		},
	}
}
