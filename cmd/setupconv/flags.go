package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samcharles93/setupconv/internal/convert"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/urfave/cli/v3"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	kindName string
	fromName string
	toName   string
	beta     bool
	includes []string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/setupconv/config.yaml)",
			Destination: &configFile,
		},
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

func kindFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "file kind (stan, setup); inferred from the file name when unset",
			Destination: &kindName,
		},
		&cli.BoolFlag{
			Name:        "beta",
			Usage:       "read binary stan files with the beta tile layout",
			Destination: &beta,
		},
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "from",
			Usage:       "input format (bin, c, json); inferred from the extension when unset",
			Destination: &fromName,
		},
		&cli.StringFlag{
			Name:        "to",
			Aliases:     []string{"t"},
			Usage:       "output format (bin, c, json)",
			Destination: &toName,
		},
		&cli.StringSliceFlag{
			Name:        "include",
			Usage:       "include line for C output, repeatable",
			Destination: &includes,
		},
	}
}

// setupLogging loads the config file, applies it to unset global flags and
// attaches the logger to the context.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	applyGlobalConfig(cmd, cfg)

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return ctx, err
	}
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.Setup(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}
	ctx = withConfig(ctx, cfg)
	return logger.WithContext(ctx, log), nil
}

// baseOptions builds conversion options from the shared flags.
func baseOptions() (convert.Options, error) {
	var opts convert.Options
	var err error
	if kindName != "" {
		if opts.Kind, err = convert.ParseKind(kindName); err != nil {
			return opts, err
		}
	}
	if fromName != "" {
		if opts.From, err = convert.ParseFormat(fromName); err != nil {
			return opts, err
		}
	}
	if toName != "" {
		if opts.To, err = convert.ParseFormat(toName); err != nil {
			return opts, err
		}
	}
	opts.Beta = beta
	opts.Includes = includes
	return opts, nil
}
