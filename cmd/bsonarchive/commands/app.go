package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// NewApp creates the bsonarchive CLI app.
func NewApp() *cli.Command {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	app := cli.Command{
		Name:                  "bsonarchive",
		Usage:                 "Convert, inspect and store BSON archives",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug information to the standard error.",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "Format of the logs, text or json.",
			},
		},
		Commands: []*cli.Command{
			NewEncodeCommand(logger),
			NewDumpCommand(),
			NewStoreCommand(logger),
			NewVersionCommand(),
		},
	}

	var cancel context.CancelFunc

	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Bool("verbose") {
			logger.SetLevel(logrus.DebugLevel)
		}

		switch cmd.String("log-format") {
		case "text":
		case "json":
			logger.SetFormatter(&logrus.JSONFormatter{})
		default:
			return ctx, errors.Newf("unknown log format %q", cmd.String("log-format"))
		}

		// cancel all commands on interrupt
		ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		return ctx, nil
	}

	app.After = func(ctx context.Context, cmd *cli.Command) error {
		if cancel != nil {
			cancel()
		}
		return nil
	}

	return &app
}
