package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaisql/bsonarchive/cmd/bsonarchive/archiveutil"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// NewEncodeCommand returns a cli.Command for "bsonarchive encode".
func NewEncodeCommand(logger *logrus.Logger) *cli.Command {
	cmd := cli.Command{
		Name:      "encode",
		Usage:     "Convert JSON files to BSON archives",
		UsageText: `bsonarchive encode [options] [file.json...]`,
		Description: `The encode command converts JSON objects to BSON archives. Every object
becomes one root document of the archive.

Each file contains either one object or an array of objects:

$ bsonarchive encode users.json orders.json

writes users.bson and orders.bson. Files are converted concurrently.

With the --lines option, each line of the input is a JSON object:

$ bsonarchive encode --lines -o events.bson events.ndjson

Without files, the standard input is converted to the standard output.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "name of the file to output to. Only valid with zero or one input.",
			},
			&cli.BoolFlag{
				Name:    "lines",
				Aliases: []string{"l"},
				Usage:   "read newline delimited JSON objects.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		files := cmd.Args().Slice()
		output := cmd.String("output")
		opts := archiveutil.EncodeOptions{Lines: cmd.Bool("lines")}

		if output != "" && len(files) > 1 {
			return errors.New("--output cannot be used with several input files")
		}

		if len(files) == 0 {
			w, closeFn, err := createOutput(output, cmd.Root().Writer)
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := archiveutil.EncodeJSON(cmd.Root().Reader, w, opts)
			if err != nil {
				return err
			}
			logger.WithField("documents", n).Debug("standard input encoded")
			return nil
		}

		g, ctx := errgroup.WithContext(ctx)
		for _, file := range files {
			file := file
			out := output
			if out == "" {
				out = strings.TrimSuffix(file, filepath.Ext(file)) + ".bson"
			}

			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				return encodeFile(file, out, opts, logger)
			})
		}

		return g.Wait()
	}

	return &cmd
}

func encodeFile(in, out string, opts archiveutil.EncodeOptions, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{
		"input":  in,
		"output": out,
	})

	if in == out {
		return errors.Newf("cannot encode %q into itself", in)
	}

	r, err := os.Open(in)
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.Create(out)
	if err != nil {
		return err
	}
	defer w.Close()

	n, err := archiveutil.EncodeJSON(r, w, opts)
	if err != nil {
		return errors.Wrapf(err, "cannot encode %q", in)
	}

	log.WithField("documents", n).Info("file encoded")
	return w.Close()
}

// createOutput returns the file named path, or def if path is empty.
func createOutput(path string, def io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	return f, func() { _ = f.Close() }, nil
}
