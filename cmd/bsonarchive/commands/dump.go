package commands

import (
	"context"
	"io"
	"os"

	"github.com/chaisql/bsonarchive/cmd/bsonarchive/archiveutil"
	"github.com/cockroachdb/errors"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
)

// NewDumpCommand returns a cli.Command for "bsonarchive dump".
func NewDumpCommand() *cli.Command {
	cmd := cli.Command{
		Name:      "dump",
		Usage:     "Print the documents of a BSON archive as JSON",
		UsageText: `bsonarchive dump [options] [file.bson]`,
		Description: `The dump command prints every root document of an archive as extended JSON,
one document per line:

$ bsonarchive dump users.bson
{"id": 1, "name": "foo", "created": {"$date": "2023-01-02T03:04:05.006Z"}}
...

Without a file, the archive is read from the standard input.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "color",
				Value: "auto",
				Usage: "colorize the output: auto, always or never.",
			},
			&cli.BoolFlag{
				Name:    "indent",
				Aliases: []string{"i"},
				Usage:   "print each document on several lines.",
			},
		},
	}

	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		w := cmd.Root().Writer

		colored, err := useColor(cmd.String("color"), w)
		if err != nil {
			return err
		}

		r := cmd.Root().Reader
		if path := cmd.Args().First(); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		_, err = archiveutil.Dump(r, w, archiveutil.DumpOptions{
			Color:  colored,
			Indent: cmd.Bool("indent"),
		})
		return err
	}

	return &cmd
}

func useColor(mode string, w io.Writer) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()), nil
	}

	return false, errors.Newf("invalid color mode %q", mode)
}
