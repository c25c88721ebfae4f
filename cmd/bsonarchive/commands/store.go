package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/chaisql/bsonarchive/store"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

// NewStoreCommand returns a cli.Command for "bsonarchive store".
func NewStoreCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Persist BSON archives in a Pebble store",
		Description: `The store subcommands append archives to a Pebble database and read them back.
Every root document is stored as one record and records keep their insertion order.

$ bsonarchive store import -p users.db users.bson
$ bsonarchive store count -p users.db
$ bsonarchive store export -p users.db -o all.bson`,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Append the documents of archives to the store",
				UsageText: `bsonarchive store import -p path [file.bson...]`,
				Flags: []cli.Flag{
					storePathFlag(),
					&cli.BoolFlag{
						Name:  "sync",
						Usage: "Sync the store to disk after each archive.",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openStore(cmd.String("path"), cmd.Bool("sync"), logger)
					if err != nil {
						return err
					}
					defer s.Close()

					files := cmd.Args().Slice()
					if len(files) == 0 {
						_, err = s.Import(cmd.Root().Reader)
						return err
					}

					for _, file := range files {
						if err := ctx.Err(); err != nil {
							return err
						}

						err = importFile(s, file)
						if err != nil {
							return err
						}
					}

					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "Write every document of the store as an archive",
				UsageText: `bsonarchive store export -p path [-o file.bson]`,
				Flags: []cli.Flag{
					storePathFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "name of the file to output to. Defaults to STDOUT.",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openStore(cmd.String("path"), false, logger)
					if err != nil {
						return err
					}
					defer s.Close()

					w, closeFn, err := createOutput(cmd.String("output"), cmd.Root().Writer)
					if err != nil {
						return err
					}
					defer closeFn()

					n, err := s.Export(w)
					if err != nil {
						return err
					}

					logger.WithField("documents", n).Debug("store exported")
					return nil
				},
			},
			{
				Name:      "count",
				Usage:     "Print the number of documents of the store",
				UsageText: `bsonarchive store count -p path`,
				Flags:     []cli.Flag{storePathFlag()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					s, err := openStore(cmd.String("path"), false, logger)
					if err != nil {
						return err
					}
					defer s.Close()

					n, err := s.Len()
					if err != nil {
						return err
					}

					_, err = fmt.Fprintln(cmd.Root().Writer, n)
					return err
				},
			},
		},
	}
}

func storePathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "path",
		Aliases:  []string{"p"},
		Usage:    "Path of the store to open or create.",
		Required: true,
	}
}

func openStore(path string, sync bool, logger *logrus.Logger) (*store.Store, error) {
	if path == "" {
		return nil, errors.New("missing store path")
	}

	return store.Open(path, &store.Options{
		Sync:   sync,
		Logger: logrus.NewEntry(logger),
	})
}

func importFile(s *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.Import(f)
	return errors.Wrapf(err, "cannot import %q", path)
}
