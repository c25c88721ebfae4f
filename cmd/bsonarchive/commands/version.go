package commands

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// NewVersionCommand returns a cli.Command for "bsonarchive version".
func NewVersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Shows the bsonarchive library and CLI versions",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			w := cmd.Root().Writer

			info, ok := debug.ReadBuildInfo()
			if !ok {
				_, err := fmt.Fprintln(w, `version not available in GOPATH mode; use "go install" with Go modules enabled`)
				return err
			}

			var libVersion string
			for _, mod := range info.Deps {
				if mod.Path != "github.com/chaisql/bsonarchive" {
					continue
				}
				// if a replace directive is set, the library is in development mode
				if mod.Replace != nil {
					libVersion = "(devel)"
					break
				}
				libVersion = mod.Version
				break
			}

			_, err := fmt.Fprintf(w, "bsonarchive %v\nbsonarchive CLI %v\n", libVersion, info.Main.Version)
			return err
		},
	}
}
