package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/konnyaku/konnyaku/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "konnyaku",
		Usage:   "Offline Japanese/English translation",
		Version: version.String(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			translateCmd(),
			serveCmd(),
			pullCmd(),
			statusCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
