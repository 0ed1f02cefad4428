package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/konnyaku/konnyaku/internal/logger"
)

func pullCmd() *cli.Command {
	return &cli.Command{
		Name:  "pull",
		Usage: "Download the translation model if it is not already on disk",
		Flags: append(commonModelFlags(), loggingFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()
			ctx = logger.WithContext(ctx, log)

			svc, err := newService(log)
			if err != nil {
				return err
			}
			defer svc.Close()

			path, err := svc.EnsureDownloaded(ctx)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}
