package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/konnyaku/konnyaku/internal/logger"
	"github.com/konnyaku/konnyaku/internal/translate"
)

func translateCmd() *cli.Command {
	var (
		direction  string
		jsonOutput bool
	)

	return &cli.Command{
		Name:      "translate",
		Aliases:   []string{"t"},
		Usage:     "Translate text between Japanese and English",
		ArgsUsage: "[text]",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "direction",
				Aliases:     []string{"d"},
				Usage:       "translation direction (en-ja or ja-en)",
				Value:       "en-ja",
				Destination: &direction,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the result as JSON",
				Destination: &jsonOutput,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()
			ctx = logger.WithContext(ctx, log)

			text := strings.Join(cmd.Args().Slice(), " ")
			if text == "" {
				// No argument: read the text from stdin, pipe-friendly.
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			dir, err := translate.ParseDirection(direction)
			if err != nil {
				return err
			}

			svc, err := newService(log)
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := svc.Translate(ctx, translate.Request{Text: text, Direction: dir})
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"request_id":       res.RequestID,
					"direction":        res.Direction.String(),
					"translation":      res.Text,
					"prompt_tokens":    res.Stats.PromptTokens,
					"tokens_generated": res.Stats.TokensGenerated,
					"duration_ms":      res.Stats.Duration.Milliseconds(),
					"hit_token_limit":  res.Stats.HitTokenLimit,
				})
			}

			fmt.Println(res.Text)
			return nil
		},
	}
}
