package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/konnyaku/konnyaku/internal/modelstore"
)

func statusCmd() *cli.Command {
	var jsonOutput bool

	return &cli.Command{
		Name:  "status",
		Usage: "Show the model artifact status",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit the status as JSON",
				Destination: &jsonOutput,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyConfig(cmd, LoadConfig())
			log := newLogger()

			dir := modelsDir
			if dir == "" {
				d, err := modelstore.DefaultDir()
				if err != nil {
					return err
				}
				dir = d
			}
			store := modelstore.New(modelstore.DefaultDescriptor(), dir, log)

			desc := store.Descriptor()
			downloaded := store.Downloaded()
			manifest, haveManifest, err := store.ReadManifest()
			if err != nil {
				log.Warn("manifest unreadable", "error", err)
			}

			if jsonOutput {
				out := map[string]any{
					"model":      desc.Name,
					"file_name":  desc.FileName,
					"path":       store.Path(),
					"downloaded": downloaded,
				}
				if haveManifest {
					out["size_bytes"] = manifest.SizeBytes
					out["downloaded_at"] = manifest.DownloadedAt
					out["source_url"] = manifest.SourceURL
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Printf("model:      %s\n", desc.Name)
			fmt.Printf("file:       %s\n", store.Path())
			fmt.Printf("downloaded: %v\n", downloaded)
			if haveManifest {
				fmt.Printf("size:       %d bytes\n", manifest.SizeBytes)
				fmt.Printf("fetched:    %s\n", manifest.DownloadedAt)
			}
			return nil
		},
	}
}
