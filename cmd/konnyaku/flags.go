package main

import (
	"os"

	"github.com/urfave/cli/v3"

	"github.com/konnyaku/konnyaku/internal/logger"
)

var (
	modelsDir    string
	libPath      string
	maxContext   int64
	maxNewTokens int64
	logLevel     string
	logFormat    string
	debug        bool
)

func commonModelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "models-dir",
			Usage:       "directory for downloaded model files",
			Destination: &modelsDir,
		},
		&cli.StringFlag{
			Name:        "lib",
			Usage:       "directory containing the llama.cpp shared libraries",
			Destination: &libPath,
		},
		&cli.Int64Flag{
			Name:        "max-context",
			Aliases:     []string{"ctx"},
			Usage:       "context window in tokens",
			Value:       4096,
			Destination: &maxContext,
		},
		&cli.Int64Flag{
			Name:        "max-new-tokens",
			Usage:       "generation budget per translation",
			Value:       512,
			Destination: &maxNewTokens,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json)",
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

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Pretty(os.Stderr, level)
}
