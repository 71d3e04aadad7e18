package main

import (
	"os"

	"github.com/Martificial-UK/trail/internal/cmd/cli"
	logpkg "github.com/Martificial-UK/trail/pkg/log"
)

func main() {
	// Respect TRAIL_LOG_LEVEL / TRAIL_LOG_FORMAT for CLI output.
	lg, err := logpkg.ApplyConfig(&logpkg.Config{
		Level:  envOr("TRAIL_LOG_LEVEL", "warn"),
		Format: os.Getenv("TRAIL_LOG_FORMAT"),
	})
	if err != nil {
		lg = logpkg.NewLogger(logpkg.WithLevel(logpkg.WarnLevel))
	}

	root := cli.NewRoot(lg)
	if err := root.Execute(); err != nil {
		lg.Error("command failed", logpkg.Err(err))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
