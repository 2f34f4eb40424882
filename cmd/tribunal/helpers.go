package main

import (
	"fmt"
	"log/slog"

	"github.com/dpopsuev/tribunal/internal/chambers"
	"github.com/dpopsuev/tribunal/internal/store"
)

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolveGenerator maps a --generator flag value to an opinion
// generator. Only the deterministic stub ships today; model-backed
// generators plug in here.
func resolveGenerator(name string) (chambers.Generator, error) {
	switch name {
	case "", "stub":
		return chambers.StubGenerator{}, nil
	default:
		return nil, fmt.Errorf("unknown generator %q (available: stub)", name)
	}
}

// openStore opens the SQLite run store, or returns nil when path is
// empty and persistence is disabled.
func openStore(path string) (store.Store, error) {
	if path == "" {
		return nil, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return st, nil
}
