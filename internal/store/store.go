// Package store opens the backend named by the configuration.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/litetable/litetable-kit/internal/config"
	"github.com/litetable/litetable-kit/internal/store/bigtable"
	"github.com/litetable/litetable-kit/internal/store/memory"
	"github.com/litetable/litetable-kit/internal/store/pebble"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

const pebbleDir = "pebble"

// Backend is a store that serves both data and administrative calls and takes part in the
// application lifecycle.
type Backend interface {
	litetable.Admin
	Table(name string) litetable.Table

	Start() error
	Stop() error
	Name() string
}

// Open creates the configured backend. It is not started.
func Open(cfg *config.Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendMemory:
		b, err = openMemory(cfg)
	case config.BackendPebble:
		b, err = openPebble(cfg)
	case config.BackendBigtable:
		b, err = openBigtable(cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	return b, nil
}

func openMemory(cfg *config.Config) (Backend, error) {
	s, err := memory.New(&memory.Config{
		ShardCount: cfg.ShardCount,
		DataDir:    cfg.DataDir,
		WALEnabled: cfg.WALEnabled,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPebble(cfg *config.Config) (Backend, error) {
	s, err := pebble.New(&pebble.Config{
		Dir: filepath.Join(cfg.DataDir, pebbleDir),
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBigtable(cfg *config.Config) (Backend, error) {
	s, err := bigtable.New(&bigtable.Config{
		Project:      cfg.BigtableProject,
		Instance:     cfg.BigtableInstance,
		EmulatorHost: cfg.BigtableEmulator,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
