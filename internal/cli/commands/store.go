// Package commands implements the milgrim subcommands.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mistakeknot/milgrim/internal/config"
	"github.com/mistakeknot/milgrim/internal/store"
	"github.com/mistakeknot/milgrim/internal/task"
)

// OpenStore builds the task store selected by the configuration. The
// returned func releases any resources the store holds.
func OpenStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Mode {
	case config.ModeRemote:
		s, err := store.NewHTTPStore(cfg.Store.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.ModeLocal:
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		s, err := store.NewLocalStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.ModeMemory:
		return store.NewMemStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store mode %q", cfg.Store.Mode)
	}
}

// firstSnapshot subscribes, waits for the initial full listing and tears
// the subscription back down.
func firstSnapshot(ctx context.Context, st store.Store, owner string) ([]task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	sub, err := st.Subscribe(ctx, store.Query{Owner: owner})
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	select {
	case snap := <-sub.Snapshots:
		return snap, nil
	case err := <-sub.Errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
