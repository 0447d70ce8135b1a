package app

import (
	"context"
	"errors"

	"sysnotifd/internal/config"
	"sysnotifd/internal/storage"
	logx "sysnotifd/pkg/logx"
)

// RecentHistory opens the configured store, returns the last n entries oldest
// first, and closes it again.
func RecentHistory(ctx context.Context, cfg *config.Config, n int, log logx.Logger) ([]storage.Entry, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, storage.ErrDisabled
	}
	st, err := storage.Open(sc, log)
	if err != nil {
		return nil, err
	}
	entries, err := st.RecentHistory(ctx, n)
	return entries, errors.Join(err, st.Close())
}
