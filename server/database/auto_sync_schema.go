package database

import (
	"context"
	_ "embed"
	"time"

	"github.com/ctolnik/work-eye/zapctx"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// AutoSyncSchema creates missing tables and indexes. Every statement is
// idempotent, so it runs on each startup.
func (s *Store) AutoSyncSchema(ctx context.Context) error {
	zapctx.Info(ctx, "🔄 Auto-syncing Postgres schema...")

	start := time.Now()
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		zapctx.Error(ctx, "Failed to sync Postgres schema", zap.Error(err))
		return classify(err)
	}

	zapctx.Info(ctx, "✅ Postgres schema is up to date", zap.Duration("duration", time.Since(start)))
	return nil
}
