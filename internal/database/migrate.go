package database

import (
	"context"
	"fmt"
)

// migrations 幂等建表语句，两种驱动通用
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		horizon     INTEGER NOT NULL,
		document    TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_entries (
		id          TEXT NOT NULL,
		plan_id     TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		snapshot    TEXT NOT NULL CHECK (snapshot IN ('live', 'original')),
		line        TEXT NOT NULL,
		building    TEXT NOT NULL,
		shift       INTEGER NOT NULL,
		item        TEXT NOT NULL,
		project     TEXT NOT NULL,
		quantity    DOUBLE PRECISION NOT NULL,
		pinned      BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (plan_id, snapshot, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_entries_slot
		ON schedule_entries (plan_id, snapshot, line, shift)`,
}

// Migrate 执行建表迁移
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := db.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行迁移 %d 失败: %w", i+1, err)
		}
	}
	return nil
}
