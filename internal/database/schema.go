package database

import (
	"context"
	"fmt"
)

// schema 排班方案表结构，可重复执行
var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id                 UUID PRIMARY KEY,
		status             TEXT NOT NULL DEFAULT 'draft',
		feasible           BOOLEAN NOT NULL,
		understaffed_hours INTEGER NOT NULL DEFAULT 0,
		total_cost         DOUBLE PRECISION NOT NULL,
		coverage_rate      DOUBLE PRECISION NOT NULL DEFAULT 0,
		seed               BIGINT NOT NULL,
		setup              JSONB NOT NULL,
		plan               JSONB NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_status_created ON schedules (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS schedule_assignments (
		schedule_id UUID NOT NULL REFERENCES schedules (id) ON DELETE CASCADE,
		day         CHAR(2) NOT NULL,
		slot_start  SMALLINT NOT NULL,
		slot_end    SMALLINT NOT NULL,
		worker_id   INTEGER NOT NULL,
		role        TEXT NOT NULL,
		position    INTEGER NOT NULL,
		PRIMARY KEY (schedule_id, day, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_assignments_worker ON schedule_assignments (worker_id)`,
}

// Migrate 创建缺失的表和索引
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("执行第 %d 条建表语句失败: %w", i+1, err)
		}
	}
	return nil
}
