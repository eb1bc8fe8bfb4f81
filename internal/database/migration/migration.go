package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Step is one named DDL statement.
type Step struct {
	Name string
	SQL  string
}

// Execer runs a statement.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Run executes steps in order and stops at the first failure.
// Steps are expected to be idempotent (IF NOT EXISTS / IF EXISTS), so re-running is safe.
func Run(ctx context.Context, db Execer, steps []Step, logger *slog.Logger, dbHost string) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	logger.Info("db migration start",
		"component", "database",
		"event", "db_migration_start",
		"status", "in_progress",
		"db_host", dbHost,
		"steps", len(steps),
	)

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("db migration failed",
				"component", "database",
				"event", "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"error_message", err.Error(),
				"db_host", dbHost,
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logger.Info("db migration step",
			"component", "database",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"db_host", dbHost,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	logger.Info("db migration success",
		"component", "database",
		"event", "db_migration_success",
		"status", "success",
		"db_host", dbHost,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
