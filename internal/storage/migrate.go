package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/storage/migrations"
	"github.com/pressly/goose/v3"
)

// gooseLogger routes goose output into the application log
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), logger.F("component", "migrations"))
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), logger.F("component", "migrations"))
}

// RunMigrations applies the embedded schema migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(gooseLogger{})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}
