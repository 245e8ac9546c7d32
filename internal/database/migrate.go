package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/mysql/*.sql migrations/sqlite3/*.sql
var embedMigrations embed.FS

// Migrate applies every pending migration for the given driver
// ("mysql" or "sqlite3").
func Migrate(db *sql.DB, driver string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger})

	if err := goose.SetDialect(driver); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations/"+driver); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// gooseLogger routes goose output through slog.
type gooseLogger struct{ l *slog.Logger }

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Debug(fmt.Sprintf(format, v...), "component", "migrate")
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(fmt.Sprintf(format, v...), "component", "migrate")
	os.Exit(1)
}
