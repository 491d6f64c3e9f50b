package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/catalog/*.sql migrations/chat/*.sql
var migrationsFS embed.FS

// MigrationSet names an independent group of embedded migrations. Each set
// tracks its version in its own table so they can be applied separately.
type MigrationSet struct {
	Dir          string
	VersionTable string
}

var (
	// CatalogMigrations create and seed the suppliers/products sample data.
	CatalogMigrations = MigrationSet{Dir: "migrations/catalog", VersionTable: "goose_db_version"}
	// ChatMigrations create the persisted chat history table.
	ChatMigrations = MigrationSet{Dir: "migrations/chat", VersionTable: "goose_chat_version"}
)

var gooseInitMu sync.Mutex

// ApplyMigrations executes the embedded migrations of set against db.
func ApplyMigrations(ctx context.Context, db *sql.DB, set MigrationSet) error {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	gooseInitMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		goose.SetTableName(CatalogMigrations.VersionTable)
		gooseInitMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	goose.SetTableName(set.VersionTable)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, set.Dir); err != nil {
		return fmt.Errorf("sqlite: apply migrations %s: %w", set.Dir, err)
	}
	return nil
}

func internalTables() map[string]struct{} {
	return map[string]struct{}{
		CatalogMigrations.VersionTable: {},
		ChatMigrations.VersionTable:    {},
		"chat_history":                 {},
	}
}
