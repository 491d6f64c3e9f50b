package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
)

const historyTable = "chat_history"

// SQLiteHistory persists entries in the chat_history table.
type SQLiteHistory struct {
	db  *sql.DB
	max int
}

// NewSQLiteHistory applies the chat migrations to db.
func NewSQLiteHistory(ctx context.Context, db *sql.DB, maxEntries int) (*SQLiteHistory, error) {
	if db == nil {
		return nil, fmt.Errorf("chat: sqlite history requires a database")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if err := sqlite.ApplyMigrations(ctx, db, sqlite.ChatMigrations); err != nil {
		return nil, err
	}
	return &SQLiteHistory{db: db, max: maxEntries}, nil
}

func (h *SQLiteHistory) Append(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := validateAll(entries); err != nil {
		return err
	}
	insert := sq.Insert(historyTable).Columns("role", "content", "created_at")
	for _, e := range stamp(entries) {
		insert = insert.Values(string(e.Role), e.Content, e.CreatedAt.Format(time.RFC3339Nano))
	}
	keep := sq.Select("id").From(historyTable).OrderBy("id DESC").Limit(uint64(h.max)) // #nosec G115 -- positive
	keepSQL, keepArgs, err := keep.ToSql()
	if err != nil {
		return fmt.Errorf("chat: build trim query: %w", err)
	}
	trim := sq.Delete(historyTable).Where(sq.Expr("id NOT IN ("+keepSQL+")", keepArgs...))

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chat: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("chat: insert entries: %w", err)
	}
	if _, err := trim.RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("chat: trim history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chat: commit: %w", err)
	}
	return nil
}

func (h *SQLiteHistory) List(ctx context.Context) ([]Entry, error) {
	rows, err := sq.Select("role", "content", "created_at").
		From(historyTable).
		OrderBy("id ASC").
		RunWith(h.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat: list entries: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			role, content string
			created       any
		)
		if err := rows.Scan(&role, &content, &created); err != nil {
			return nil, fmt.Errorf("chat: scan entry: %w", err)
		}
		out = append(out, Entry{Role: Role(role), Content: content, CreatedAt: parseTime(created)})
	}
	return out, rows.Err()
}

func (h *SQLiteHistory) Clear(ctx context.Context) error {
	if _, err := sq.Delete(historyTable).RunWith(h.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("chat: clear history: %w", err)
	}
	return nil
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	}
	return time.Time{}
}

func parseTimeString(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
