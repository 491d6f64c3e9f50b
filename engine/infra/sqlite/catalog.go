package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var ErrTableNotFound = errors.New("table not found")

// Column describes one column of a table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// QueryResult holds the outcome of an arbitrary statement.
type QueryResult struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

// HasRows reports whether the statement produced a result set.
func (r *QueryResult) HasRows() bool {
	return len(r.Columns) > 0
}

// Catalog inspects and queries user tables.
type Catalog struct {
	db       *sql.DB
	excluded map[string]struct{}
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db, excluded: internalTables()}
}

// ListTables returns user tables sorted by name, hiding sqlite and service tables.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("name").
		From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list tables query: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tables: %w", err)
	}
	defer rows.Close()
	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scan table name: %w", err)
		}
		if _, skip := c.excluded[name]; skip {
			continue
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter tables: %w", err)
	}
	return tables, nil
}

// requireTable resolves table case-insensitively and returns the name as
// stored in the schema.
func (c *Catalog) requireTable(ctx context.Context, table string) (string, error) {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return "", err
	}
	idx := slices.IndexFunc(tables, func(name string) bool {
		return strings.EqualFold(name, table)
	})
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return tables[idx], nil
}

// TableRows returns every row of table as a column to value map.
func (c *Catalog) TableRows(ctx context.Context, table string) ([]map[string]any, error) {
	table, err := c.requireTable(ctx, table)
	if err != nil {
		return nil, err
	}
	query, args, err := sq.Select("*").From(QuoteIdent(table)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build rows query: %w", err)
	}
	result, err := queryRows(ctx, c.db, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			record[col] = row[i]
		}
		out = append(out, record)
	}
	return out, nil
}

// TableColumns describes the columns of table.
func (c *Catalog) TableColumns(ctx context.Context, table string) ([]Column, error) {
	table, err := c.requireTable(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, "SELECT name, type, \"notnull\", pk FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("sqlite: table info %s: %w", table, err)
	}
	defer rows.Close()
	var cols []Column
	for rows.Next() {
		var (
			col     Column
			notNull int
			pk      int
		)
		if err := rows.Scan(&col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("sqlite: scan column: %w", err)
		}
		col.NotNull = notNull != 0
		col.PrimaryKey = pk != 0
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter columns: %w", err)
	}
	return cols, nil
}

// CreateTableSQL returns the CREATE TABLE statement stored for table.
func (c *Catalog) CreateTableSQL(ctx context.Context, table string) (string, error) {
	table, err := c.requireTable(ctx, table)
	if err != nil {
		return "", err
	}
	query, args, err := sq.Select("sql").
		From("sqlite_master").
		Where(sq.Eq{"type": "table", "name": table}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlite: build schema query: %w", err)
	}
	var ddl sql.NullString
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&ddl); err != nil {
		return "", fmt.Errorf("sqlite: schema for %s: %w", table, err)
	}
	return strings.TrimSpace(ddl.String), nil
}

// Exec runs a single arbitrary statement. Statements that produce rows return them;
// everything else reports the number of affected rows.
func (c *Catalog) Exec(ctx context.Context, statement string, args ...any) (*QueryResult, error) {
	if err := CheckSingleStatement(statement); err != nil {
		return nil, fmt.Errorf("sqlite: exec: %w", err)
	}
	return run(ctx, c.db, statement, args...)
}

// ExecReadOnly runs statement on a connection with query_only enabled, so
// SQLite itself refuses any write the statement attempts.
func (c *Catalog) ExecReadOnly(ctx context.Context, statement string, args ...any) (*QueryResult, error) {
	if err := CheckSingleStatement(statement); err != nil {
		return nil, fmt.Errorf("sqlite: exec: %w", err)
	}
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: acquire conn: %w", err)
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("sqlite: enable query_only: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "PRAGMA query_only = OFF")
	}()
	return run(ctx, conn, statement, args...)
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func run(ctx context.Context, db executor, statement string, args ...any) (*QueryResult, error) {
	if ReturnsRows(statement) {
		return queryRows(ctx, db, statement, args...)
	}
	res, err := db.ExecContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return &QueryResult{RowsAffected: affected}, nil
}

func queryRows(ctx context.Context, db executor, statement string, args ...any) (*QueryResult, error) {
	rows, err := db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlite: columns: %w", err)
	}
	result := &QueryResult{Columns: cols, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iter rows: %w", err)
	}
	return result, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return v
	}
}

// QuoteIdent quotes an SQLite identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
