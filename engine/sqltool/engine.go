package sqltool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/tmc/langchaingo/tools/sqldatabase"
)

const dialectSQLite = "sqlite"

// Engine adapts the sqlite catalog to the langchaingo sqldatabase engine contract.
type Engine struct {
	catalog  *sqlite.Catalog
	readOnly bool
}

var _ sqldatabase.Engine = (*Engine)(nil)

func NewEngine(catalog *sqlite.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// NewReadOnlyEngine builds an engine whose queries run with SQLite's
// query_only pragma enabled.
func NewReadOnlyEngine(catalog *sqlite.Catalog) *Engine {
	return &Engine{catalog: catalog, readOnly: true}
}

func (e *Engine) Dialect() string {
	return dialectSQLite
}

// Query runs query and renders every cell as text.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	exec := e.catalog.Exec
	if e.readOnly {
		exec = e.catalog.ExecReadOnly
	}
	res, err := exec(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	if !res.HasRows() {
		return []string{"rows_affected"}, [][]string{{strconv.FormatInt(res.RowsAffected, 10)}}, nil
	}
	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		rows = append(rows, cells)
	}
	return res.Columns, rows, nil
}

func (e *Engine) TableNames(ctx context.Context) ([]string, error) {
	return e.catalog.ListTables(ctx)
}

func (e *Engine) TableInfo(ctx context.Context, table string) (string, error) {
	return e.catalog.CreateTableSQL(ctx, table)
}

// Close is a no-op; the connection pool belongs to the sqlite store.
func (e *Engine) Close() error {
	return nil
}

// FormatValue renders a scanned SQLite value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
