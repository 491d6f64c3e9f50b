package sqltool

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
	"github.com/tmc/langchaingo/tools/sqldatabase"
)

const (
	ToolListTables   = "sql_db_list_tables"
	ToolSchema       = "sql_db_schema"
	ToolQuery        = "sql_db_query"
	ToolQueryChecker = "sql_db_query_checker"

	defaultSampleRows    = 3
	defaultSchemaTTL     = 5 * time.Minute
	defaultSchemaEntries = 64
)

var ErrTableNotFound = errors.New("table_names not found in database")

// Options tune the toolkit.
type Options struct {
	SampleRows     int
	ReadOnly       bool
	SchemaCacheTTL time.Duration
}

// Toolkit exposes the SQL tools offered to the assistant.
type Toolkit struct {
	catalog *sqlite.Catalog
	engine  *Engine
	llm     llms.Model
	guard   *Guard
	opts    Options

	mu      sync.RWMutex
	db      *sqldatabase.SQLDatabase
	schemas *expirable.LRU[string, string]
}

// New builds a toolkit over catalog. llm is optional and only needed for the
// query checker tool.
func New(ctx context.Context, catalog *sqlite.Catalog, llm llms.Model, opts Options) (*Toolkit, error) {
	if catalog == nil {
		return nil, fmt.Errorf("sqltool: catalog is required")
	}
	if opts.SampleRows < 0 {
		opts.SampleRows = 0
	} else if opts.SampleRows == 0 {
		opts.SampleRows = defaultSampleRows
	}
	if opts.SchemaCacheTTL <= 0 {
		opts.SchemaCacheTTL = defaultSchemaTTL
	}
	k := &Toolkit{
		catalog: catalog,
		engine:  NewEngine(catalog),
		llm:     llm,
		opts:    opts,
		schemas: expirable.NewLRU[string, string](defaultSchemaEntries, nil, opts.SchemaCacheTTL),
	}
	if opts.ReadOnly {
		k.guard = &Guard{}
		k.engine = NewReadOnlyEngine(catalog)
	}
	if err := k.refresh(ctx); err != nil {
		return nil, err
	}
	return k, nil
}

// refresh rebuilds the sqldatabase view so table additions and drops are seen.
func (k *Toolkit) refresh(ctx context.Context) error {
	db, err := sqldatabase.NewSQLDatabase(k.engine, nil)
	if err != nil {
		return fmt.Errorf("sqltool: init sql database: %w", err)
	}
	db.SampleRowsNumber = k.opts.SampleRows
	k.mu.Lock()
	k.db = db
	k.mu.Unlock()
	k.schemas.Purge()
	logger.FromContext(ctx).Debug("sql toolkit refreshed", "tables", db.TableNames())
	return nil
}

func (k *Toolkit) database() *sqldatabase.SQLDatabase {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.db
}

// Tools returns the tools in the order they are offered to the model.
func (k *Toolkit) Tools() []tools.Tool {
	out := []tools.Tool{
		&listTablesTool{k: k},
		&schemaTool{k: k},
		&queryTool{k: k},
	}
	if k.llm != nil {
		out = append(out, &queryCheckerTool{k: k})
	}
	return out
}

// Lookup finds a tool by name.
func (k *Toolkit) Lookup(name string) (tools.Tool, bool) {
	for _, t := range k.Tools() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ListTables returns the comma separated table names.
func (k *Toolkit) ListTables(ctx context.Context) (string, error) {
	tables, err := k.catalog.ListTables(ctx)
	if err != nil {
		return "", err
	}
	return strings.Join(tables, ", "), nil
}

// Schema returns the CREATE statements and sample rows for tables.
func (k *Toolkit) Schema(ctx context.Context, tables []string) (string, error) {
	tables = normalizeTables(tables)
	if len(tables) == 0 {
		return "", fmt.Errorf("sqltool: at least one table name is required")
	}
	known, err := k.catalog.ListTables(ctx)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, t := range tables {
		if !slices.Contains(known, t) {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTableNotFound, strings.Join(missing, ", "))
	}
	key := strings.Join(tables, ",")
	if cached, ok := k.schemas.Get(key); ok {
		return cached, nil
	}
	db := k.database()
	if !hasAllTables(db.TableNames(), tables) {
		if err := k.refresh(ctx); err != nil {
			return "", err
		}
		db = k.database()
	}
	info, err := db.TableInfo(ctx, tables)
	if err != nil {
		return "", fmt.Errorf("sqltool: table info: %w", err)
	}
	info = strings.TrimSpace(info)
	k.schemas.Add(key, info)
	return info, nil
}

// Query executes statement and renders the result as text.
func (k *Toolkit) Query(ctx context.Context, statement string) (string, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", fmt.Errorf("sqltool: empty query")
	}
	if k.guard != nil {
		if err := k.guard.Check(statement); err != nil {
			return "", err
		}
	}
	out, err := k.database().Query(ctx, statement)
	if err != nil {
		return "", err
	}
	if IsMutating(statement) {
		if err := k.refresh(ctx); err != nil {
			logger.FromContext(ctx).Warn("failed to refresh sql toolkit", "error", err)
		}
	}
	return out, nil
}

// CheckQuery asks the model to double check statement.
func (k *Toolkit) CheckQuery(ctx context.Context, statement string) (string, error) {
	if k.llm == nil {
		return "", fmt.Errorf("sqltool: query checker requires a model")
	}
	prompt := fmt.Sprintf(queryCheckerPrompt, statement, k.engine.Dialect())
	out, err := llms.GenerateFromSinglePrompt(ctx, k.llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("sqltool: check query: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func normalizeTables(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		t = strings.Trim(strings.TrimSpace(t), "`\"'")
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

func hasAllTables(known, wanted []string) bool {
	for _, t := range wanted {
		if !slices.Contains(known, t) {
			return false
		}
	}
	return true
}

const queryCheckerPrompt = `%s
Double check the %s query above for common mistakes, including:
- Using NOT IN with NULL values
- Using UNION when UNION ALL should have been used
- Using BETWEEN for exclusive ranges
- Data type mismatch in predicates
- Properly quoting identifiers
- Using the correct number of arguments for functions
- Casting to the correct data type
- Using the proper columns for joins

If there are any of the above mistakes, rewrite the query. If there are no mistakes, just reproduce the original query.

Output the final SQL query only.`
