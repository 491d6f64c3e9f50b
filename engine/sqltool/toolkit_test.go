package sqltool

import (
	"context"
	"testing"

	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// echoModel answers every prompt with a fixed completion and records the prompt.
type echoModel struct {
	answer string
	prompt string
}

func (m *echoModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompt += text.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.answer}}}, nil
}

func (m *echoModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func newTestToolkit(t *testing.T, llm llms.Model, opts Options) *Toolkit {
	t.Helper()
	ctx := t.Context()
	store, _, err := sqlite.Bootstrap(ctx, &sqlite.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(ctx) })
	k, err := New(ctx, sqlite.NewCatalog(store.DB()), llm, opts)
	require.NoError(t, err)
	return k
}

func mustTool(t *testing.T, k *Toolkit, name string) tools.Tool {
	t.Helper()
	tool, ok := k.Lookup(name)
	require.True(t, ok, name)
	return tool
}

func TestToolkit_Tools(t *testing.T) {
	t.Run("Should expose data tools without a model", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		var names []string
		for _, tool := range k.Tools() {
			names = append(names, tool.Name())
		}
		assert.Equal(t, []string{ToolListTables, ToolSchema, ToolQuery}, names)
	})

	t.Run("Should add the query checker when a model is set", func(t *testing.T) {
		k := newTestToolkit(t, &echoModel{}, Options{})
		assert.Len(t, k.Tools(), 4)
		tool, ok := k.Lookup(ToolQueryChecker)
		require.True(t, ok)
		assert.Equal(t, ToolQueryChecker, tool.Name())
	})

	t.Run("Should publish parameter schemas", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		for _, tool := range k.Tools() {
			describer, ok := tool.(ParameterDescriber)
			require.True(t, ok, tool.Name())
			assert.Equal(t, "object", describer.Parameters()["type"])
		}
	})

	t.Run("Should miss unknown tools", func(t *testing.T) {
		_, ok := newTestToolkit(t, nil, Options{}).Lookup("sql_db_drop")
		assert.False(t, ok)
	})
}

func TestToolkit_ListTables(t *testing.T) {
	t.Run("Should list tables comma separated", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolListTables).Call(t.Context(), "")
		require.NoError(t, err)
		assert.Equal(t, "products, suppliers", out)
	})
}

func TestToolkit_Schema(t *testing.T) {
	t.Run("Should describe requested tables with sample rows", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolSchema).Call(t.Context(), "products")
		require.NoError(t, err)
		assert.Contains(t, out, "CREATE TABLE products")
		assert.Contains(t, out, "smartphone")
		assert.NotContains(t, out, "organic juice")
	})

	t.Run("Should accept JSON arguments", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolSchema).Call(t.Context(), `{"table_names": "suppliers, products"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "CREATE TABLE suppliers")
		assert.Contains(t, out, "CREATE TABLE products")
	})

	t.Run("Should report unknown tables to the model", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolSchema).Call(t.Context(), "customers")
		require.NoError(t, err)
		assert.Contains(t, out, "Error: table_names not found in database: customers")
	})

	t.Run("Should return errors from Run", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		_, err := k.Schema(t.Context(), []string{"customers"})
		assert.ErrorIs(t, err, ErrTableNotFound)
		_, err = k.Schema(t.Context(), []string{" ", ""})
		assert.Error(t, err)
	})
}

func TestToolkit_Query(t *testing.T) {
	t.Run("Should run queries verbatim", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolQuery).Call(t.Context(), "SELECT name, price FROM products WHERE id = 2")
		require.NoError(t, err)
		assert.Contains(t, out, "refrigerator")
		assert.Contains(t, out, "1199.99")
	})

	t.Run("Should accept JSON arguments", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolQuery).Call(t.Context(), `{"query": "SELECT count(*) AS n FROM suppliers"}`)
		require.NoError(t, err)
		assert.Contains(t, out, "3")
	})

	t.Run("Should fold SQL errors into the tool output", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := mustTool(t, k, ToolQuery).Call(t.Context(), "SELECT * FROM customers")
		require.NoError(t, err)
		assert.Contains(t, out, "Error:")
		assert.Contains(t, out, "no such table")
	})

	t.Run("Should return SQL errors from Run", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		runner, ok := mustTool(t, k, ToolQuery).(Runner)
		require.True(t, ok)
		_, err := runner.Run(t.Context(), "SELECT * FROM customers")
		assert.Error(t, err)
	})

	t.Run("Should refuse stacked statements and keep the data", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		ctx := t.Context()
		out, err := mustTool(t, k, ToolQuery).Call(ctx, "SELECT 1; DROP TABLE products")
		require.NoError(t, err)
		assert.Contains(t, out, "Error:")
		assert.Contains(t, out, "multiple statements")
		_, err = k.Query(ctx, "SELECT 1; DROP TABLE products")
		assert.ErrorIs(t, err, sqlite.ErrMultipleStatements)
		tables, err := k.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, "products, suppliers", tables)
	})

	t.Run("Should render rows returned by writes", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		out, err := k.Query(t.Context(), "INSERT INTO suppliers (name) VALUES ('d') RETURNING id")
		require.NoError(t, err)
		assert.Contains(t, out, "4")
		assert.NotContains(t, out, "rows_affected")
	})

	t.Run("Should see tables created through the query tool", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{})
		ctx := t.Context()
		_, err := k.Query(ctx, "CREATE TABLE warehouses (id INTEGER PRIMARY KEY, city TEXT)")
		require.NoError(t, err)
		tables, err := k.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, "products, suppliers, warehouses", tables)
		schema, err := k.Schema(ctx, []string{"warehouses"})
		require.NoError(t, err)
		assert.Contains(t, schema, "city TEXT")
	})

	t.Run("Should invalidate cached schemas after writes", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{SampleRows: 10})
		ctx := t.Context()
		before, err := k.Schema(ctx, []string{"suppliers"})
		require.NoError(t, err)
		assert.NotContains(t, before, "contactD@example.com")
		_, err = k.Query(ctx, "INSERT INTO suppliers (id, name, contactinfo) VALUES (4, 'd', 'contactD@example.com')")
		require.NoError(t, err)
		after, err := k.Schema(ctx, []string{"suppliers"})
		require.NoError(t, err)
		assert.Contains(t, after, "contactD@example.com")
	})

	t.Run("Should reject writes in read-only mode", func(t *testing.T) {
		k := newTestToolkit(t, nil, Options{ReadOnly: true})
		_, err := k.Query(t.Context(), "DELETE FROM products")
		assert.ErrorIs(t, err, ErrQueryRejected)
		out, err := k.Query(t.Context(), "SELECT count(*) FROM products")
		require.NoError(t, err)
		assert.Contains(t, out, "5")
		out, err = k.Query(t.Context(), "SELECT name FROM products WHERE name LIKE '%delete%' OR name = 'a;b'")
		require.NoError(t, err)
		assert.NotContains(t, out, "Error")
	})

	t.Run("Should reject empty queries", func(t *testing.T) {
		_, err := newTestToolkit(t, nil, Options{}).Query(t.Context(), "  ")
		assert.Error(t, err)
	})
}

func TestToolkit_CheckQuery(t *testing.T) {
	t.Run("Should send the query to the model", func(t *testing.T) {
		model := &echoModel{answer: " SELECT * FROM products; "}
		k := newTestToolkit(t, model, Options{})
		out, err := mustTool(t, k, ToolQueryChecker).Call(t.Context(), "SELECT * FROM products")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM products;", out)
		assert.Contains(t, model.prompt, "Double check the sqlite query above")
	})

	t.Run("Should fail without a model", func(t *testing.T) {
		_, err := newTestToolkit(t, nil, Options{}).CheckQuery(t.Context(), "SELECT 1")
		assert.Error(t, err)
	})
}

func TestToolkit_SelfTest(t *testing.T) {
	t.Run("Should exercise every data tool", func(t *testing.T) {
		report, err := newTestToolkit(t, nil, Options{}).SelfTest(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "products, suppliers", report.Tables)
		assert.Contains(t, report.Schema, "CREATE TABLE products")
		assert.Contains(t, report.QueryResult, "organic juice")
	})
}
