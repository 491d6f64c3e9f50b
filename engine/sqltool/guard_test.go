package sqltool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuard_Check(t *testing.T) {
	g := &Guard{}

	t.Run("Should allow read-only statements", func(t *testing.T) {
		for _, q := range []string{
			"SELECT * FROM products",
			"select name from products;",
			"WITH cheap AS (SELECT * FROM products WHERE price < 10) SELECT * FROM cheap",
			"EXPLAIN QUERY PLAN SELECT * FROM products",
		} {
			assert.NoError(t, g.Check(q), q)
		}
	})

	t.Run("Should reject writes", func(t *testing.T) {
		for _, q := range []string{
			"DELETE FROM products",
			"INSERT INTO suppliers (name) VALUES ('x')",
			"DROP TABLE products",
			"PRAGMA table_info(products)",
		} {
			assert.ErrorIs(t, g.Check(q), ErrQueryRejected, q)
		}
	})

	t.Run("Should ignore keywords and separators inside literals", func(t *testing.T) {
		for _, q := range []string{
			"SELECT * FROM products WHERE description LIKE '%update%'",
			"SELECT * FROM products WHERE name = 'a;b'",
			"SELECT replace(name, 'a', 'b') FROM products",
			`SELECT "create" FROM products -- delete later`,
		} {
			assert.NoError(t, g.Check(q), q)
		}
	})

	t.Run("Should reject replace statements", func(t *testing.T) {
		for _, q := range []string{
			"REPLACE INTO suppliers (id, name) VALUES (1, 'x')",
			"INSERT OR REPLACE INTO suppliers (id, name) VALUES (1, 'x')",
			"WITH x AS (SELECT 1) REPLACE INTO suppliers (id, name) VALUES (1, 'x')",
		} {
			assert.ErrorIs(t, g.Check(q), ErrQueryRejected, q)
		}
	})

	t.Run("Should reject stacked statements hidden after a comment", func(t *testing.T) {
		err := g.Check("SELECT 1 /* ok */; DELETE FROM products")
		assert.ErrorContains(t, err, "multiple statements")
	})

	t.Run("Should reject writes hidden in a CTE", func(t *testing.T) {
		err := g.Check("WITH x AS (SELECT 1) DELETE FROM products")
		assert.ErrorIs(t, err, ErrQueryRejected)
	})

	t.Run("Should reject stacked statements", func(t *testing.T) {
		err := g.Check("SELECT 1; DROP TABLE products")
		assert.ErrorContains(t, err, "multiple statements")
	})

	t.Run("Should reject empty statements", func(t *testing.T) {
		assert.ErrorIs(t, g.Check(" ; "), ErrQueryRejected)
	})
}

func TestIsMutating(t *testing.T) {
	t.Run("Should flag statements that change state", func(t *testing.T) {
		assert.True(t, IsMutating("CREATE TABLE t (id INTEGER)"))
		assert.True(t, IsMutating("update products set price = 1"))
		assert.False(t, IsMutating("SELECT * FROM products"))
		assert.False(t, IsMutating("SELECT * FROM products WHERE description LIKE '%update%'"))
		assert.True(t, IsMutating("INSERT INTO suppliers (name) VALUES ('x') RETURNING id"))
	})
}

func TestArguments(t *testing.T) {
	t.Run("Should return raw input when it is not JSON", func(t *testing.T) {
		assert.Equal(t, "SELECT 1", argument(" SELECT 1 ", "query"))
	})

	t.Run("Should read the named field", func(t *testing.T) {
		assert.Equal(t, "SELECT 2", argument(`{"query":"SELECT 2"}`, "query"))
		assert.Equal(t, "SELECT 3", argument(`{"__arg1":"SELECT 3"}`, "query"))
		assert.Equal(t, "SELECT 4", argument(`"SELECT 4"`, "query"))
	})

	t.Run("Should split table lists", func(t *testing.T) {
		assert.Equal(t, []string{"a", " b"}, tableArgument("a, b"))
		assert.Equal(t, []string{"a", "b"}, tableArgument(`["a","b"]`))
		assert.Equal(t, []string{"a", "b"}, tableArgument(`{"table_names":["a","b"]}`))
		assert.Equal(t, []string{"products"}, tableArgument(`{"table_names":"products"}`))
	})
}

func TestFormatValue(t *testing.T) {
	t.Run("Should render SQLite values", func(t *testing.T) {
		assert.Equal(t, "NULL", FormatValue(nil))
		assert.Equal(t, "42", FormatValue(int64(42)))
		assert.Equal(t, "5.99", FormatValue(5.99))
		assert.Equal(t, "x", FormatValue("x"))
	})
}
