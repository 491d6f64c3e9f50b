package uc

import (
	"context"
	"fmt"
	"strings"

	"github.com/compozy/sqlagent/engine/sqltool"
)

// Catalog is the read side of the database used by the table endpoints.
type Catalog interface {
	ListTables(ctx context.Context) ([]string, error)
	TableRows(ctx context.Context, table string) ([]map[string]any, error)
}

// -----------------------------------------------------------------------------
// ListTables
// -----------------------------------------------------------------------------

type ListTables struct {
	catalog Catalog
}

func NewListTables(catalog Catalog) *ListTables {
	return &ListTables{catalog: catalog}
}

func (uc *ListTables) Execute(ctx context.Context) ([]string, error) {
	tables, err := uc.catalog.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	if tables == nil {
		tables = []string{}
	}
	return tables, nil
}

// -----------------------------------------------------------------------------
// TableData
// -----------------------------------------------------------------------------

type TableData struct {
	catalog Catalog
}

func NewTableData(catalog Catalog) *TableData {
	return &TableData{catalog: catalog}
}

func (uc *TableData) Execute(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := uc.catalog.TableRows(ctx, strings.TrimSpace(table))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

// -----------------------------------------------------------------------------
// TestTools
// -----------------------------------------------------------------------------

// SelfTester runs every data tool once.
type SelfTester interface {
	SelfTest(ctx context.Context) (*sqltool.Report, error)
}

type TestTools struct {
	toolkit SelfTester
}

func NewTestTools(toolkit SelfTester) *TestTools {
	return &TestTools{toolkit: toolkit}
}

func (uc *TestTools) Execute(ctx context.Context) (*sqltool.Report, error) {
	return uc.toolkit.SelfTest(ctx)
}
