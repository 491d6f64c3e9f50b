package sqltool

import (
	"context"
	"fmt"
)

const (
	reportTable = "products"
	reportQuery = "SELECT * FROM products"
)

// Report is a smoke test of every data tool against the sample tables.
type Report struct {
	Tables      string `json:"tables"`
	Schema      string `json:"schema"`
	QueryResult string `json:"query_result"`
}

// SelfTest runs the list, schema and query tools the way the assistant would.
func (k *Toolkit) SelfTest(ctx context.Context) (*Report, error) {
	tables, err := k.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqltool: list tables: %w", err)
	}
	schema, err := k.Schema(ctx, []string{reportTable})
	if err != nil {
		return nil, fmt.Errorf("sqltool: schema: %w", err)
	}
	result, err := k.Query(ctx, reportQuery)
	if err != nil {
		return nil, fmt.Errorf("sqltool: query: %w", err)
	}
	return &Report{Tables: tables, Schema: schema, QueryResult: result}, nil
}
