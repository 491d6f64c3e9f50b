package sqltool

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"
)

// Runner is implemented by tools that can report failures as errors instead
// of folding them into the text handed back to the model.
type Runner interface {
	Run(ctx context.Context, input string) (string, error)
}

// ParameterDescriber is implemented by tools that publish a JSON schema for
// their arguments.
type ParameterDescriber interface {
	Parameters() map[string]any
}

// argument extracts field from a JSON object input, or returns the raw input
// when it is not JSON.
func argument(input, field string) string {
	trimmed := strings.TrimSpace(input)
	if !gjson.Valid(trimmed) {
		return trimmed
	}
	parsed := gjson.Parse(trimmed)
	switch {
	case parsed.Type == gjson.String:
		return parsed.String()
	case !parsed.IsObject():
		return trimmed
	}
	for _, key := range []string{field, "input", "__arg1"} {
		if v := parsed.Get(key); v.Exists() {
			return v.String()
		}
	}
	return ""
}

// tableArgument accepts "a, b", ["a","b"] or {"table_names": ...}.
func tableArgument(input string) []string {
	trimmed := strings.TrimSpace(input)
	if gjson.Valid(trimmed) {
		parsed := gjson.Parse(trimmed)
		if parsed.IsObject() {
			for _, key := range []string{"table_names", "tables", "input"} {
				if v := parsed.Get(key); v.Exists() {
					parsed = v
					break
				}
			}
		}
		if parsed.IsArray() {
			var out []string
			for _, item := range parsed.Array() {
				out = append(out, item.String())
			}
			return out
		}
		if parsed.Type == gjson.String {
			trimmed = parsed.String()
		}
	}
	return strings.Split(trimmed, ",")
}

func errorText(err error) string {
	return "Error: " + err.Error()
}

func stringParam(name, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			name: map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{name},
	}
}

type listTablesTool struct{ k *Toolkit }

func (t *listTablesTool) Name() string { return ToolListTables }

func (t *listTablesTool) Description() string {
	return "Input is an empty string, output is a comma-separated list of tables in the database."
}

func (t *listTablesTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *listTablesTool) Run(ctx context.Context, _ string) (string, error) {
	return t.k.ListTables(ctx)
}

func (t *listTablesTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.Run(ctx, input)
	if err != nil {
		return errorText(err), nil
	}
	return out, nil
}

type schemaTool struct{ k *Toolkit }

func (t *schemaTool) Name() string { return ToolSchema }

func (t *schemaTool) Description() string {
	return "Input to this tool is a comma-separated list of tables, output is the schema and sample rows " +
		"for those tables. Be sure that the tables actually exist by calling " + ToolListTables +
		" first! Example Input: table1, table2, table3"
}

func (t *schemaTool) Parameters() map[string]any {
	return stringParam("table_names", "Comma-separated list of table names")
}

func (t *schemaTool) Run(ctx context.Context, input string) (string, error) {
	return t.k.Schema(ctx, tableArgument(input))
}

func (t *schemaTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.Run(ctx, input)
	if err != nil {
		return errorText(err), nil
	}
	return out, nil
}

type queryTool struct{ k *Toolkit }

func (t *queryTool) Name() string { return ToolQuery }

func (t *queryTool) Description() string {
	return "Input to this tool is a detailed and correct SQL query, output is a result from the database. " +
		"If the query is not correct, an error message will be returned. If an error is returned, rewrite " +
		"the query, check the query, and try again. If you encounter an issue with an unknown column, use " +
		ToolSchema + " to query the correct table fields."
}

func (t *queryTool) Parameters() map[string]any {
	return stringParam("query", "A detailed and correct SQLite query")
}

func (t *queryTool) Run(ctx context.Context, input string) (string, error) {
	return t.k.Query(ctx, argument(input, "query"))
}

func (t *queryTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.Run(ctx, input)
	if err != nil {
		return errorText(err), nil
	}
	return out, nil
}

type queryCheckerTool struct{ k *Toolkit }

func (t *queryCheckerTool) Name() string { return ToolQueryChecker }

func (t *queryCheckerTool) Description() string {
	return "Use this tool to double check if your query is correct before executing it. " +
		"Always use this tool before executing a query with " + ToolQuery + "!"
}

func (t *queryCheckerTool) Parameters() map[string]any {
	return stringParam("query", "The SQLite query to check")
}

func (t *queryCheckerTool) Run(ctx context.Context, input string) (string, error) {
	return t.k.CheckQuery(ctx, argument(input, "query"))
}

func (t *queryCheckerTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.Run(ctx, input)
	if err != nil {
		return errorText(err), nil
	}
	return out, nil
}
