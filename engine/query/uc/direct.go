package uc

import (
	"context"
	"strings"

	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/tmc/langchaingo/tools"
)

// ToolLookup finds a tool by name.
type ToolLookup interface {
	Lookup(name string) (tools.Tool, bool)
}

// DirectQuery runs caller supplied SQL through the query tool, bypassing the
// model. The statement is passed verbatim unless the toolkit has a guard.
type DirectQuery struct {
	tools ToolLookup
}

func NewDirectQuery(lookup ToolLookup) *DirectQuery {
	return &DirectQuery{tools: lookup}
}

func (uc *DirectQuery) Execute(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	tool, ok := uc.tools.Lookup(sqltool.ToolQuery)
	if !ok {
		return "", ErrToolNotFound
	}
	logger.FromContext(ctx).Debug("Running direct query", "query", query)
	if runner, ok := tool.(sqltool.Runner); ok {
		return runner.Run(ctx, query)
	}
	return tool.Call(ctx, query)
}
