package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/core"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/compozy/sqlagent/engine/sqltool"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/spf13/cobra"
)

// CommandExecutor handles common setup and execution patterns for CLI commands.
type CommandExecutor struct {
	mode helpers.Mode
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ModeHandlers contains handlers for different execution modes.
type ModeHandlers struct {
	JSON HandlerFunc
	Text HandlerFunc
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command) *CommandExecutor {
	mode := helpers.DetectMode(cmd)
	logger.FromContext(cmd.Context()).Debug("detected execution mode", "mode", mode)
	return &CommandExecutor{mode: mode}
}

// Execute runs the appropriate handler based on the detected mode.
func (e *CommandExecutor) Execute(ctx context.Context, cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	switch e.mode {
	case helpers.ModeJSON:
		if handlers.JSON == nil {
			return fmt.Errorf("JSON mode handler not implemented")
		}
		return handlers.JSON(ctx, cmd, e, args)
	case helpers.ModeText:
		if handlers.Text == nil {
			return fmt.Errorf("text mode handler not implemented")
		}
		return handlers.Text(ctx, cmd, e, args)
	default:
		return fmt.Errorf("unsupported mode: %s", e.mode)
	}
}

// GetMode returns the detected execution mode.
func (e *CommandExecutor) GetMode() helpers.Mode {
	return e.mode
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, handlers ModeHandlers, args []string) error {
	executor := NewCommandExecutor(cmd)
	return HandleCommonErrors(executor.Execute(cmd.Context(), cmd, handlers, args), executor.GetMode())
}

// HandleCommonErrors provides consistent error handling across all commands.
func HandleCommonErrors(err error, mode helpers.Mode) error {
	if err == nil {
		return nil
	}
	if cliErr := categorizeError(err); cliErr != nil {
		helpers.OutputError(cliErr, mode)
		return cliErr
	}
	helpers.OutputError(err, mode)
	return err
}

// categorizeError converts errors to structured CLI errors
func categorizeError(err error) *helpers.CliError {
	var (
		cliErr *helpers.CliError
		llmErr *llmadapter.Error
	)
	switch {
	case errors.As(err, &cliErr):
		return cliErr
	case errors.Is(err, context.Canceled):
		return helpers.NewCliError("OPERATION_CANCELED", "Operation was canceled by user")
	case errors.Is(err, uc.ErrEmptyQuery):
		return helpers.NewCliError("EMPTY_QUERY", "No query provided")
	case errors.Is(err, sqltool.ErrQueryRejected):
		return helpers.NewCliError("QUERY_REJECTED", "Only read-only queries are allowed", err.Error())
	case errors.Is(err, agent.ErrMaxIterations):
		return helpers.NewCliError("MAX_ITERATIONS", "The agent gave up without an answer", err.Error())
	case errors.As(err, &llmErr):
		return helpers.NewCliError(llmErr.Code, "LLM provider request failed", core.RedactError(err)).
			WithContext("provider", llmErr.Provider)
	case core.CodeOf(err) != "":
		return helpers.NewCliError(core.CodeOf(err), "Agent run failed", core.RedactError(err))
	case helpers.IsTimeoutError(err):
		return helpers.NewCliError("OPERATION_TIMEOUT", "Operation timed out", err.Error())
	case helpers.IsNetworkError(err):
		return helpers.NewCliError("NETWORK_ERROR", "Network connection failed", err.Error())
	default:
		return nil
	}
}
