package ask

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/compozy/sqlagent/cli/cmd"
	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/engine/agent"
	llmadapter "github.com/compozy/sqlagent/engine/llm/adapter"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/spf13/cobra"
)

const stepsFlag = "steps"

var (
	nodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	answerStyle = lipgloss.NewStyle().Bold(true)
)

// NewAskCommand answers a natural language question against the database.
func NewAskCommand() *cobra.Command {
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: handleJSON,
				Text: handleText,
			}, args)
		},
	}
	askCmd.Flags().Bool(stepsFlag, false, "Print every tool call and result while the agent works")
	return askCmd
}

func run(ctx context.Context, question string, fn func(agent.Event) error) (*uc.ChatResult, error) {
	rt, err := cmd.OpenRuntime(ctx, cmd.RuntimeOptions{WithAgent: true})
	if err != nil {
		return nil, err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()
	return uc.NewChatQuery(rt.Agent, rt.History).Stream(ctx, question, fn)
}

func handleJSON(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, args []string) error {
	res, err := run(ctx, strings.Join(args, " "), nil)
	if err != nil {
		return err
	}
	return helpers.WriteJSON(os.Stdout, res)
}

func handleText(ctx context.Context, cobraCmd *cobra.Command, _ *cmd.CommandExecutor, args []string) error {
	showSteps, err := cobraCmd.Flags().GetBool(stepsFlag)
	if err != nil {
		return err
	}
	var onEvent func(agent.Event) error
	if showSteps {
		onEvent = func(ev agent.Event) error {
			printStep(ev)
			return nil
		}
	}
	res, err := run(ctx, strings.Join(args, " "), onEvent)
	if err != nil {
		return err
	}
	if res.RelevantAnswer == "" {
		fmt.Println(mutedStyle.Render("(no answer)"))
		return nil
	}
	fmt.Println(answerStyle.Render(res.RelevantAnswer))
	return nil
}

func printStep(ev agent.Event) {
	msg := ev.Message
	switch {
	case msg.HasToolCalls():
		for _, call := range msg.ToolCalls {
			fmt.Printf("%s %s %s\n", nodeStyle.Render(ev.Node), call.Name, mutedStyle.Render(string(call.Arguments)))
		}
	case msg.Role == llmadapter.RoleTool:
		for _, res := range msg.ToolResults {
			fmt.Printf("%s %s\n", nodeStyle.Render(res.Name), mutedStyle.Render(helpers.Truncate(res.Content, 200)))
		}
	}
}
