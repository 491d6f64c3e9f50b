package query

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/compozy/sqlagent/cli/cmd"
	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/spf13/cobra"
)

// NewQueryCommand runs a SQL statement through the query tool.
func NewQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a SQL statement directly",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, args []string) error {
					out, err := run(ctx, strings.Join(args, " "))
					if err != nil {
						return err
					}
					return helpers.WriteJSON(os.Stdout, map[string]string{"result": out})
				},
				Text: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, args []string) error {
					out, err := run(ctx, strings.Join(args, " "))
					if err != nil {
						return err
					}
					fmt.Println(out)
					return nil
				},
			}, args)
		},
	}
}

func run(ctx context.Context, statement string) (string, error) {
	rt, err := cmd.OpenRuntime(ctx, cmd.RuntimeOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()
	return uc.NewDirectQuery(rt.Toolkit).Execute(ctx, statement)
}
