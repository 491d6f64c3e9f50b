package db

import (
	"context"
	"fmt"
	"os"

	"github.com/compozy/sqlagent/cli/cmd"
	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/spf13/cobra"
)

// NewDBCommand groups database maintenance commands.
func NewDBCommand() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	dbCmd.AddCommand(newBootstrapCommand(), newTablesCommand())
	return dbCmd
}

type bootstrapResult struct {
	Path    string   `json:"path"`
	Created bool     `json:"created"`
	Tables  []string `json:"tables"`
}

func newBootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create and seed the sample database when it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					res, err := bootstrap(ctx)
					if err != nil {
						return err
					}
					return helpers.WriteJSON(os.Stdout, res)
				},
				Text: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					res, err := bootstrap(ctx)
					if err != nil {
						return err
					}
					if res.Created {
						fmt.Printf("Created %s with tables %v\n", res.Path, res.Tables)
					} else {
						fmt.Printf("%s already exists with tables %v\n", res.Path, res.Tables)
					}
					return nil
				},
			}, args)
		},
	}
}

func bootstrap(ctx context.Context) (*bootstrapResult, error) {
	cfg := config.FromContext(ctx)
	store, created, err := sqlite.Bootstrap(ctx, sqlite.ConfigFromApp(&cfg.Database))
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close(context.WithoutCancel(ctx)) }()
	tables, err := sqlite.NewCatalog(store.DB()).ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return &bootstrapResult{Path: cfg.Database.Path, Created: created, Tables: tables}, nil
}

func newTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the user tables",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			list := func(ctx context.Context) ([]string, error) {
				rt, err := cmd.OpenRuntime(ctx, cmd.RuntimeOptions{})
				if err != nil {
					return nil, err
				}
				defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()
				return rt.Catalog.ListTables(ctx)
			}
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					tables, err := list(ctx)
					if err != nil {
						return err
					}
					return helpers.WriteJSON(os.Stdout, map[string]any{"tables": tables})
				},
				Text: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					tables, err := list(ctx)
					if err != nil {
						return err
					}
					for _, t := range tables {
						fmt.Println(t)
					}
					return nil
				},
			}, args)
		},
	}
}
