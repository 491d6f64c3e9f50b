package cli

import (
	"context"
	"fmt"

	"github.com/compozy/sqlagent/cli/cmd/ask"
	configcmd "github.com/compozy/sqlagent/cli/cmd/config"
	"github.com/compozy/sqlagent/cli/cmd/db"
	"github.com/compozy/sqlagent/cli/cmd/query"
	"github.com/compozy/sqlagent/cli/cmd/start"
	versioncmd "github.com/compozy/sqlagent/cli/cmd/version"
	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "sqlagent.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlagent",
		Short:         "Ask questions about a SQLite database in natural language",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return config.ManagerFromContext(cmd.Context()).Close(cmd.Context())
		},
	}
	addGlobalFlags(root)
	root.AddCommand(
		start.NewStartCommand(),
		db.NewDBCommand(),
		ask.NewAskCommand(),
		query.NewQueryCommand(),
		configcmd.NewConfigCommand(),
		versioncmd.NewVersionCommand(),
	)
	return root
}

func addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", defaultEnvFile, "Path to the environment file")
	flags.String(helpers.FormatFlag, string(helpers.OutputFormatAuto), "Output format: auto, json or text")
	flags.String("log-level", "", "Log level: debug, info, warn or error (defaults to runtime.log_level)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	addRegistryFlags(flags)
}

// SetupGlobalConfig loads the env file and configuration, builds the logger
// and attaches both to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	var sources []config.Source
	if configFile, err := cmd.Flags().GetString("config"); err == nil && configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	if cliFlags := extractCLIFlags(cmd); len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	if level == logger.NoLevel {
		level = logger.LogLevel(cfg.Runtime.LogLevel)
	}
	log := logger.SetupLogger(level, logJSON, logSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithManager(ctx, manager)
	ctx = context.WithValue(ctx, helpers.ConfigKey, cfg)
	cmd.SetContext(ctx)
	return nil
}
