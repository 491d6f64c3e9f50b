package logger

import (
	"fmt"

	"github.com/spf13/cobra"
)

func SetupLogger(level LogLevel, logJSON, logSource bool) Logger {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.JSON = logJSON
	cfg.AddSource = logSource
	Init(cfg)
	return GetDefault()
}

func GetLoggerConfig(cmd *cobra.Command) (LogLevel, bool, bool, error) {
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return NoLevel, false, false, fmt.Errorf("failed to get log-level flag: %w", err)
	}
	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return NoLevel, false, false, fmt.Errorf("failed to get log-json flag: %w", err)
	}
	logSource, err := cmd.Flags().GetBool("log-source")
	if err != nil {
		return NoLevel, false, false, fmt.Errorf("failed to get log-source flag: %w", err)
	}
	return LogLevel(logLevel), logJSON, logSource, nil
}
