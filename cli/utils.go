package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/compozy/sqlagent/pkg/config/definition"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addRegistryFlags exposes every registry field that declares a CLI flag.
func addRegistryFlags(flags *pflag.FlagSet) {
	for _, field := range definition.CreateRegistry().GetAllFields() {
		if field.CLIFlag == "" || flags.Lookup(field.CLIFlag) != nil {
			continue
		}
		switch field.Type {
		case reflect.TypeOf(""):
			def, _ := field.Default.(string)
			flags.StringP(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf(0):
			def, _ := field.Default.(int)
			flags.IntP(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf(int64(0)):
			def, _ := field.Default.(int64)
			flags.Int64P(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf(false):
			def, _ := field.Default.(bool)
			flags.BoolP(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf(float64(0)):
			def, _ := field.Default.(float64)
			flags.Float64P(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf(time.Duration(0)):
			def, _ := field.Default.(time.Duration)
			flags.DurationP(field.CLIFlag, field.Shorthand, def, field.Help)
		case reflect.TypeOf([]string{}):
			def, _ := field.Default.([]string)
			flags.StringSliceP(field.CLIFlag, field.Shorthand, def, field.Help)
		}
	}
}

// extractCLIFlags collects the registry flags explicitly set by the user.
func extractCLIFlags(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	flags := cmd.Flags()
	for _, field := range definition.CreateRegistry().GetAllFields() {
		if field.CLIFlag == "" || !flags.Changed(field.CLIFlag) {
			continue
		}
		var (
			value any
			err   error
		)
		switch field.Type {
		case reflect.TypeOf(0):
			value, err = flags.GetInt(field.CLIFlag)
		case reflect.TypeOf(int64(0)):
			value, err = flags.GetInt64(field.CLIFlag)
		case reflect.TypeOf(false):
			value, err = flags.GetBool(field.CLIFlag)
		case reflect.TypeOf(float64(0)):
			value, err = flags.GetFloat64(field.CLIFlag)
		case reflect.TypeOf(time.Duration(0)):
			value, err = flags.GetDuration(field.CLIFlag)
		case reflect.TypeOf([]string{}):
			value, err = flags.GetStringSlice(field.CLIFlag)
		default:
			value, err = flags.GetString(field.CLIFlag)
		}
		if err == nil {
			out[field.CLIFlag] = value
		}
	}
	return out
}

// loadEnvFile loads environment variables from a file with security validation
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the project directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
