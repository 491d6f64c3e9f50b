package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/compozy/sqlagent/cli/cmd"
	"github.com/compozy/sqlagent/cli/helpers"
	appconfig "github.com/compozy/sqlagent/pkg/config"
	"github.com/compozy/sqlagent/pkg/config/definition"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	yamlFlag = "yaml"
	redacted = "[REDACTED]"
)

// Entry is one resolved configuration value.
type Entry struct {
	Path   string               `json:"path"   yaml:"path"`
	Value  any                  `json:"value"  yaml:"value"`
	Source appconfig.SourceType `json:"source" yaml:"source"`
}

// NewConfigCommand returns the config command
func NewConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration diagnostics",
	}
	configCmd.AddCommand(newShowCommand())
	return configCmd
}

func newShowCommand() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration values and their sources",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
				JSON: func(ctx context.Context, _ *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					return helpers.WriteJSON(os.Stdout, Collect(ctx))
				},
				Text: func(ctx context.Context, c *cobra.Command, _ *cmd.CommandExecutor, _ []string) error {
					asYAML, err := c.Flags().GetBool(yamlFlag)
					if err != nil {
						return err
					}
					if asYAML {
						return writeYAML(os.Stdout, Collect(ctx))
					}
					return writeTable(os.Stdout, Collect(ctx))
				},
			}, args)
		},
	}
	showCmd.Flags().Bool(yamlFlag, false, "Print YAML instead of a table in text mode")
	return showCmd
}

// Collect flattens the active configuration into koanf paths.
func Collect(ctx context.Context) []Entry {
	manager := appconfig.ManagerFromContext(ctx)
	cfg := manager.Get()
	registry := definition.CreateRegistry()
	var out []Entry
	walk("", reflect.ValueOf(cfg).Elem(), func(path string, v any) {
		if registry.IsSensitive(path) && fmt.Sprint(v) != "" {
			v = redacted
		}
		out = append(out, Entry{Path: path, Value: v, Source: manager.Service.GetSource(path)})
	})
	return out
}

var durationType = reflect.TypeOf(time.Duration(0))

func walk(prefix string, val reflect.Value, emit func(string, any)) {
	typ := val.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := strings.Split(field.Tag.Get("koanf"), ",")[0]
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		fv := val.Field(i)
		switch {
		case fv.Kind() == reflect.Struct:
			walk(path, fv, emit)
		case fv.Type() == durationType:
			emit(path, time.Duration(fv.Int()).String())
		case fv.CanInterface():
			if s, ok := fv.Interface().(fmt.Stringer); ok {
				emit(path, s.String())
				continue
			}
			emit(path, fv.Interface())
		}
	}
}

func writeTable(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVALUE\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Path, helpers.Truncate(fmt.Sprint(e.Value), 60), e.Source)
	}
	return tw.Flush()
}

func writeYAML(w io.Writer, entries []Entry) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(entries); err != nil {
		return err
	}
	return enc.Close()
}
