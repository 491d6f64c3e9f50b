package version

import (
	"fmt"
	"os"

	"github.com/compozy/sqlagent/cli/helpers"
	"github.com/compozy/sqlagent/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if helpers.DetectMode(cmd) == helpers.ModeJSON {
				return helpers.WriteJSON(os.Stdout, info)
			}
			fmt.Printf("sqlagent %s (commit %s, built %s, %s)\n",
				info.Version, info.CommitHash, info.BuildDate, info.GoVersion)
			return nil
		},
	}
}
