package helpers

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Mode is how a command renders its results.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)

var ciVars = []string{
	"CI",
	"JENKINS_HOME",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"TRAVIS",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
	"CODEBUILD_BUILD_ID",
	"TEAMCITY_VERSION",
	"CONTINUOUS_INTEGRATION",
}

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// isInteractiveEnvironment checks if we're in an interactive environment
func isInteractiveEnvironment() bool {
	if isRunningInCI() {
		return false
	}
	if !isTerminal(os.Stdout) {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

// DetectMode picks the output mode from --format, falling back to text on a
// terminal and JSON everywhere else.
func DetectMode(cmd *cobra.Command) Mode {
	format := string(OutputFormatAuto)
	if cmd != nil {
		if f := cmd.Flags().Lookup(FormatFlag); f != nil {
			format = f.Value.String()
		}
	}
	switch OutputFormat(format) {
	case OutputFormatJSON:
		return ModeJSON
	case OutputFormatText:
		return ModeText
	}
	if isInteractiveEnvironment() {
		return ModeText
	}
	return ModeJSON
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isInteractiveEnvironment()
}
