package logger

import (
	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
)

func defaultStyles() *charmlog.Styles {
	styles := charmlog.DefaultStyles()
	levelStyle := func(label, color string) lipgloss.Style {
		return lipgloss.NewStyle().
			SetString(label).
			Bold(true).
			MaxWidth(5).
			Foreground(lipgloss.Color(color))
	}
	styles.Levels[charmlog.DebugLevel] = levelStyle("DEBUG", "63")
	styles.Levels[charmlog.InfoLevel] = levelStyle("INFO", "86")
	styles.Levels[charmlog.WarnLevel] = levelStyle("WARN", "192")
	styles.Levels[charmlog.ErrorLevel] = levelStyle("ERROR", "204")
	styles.Keys["err"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Keys["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color("204"))
	styles.Values["error"] = lipgloss.NewStyle().Bold(true)
	return styles
}
