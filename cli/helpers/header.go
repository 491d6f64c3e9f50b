package helpers

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
)

// RenderHeader renders the product name as ASCII art for interactive terminals.
func RenderHeader() string {
	logo := figure.NewFigure("sqlagent", "standard", true)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	return style.Render(logo.String())
}
