package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha.
const (
	colorPink     lipgloss.Color = "#f5c2e7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface0 lipgloss.Color = "#313244"
	colorSurface1 lipgloss.Color = "#45475a"
	colorMantle   lipgloss.Color = "#181825"
)

// Theme maps node classes to styles.
type Theme struct {
	Name    string
	Classes map[string]lipgloss.Style
	Input   lipgloss.Style
	Status  lipgloss.Style
	Footer  lipgloss.Style
	HelpKey lipgloss.Style
	Help    lipgloss.Style
}

// Style returns the combined style for classes; later classes win.
func (t Theme) Style(classes []string) lipgloss.Style {
	s := lipgloss.NewStyle()
	for _, c := range classes {
		if cs, ok := t.Classes[c]; ok {
			s = s.Inherit(cs)
		}
	}
	return s
}

// Mocha is the default dark theme.
func Mocha() Theme {
	return Theme{
		Name: "mocha",
		Classes: map[string]lipgloss.Style{
			"title":    lipgloss.NewStyle().Foreground(colorPink).Bold(true),
			"selected": lipgloss.NewStyle().Foreground(colorLavender).Bold(true),
			"done":     lipgloss.NewStyle().Foreground(colorOverlay1).Strikethrough(true),
			"muted":    lipgloss.NewStyle().Foreground(colorSubtext0),
			"active":   lipgloss.NewStyle().Foreground(colorGreen).Underline(true),
			"error":    lipgloss.NewStyle().Foreground(colorRed),
			"box":      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1).Padding(0, 1),
		},
		Input:   lipgloss.NewStyle().Foreground(colorText).Background(colorSurface0).Padding(0, 1),
		Status:  lipgloss.NewStyle().Foreground(colorRed).Padding(0, 2),
		Footer:  lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorMantle).Padding(0, 2),
		HelpKey: lipgloss.NewStyle().Foreground(colorPink).Background(colorMantle).Bold(true),
		Help:    lipgloss.NewStyle().Foreground(colorSubtext0).Background(colorMantle),
	}
}

// Plain renders without colors, for dumb terminals and tests.
func Plain() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Name: "plain",
		Classes: map[string]lipgloss.Style{
			"box": lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		},
		Input:   plain,
		Status:  plain,
		Footer:  plain,
		HelpKey: plain,
		Help:    plain,
	}
}

// ThemeByName resolves a configured theme name.
func ThemeByName(name string) (Theme, error) {
	switch name {
	case "", "mocha":
		return Mocha(), nil
	case "plain":
		return Plain(), nil
	}
	return Theme{}, fmt.Errorf("tui: unknown theme %q", name)
}
