package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme of the terminal output
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color

	// Per-domain colors for network listings
	Power lipgloss.Color
	Gas   lipgloss.Color
	Heat  lipgloss.Color
}

// Available themes
var (
	ThemeGrid = Theme{
		Name:    "grid",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ffff00"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
		Power:   lipgloss.Color("#ffd700"), // Gold
		Gas:     lipgloss.Color("#00a8cc"),
		Heat:    lipgloss.Color("#ff6b6b"), // Coral
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
		Power:   lipgloss.Color("#ffffff"),
		Gas:     lipgloss.Color("#cccccc"),
		Heat:    lipgloss.Color("#cccccc"),
	}

	// ThemePlain carries no colors at all.
	ThemePlain = Theme{Name: "plain"}

	// Default theme
	CurrentTheme = ThemeGrid

	// All available themes
	Themes = []Theme{
		ThemeGrid,
		ThemeMinimal,
		ThemePlain,
	}
)

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeGrid
}

// SetTheme changes the current theme
func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func (t Theme) plain() bool { return t.Name == ThemePlain.Name }

func (t Theme) fg(c lipgloss.Color) lipgloss.Style {
	if t.plain() || c == "" {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(c)
}
