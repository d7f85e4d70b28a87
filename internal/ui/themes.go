package ui

import (
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Name string

	// Podstawowe kolory
	Subtle    lipgloss.Color
	Highlight lipgloss.Color
	Special   lipgloss.Color
	Error     lipgloss.Color
	StatusBar lipgloss.Color
	Border    lipgloss.Color

	// Kolory elementów menu i informacji
	ItemColor     lipgloss.Color
	InfotextColor lipgloss.Color
	HostColor     lipgloss.Color
	LabelColor    lipgloss.Color
	InputColor    lipgloss.Color
	CommandColor  lipgloss.Color

	// Kolory dla typów plików
	DirectoryColor   lipgloss.Color
	ExecutableColor  lipgloss.Color
	ArchiveColor     lipgloss.Color
	ImageColor       lipgloss.Color
	DocumentColor    lipgloss.Color
	DefaultFileColor lipgloss.Color
}

var (
	currentThemeIndex = 0

	themes = []Theme{
		{
			Name:      "default",
			Subtle:    lipgloss.Color("#6C7086"),
			Highlight: lipgloss.Color("#7DC4E4"),
			Special:   lipgloss.Color("#FF9E64"),
			Error:     lipgloss.Color("#F38BA8"),
			StatusBar: lipgloss.Color("#E7E7E7"),
			Border:    lipgloss.Color("#33B2FF"),

			ItemColor:     lipgloss.Color("#FF3A99"),
			InfotextColor: lipgloss.Color("#FF3A99"),
			HostColor:     lipgloss.Color("#2DAFFF"),
			LabelColor:    lipgloss.Color("#A6ADC8"),
			InputColor:    lipgloss.Color("#FFFFFF"),
			CommandColor:  lipgloss.Color("#A6E3A1"),

			DirectoryColor:   lipgloss.Color("#1E90FF"),
			ExecutableColor:  lipgloss.Color("#32CD32"),
			ArchiveColor:     lipgloss.Color("#BA55D3"),
			ImageColor:       lipgloss.Color("#FF8C00"),
			DocumentColor:    lipgloss.Color("#FFD700"),
			DefaultFileColor: lipgloss.Color("#A9A9A9"),
		},
		{
			// Paleta Dracula
			Name:      "dracula",
			Subtle:    lipgloss.Color("#6272A4"),
			Highlight: lipgloss.Color("#8BE9FD"),
			Special:   lipgloss.Color("#FF79C6"),
			Error:     lipgloss.Color("#FF5555"),
			StatusBar: lipgloss.Color("#44475A"),
			Border:    lipgloss.Color("#BD93F9"),

			ItemColor:     lipgloss.Color("#50FA7B"),
			InfotextColor: lipgloss.Color("#F1FA8C"),
			HostColor:     lipgloss.Color("#8BE9FD"),
			LabelColor:    lipgloss.Color("#F8F8F2"),
			InputColor:    lipgloss.Color("#F8F8F2"),
			CommandColor:  lipgloss.Color("#50FA7B"),

			DirectoryColor:   lipgloss.Color("#BD93F9"),
			ExecutableColor:  lipgloss.Color("#50FA7B"),
			ArchiveColor:     lipgloss.Color("#FFB86C"),
			ImageColor:       lipgloss.Color("#FF79C6"),
			DocumentColor:    lipgloss.Color("#F1FA8C"),
			DefaultFileColor: lipgloss.Color("#F8F8F2"),
		},
		{
			// Inspirowany VS Code Dark+
			Name:      "vscode",
			Subtle:    lipgloss.Color("#808080"),
			Highlight: lipgloss.Color("#569CD6"),
			Special:   lipgloss.Color("#4EC9B0"),
			Error:     lipgloss.Color("#F44747"),
			StatusBar: lipgloss.Color("#007ACC"),
			Border:    lipgloss.Color("#569CD6"),

			ItemColor:     lipgloss.Color("#C586C0"),
			InfotextColor: lipgloss.Color("#DCDCAA"),
			HostColor:     lipgloss.Color("#4EC9B0"),
			LabelColor:    lipgloss.Color("#D4D4D4"),
			InputColor:    lipgloss.Color("#D4D4D4"),
			CommandColor:  lipgloss.Color("#DCDCAA"),

			DirectoryColor:   lipgloss.Color("#569CD6"),
			ExecutableColor:  lipgloss.Color("#4EC9B0"),
			ArchiveColor:     lipgloss.Color("#CE9178"),
			ImageColor:       lipgloss.Color("#C586C0"),
			DocumentColor:    lipgloss.Color("#DCDCAA"),
			DefaultFileColor: lipgloss.Color("#D4D4D4"),
		},
		{
			// Ciepły, retro pomarańczowy
			Name:      "retro",
			Subtle:    lipgloss.Color("#D0D0D0"),
			Highlight: lipgloss.Color("#FFA500"),
			Special:   lipgloss.Color("#FF8C00"),
			Error:     lipgloss.Color("#DC143C"),
			StatusBar: lipgloss.Color("#444444"),
			Border:    lipgloss.Color("#FFA500"),

			ItemColor:     lipgloss.Color("#FFA500"),
			InfotextColor: lipgloss.Color("#FFA500"),
			HostColor:     lipgloss.Color("#FF8C00"),
			LabelColor:    lipgloss.Color("#E8E8E8"),
			InputColor:    lipgloss.Color("#FFFFFF"),
			CommandColor:  lipgloss.Color("#98FB98"),

			DirectoryColor:   lipgloss.Color("#FF8C00"),
			ExecutableColor:  lipgloss.Color("#98FB98"),
			ArchiveColor:     lipgloss.Color("#FFD700"),
			ImageColor:       lipgloss.Color("#FF69B4"),
			DocumentColor:    lipgloss.Color("#98FB98"),
			DefaultFileColor: lipgloss.Color("#E8E8E8"),
		},
		{
			Name:      "neon",
			Subtle:    lipgloss.Color("#CCCCCC"),
			Highlight: lipgloss.Color("#39FF14"),
			Special:   lipgloss.Color("#00FF7F"),
			Error:     lipgloss.Color("#FF4500"),
			StatusBar: lipgloss.Color("#4D4D4D"),
			Border:    lipgloss.Color("#39FF14"),

			ItemColor:     lipgloss.Color("#39FF14"),
			InfotextColor: lipgloss.Color("#39FF14"),
			HostColor:     lipgloss.Color("#00FF7F"),
			LabelColor:    lipgloss.Color("#E0E0E0"),
			InputColor:    lipgloss.Color("#FFFFFF"),
			CommandColor:  lipgloss.Color("#7CFC00"),

			DirectoryColor:   lipgloss.Color("#00FF7F"),
			ExecutableColor:  lipgloss.Color("#7CFC00"),
			ArchiveColor:     lipgloss.Color("#FFD700"),
			ImageColor:       lipgloss.Color("#00FFFF"),
			DocumentColor:    lipgloss.Color("#7CFC00"),
			DefaultFileColor: lipgloss.Color("#E0E0E0"),
		},
	}
)

// SwitchTheme przełącza na następny motyw i aktualizuje wszystkie style
func SwitchTheme() string {
	currentThemeIndex = (currentThemeIndex + 1) % len(themes)
	updateStyles(themes[currentThemeIndex])
	return themes[currentThemeIndex].Name
}

// CurrentTheme returns the name of the active theme.
func CurrentTheme() string {
	return themes[currentThemeIndex].Name
}

func updateStyles(theme Theme) {
	Subtle = theme.Subtle
	Highlight = theme.Highlight
	Special = theme.Special
	Error = theme.Error
	StatusBar = theme.StatusBar
	Border = theme.Border

	BaseStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Border)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Highlight).
		MarginLeft(2)

	SelectedItemStyle = lipgloss.NewStyle().
		Foreground(Highlight).
		Bold(true)

	ItemStyle = lipgloss.NewStyle().
		Foreground(theme.ItemColor)

	DescriptionStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		MarginLeft(2)

	Infotext = lipgloss.NewStyle().
		Foreground(theme.InfotextColor)

	HostStyle = lipgloss.NewStyle().
		Foreground(theme.HostColor)

	LabelStyle = lipgloss.NewStyle().
		Foreground(theme.LabelColor)

	InputStyle = lipgloss.NewStyle().
		Foreground(theme.InputColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Highlight).
		Padding(0, 1)

	ButtonStyle = lipgloss.NewStyle().
		Foreground(Special).
		Bold(true)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(Special).
		Bold(true)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	WindowStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
		Foreground(Highlight).
		Bold(true).
		Underline(true).
		Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
		Foreground(theme.InputColor).
		Padding(0, 1)

	StatusConnectingStyle = lipgloss.NewStyle().
		Foreground(Highlight).
		Bold(true)

	StatusConnectedStyle = lipgloss.NewStyle().
		Foreground(Special).
		Bold(true)

	StatusDefaultStyle = lipgloss.NewStyle().
		Foreground(Subtle)

	CommandStyle = lipgloss.NewStyle().
		Foreground(theme.CommandColor).
		Bold(true)

	InfoStyle = lipgloss.NewStyle().
		Foreground(Subtle).
		Italic(true)

	DirectoryStyle = lipgloss.NewStyle().
		Foreground(theme.DirectoryColor).
		Bold(true)
	ExecutableStyle = lipgloss.NewStyle().Foreground(theme.ExecutableColor)
	ArchiveStyle = lipgloss.NewStyle().Foreground(theme.ArchiveColor)
	ImageStyle = lipgloss.NewStyle().Foreground(theme.ImageColor)
	DocumentStyle = lipgloss.NewStyle().Foreground(theme.DocumentColor)
	DefaultFileStyle = lipgloss.NewStyle().Foreground(theme.DefaultFileColor)
}

// FileStyle picks the style for a directory listing entry.
func FileStyle(name string, isDir bool, mode string) lipgloss.Style {
	if isDir {
		return DirectoryStyle
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar":
		return ArchiveStyle
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp":
		return ImageStyle
	case ".txt", ".md", ".pdf", ".log", ".csv", ".json", ".yaml", ".yml":
		return DocumentStyle
	}
	// Bit wykonywania dla właściciela
	if len(mode) >= 4 && mode[3] == 'x' {
		return ExecutableStyle
	}
	return DefaultFileStyle
}
