// internal/ui/styles.go

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Kolory bieżącego motywu
var (
	Subtle    lipgloss.Color
	Highlight lipgloss.Color
	Special   lipgloss.Color
	Error     lipgloss.Color
	StatusBar lipgloss.Color
	Border    lipgloss.Color
)

// Style przebudowywane przy każdej zmianie motywu
var (
	BaseStyle         lipgloss.Style
	TitleStyle        lipgloss.Style
	SelectedItemStyle lipgloss.Style
	ItemStyle         lipgloss.Style
	DescriptionStyle  lipgloss.Style
	Infotext          lipgloss.Style
	HostStyle         lipgloss.Style
	LabelStyle        lipgloss.Style
	InputStyle        lipgloss.Style
	ButtonStyle       lipgloss.Style
	SuccessStyle      lipgloss.Style
	ErrorStyle        lipgloss.Style
	WindowStyle       lipgloss.Style
	PanelStyle        lipgloss.Style
	HeaderStyle       lipgloss.Style
	CellStyle         lipgloss.Style

	StatusConnectingStyle lipgloss.Style
	StatusConnectedStyle  lipgloss.Style
	StatusDefaultStyle    lipgloss.Style

	// Transcript entries
	CommandStyle lipgloss.Style
	InfoStyle    lipgloss.Style

	DirectoryStyle   lipgloss.Style
	ExecutableStyle  lipgloss.Style
	ArchiveStyle     lipgloss.Style
	ImageStyle       lipgloss.Style
	DocumentStyle    lipgloss.Style
	DefaultFileStyle lipgloss.Style
)

func init() {
	updateStyles(themes[0])
}

// GetMaxWidth zwraca maksymalną szerokość tekstu w slice'u
func GetMaxWidth(items []string) int {
	maxWidth := 0
	for _, item := range items {
		if w := lipgloss.Width(item); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth
}

// Truncate cuts s to width cells, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
