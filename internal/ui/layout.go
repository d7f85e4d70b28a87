// internal/ui/layout.go

package ui

import (
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

// BaseLayout zawiera podstawowe wymiary i style dla layoutu
type BaseLayout struct {
	Width         int
	Height        int
	HeaderHeight  int
	FooterHeight  int
	ContentHeight int
}

// NewBaseLayout tworzy nowy podstawowy layout
func NewBaseLayout(width, height int) BaseLayout {
	const (
		headerHeight = 3 // Wysokość nagłówka
		footerHeight = 4 // Wysokość stopki
	)

	content := height - headerHeight - footerHeight
	if content < 3 {
		content = 3
	}
	return BaseLayout{
		Width:         width,
		Height:        height,
		HeaderHeight:  headerHeight,
		FooterHeight:  footerHeight,
		ContentHeight: content,
	}
}

// Header tworzy styl dla nagłówka
func (l BaseLayout) Header() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width-2). // -2 na ramkę
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Border)
}

// Footer tworzy styl dla stopki
func (l BaseLayout) Footer() lipgloss.Style {
	return lipgloss.NewStyle().
		Width(l.Width-2). // -2 na ramkę
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Border)
}

// InnerWidth is the usable width inside the frame and padding.
func (l BaseLayout) InnerWidth() int {
	if l.Width < 6 {
		return 1
	}
	return l.Width - 6
}

// CreateLipglossTable tworzy tabelę lipgloss z odpowiednimi stylami
func CreateLipglossTable(headers []string, rows [][]string) string {
	tableStyle := func(row, col int) lipgloss.Style {
		switch {
		case row == -1: // Nagłówki
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Highlight).
				Bold(true)
		default:
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Special)
		}
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		StyleFunc(tableStyle).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// ShortcutBar renders the key help table at the bottom of a view.
func ShortcutBar(headers, shortcuts []string) string {
	style := func(row, col int) lipgloss.Style {
		if row == -1 {
			return lipgloss.NewStyle().
				Padding(0, 1).
				Foreground(Subtle).
				Align(lipgloss.Center)
		}
		return lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(Special)
	}

	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(StatusBar)).
		StyleFunc(style).
		Headers(headers...).
		Row(shortcuts...).
		Render()
}
