package views

import (
	"strings"

	"sshConsole/internal/ui"
	"sshConsole/internal/ui/messages"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const banner = `
         _      ___                  _
 ___ ___| |__  / __|___ _ _  ___ ___| |___
(_-<(_-<| '_ \| (__/ _ \ ' \(_-</ _ \ / -_)
/__//__/|_.__/ \___\___/_||_/__/\___/_\___|`

type InitialPromptModel struct {
	password      []rune
	configPath    string
	errorMessage  string
	width, height int
}

func NewInitialPromptModel(configPath string) *InitialPromptModel {
	return &InitialPromptModel{configPath: configPath}
}

func (m *InitialPromptModel) Init() tea.Cmd {
	return nil
}

func (m *InitialPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case messages.UnlockFailedMsg:
		m.password = m.password[:0]
		m.errorMessage = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyRunes:
			m.password = append(m.password, msg.Runes...)
		case tea.KeyBackspace, tea.KeyDelete:
			if len(m.password) > 0 {
				m.password = m.password[:len(m.password)-1]
			}
		case tea.KeyEnter:
			if len(m.password) == 0 {
				m.errorMessage = "Password cannot be empty"
				return m, nil
			}
			password := string(m.password)
			return m, func() tea.Msg { return messages.PasswordEnteredMsg(password) }
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *InitialPromptModel) View() string {
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		ui.DescriptionStyle.Italic(true).Render("Using config file: "+m.configPath),
		"",
		lipgloss.NewStyle().Bold(true).Render("Enter master passphrase: ")+strings.Repeat("*", len(m.password)),
	)
	return renderPromptFrame(body, m.errorMessage, m.width, m.height)
}

// TokenPromptModel asks for the dashboard bearer token.
type TokenPromptModel struct {
	input         textinput.Model
	backendURL    string
	errorMessage  string
	width, height int
}

func NewTokenPromptModel(backendURL string) *TokenPromptModel {
	input := textinput.New()
	input.Placeholder = "Paste API token (ESC to continue without one)"
	input.EchoMode = textinput.EchoPassword
	input.EchoCharacter = '*'
	input.Focus()

	return &TokenPromptModel{
		input:      input,
		backendURL: backendURL,
	}
}

func (m *TokenPromptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *TokenPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, func() tea.Msg { return messages.TokenEnteredMsg{Skip: true} }

		case tea.KeyEnter:
			token := strings.TrimSpace(m.input.Value())
			if token == "" {
				m.errorMessage = "Token cannot be empty. Press ESC to continue without one."
				return m, nil
			}
			return m, func() tea.Msg { return messages.TokenEnteredMsg{Token: token} }

		case tea.KeyCtrlC:
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *TokenPromptModel) View() string {
	body := lipgloss.JoinVertical(
		lipgloss.Center,
		ui.DescriptionStyle.Italic(true).Render("Dashboard: "+m.backendURL),
		"",
		ui.DescriptionStyle.Italic(true).Render("The token is stored encrypted in the config file."),
		"",
		lipgloss.NewStyle().Bold(true).Render("API token: ")+m.input.View(),
	)
	return renderPromptFrame(body, m.errorMessage, m.width, m.height)
}

func renderPromptFrame(body, errMsg string, width, height int) string {
	content := lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.NewStyle().Foreground(ui.Highlight).Bold(true).Render(banner),
		"",
		body,
	)
	if errMsg != "" {
		content += "\n" + ui.ErrorStyle.Render(errMsg)
	}

	framed := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.Border).
		Padding(1, 2).
		Render(content)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, framed)
}
