package views

import (
	"errors"
	"fmt"
	"strings"

	apperr "sshConsole/internal/error"
	"sshConsole/internal/session"
	"sshConsole/internal/ui"
	"sshConsole/internal/ui/messages"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TerminalView shows the session transcript above a single command line.
type TerminalView struct {
	model    *ui.Model
	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
	errMsg   string
	rendered int
}

func NewTerminalView(model *ui.Model) *TerminalView {
	input := textinput.New()
	input.Prompt = "$ "
	input.Placeholder = "command"
	input.CharLimit = 4096
	input.Focus()

	v := &TerminalView{
		model: model,
		input: input,
	}
	v.resize(model.GetTerminalWidth(), model.GetTerminalHeight())
	v.refresh()
	return v
}

func (v *TerminalView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *TerminalView) resize(width, height int) {
	v.width, v.height = width, height
	layout := ui.NewBaseLayout(width, height)
	v.viewport = viewport.New(layout.InnerWidth(), layout.ContentHeight)
	v.input.Width = layout.InnerWidth() - 4
	v.rendered = -1
}

// refresh re-renders the transcript when it has grown.
func (v *TerminalView) refresh() {
	s := v.model.Session()
	if s == nil {
		return
	}
	entries := s.TranscriptEntries()
	if len(entries) == v.rendered {
		return
	}
	atBottom := v.viewport.AtBottom() || v.rendered <= 0
	v.viewport.SetContent(RenderTranscript(entries))
	v.rendered = len(entries)
	if atBottom {
		v.viewport.GotoBottom()
	}
}

func (v *TerminalView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := v.model.Keys()
	s := v.model.Session()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.model.SetTerminalSize(msg.Width, msg.Height)
		v.resize(msg.Width, msg.Height)
		v.refresh()
		return v, nil

	case messages.SessionUpdateMsg:
		v.refresh()
		return v, nil

	case messages.OpenFinishedMsg:
		v.errMsg = ""
		if msg.Err != nil && !errors.Is(msg.Err, session.ErrOpenAborted) {
			v.errMsg = apperr.Reason(msg.Err)
		}
		v.refresh()
		return v, nil

	case tea.KeyMsg:
		if s == nil {
			v.model.SetActiveView(ui.ViewMain)
			return v, nil
		}

		switch {
		case msg.String() == "ctrl+c":
			v.model.SetQuitting(true)
			return v, tea.Quit

		case key.Matches(msg, keys.Back):
			s.Release()
			v.model.SetActiveView(ui.ViewMain)
			return v, nil

		case key.Matches(msg, keys.Enter):
			line := v.input.Value()
			v.input.Reset()
			if s.State() != session.StateConnected {
				v.errMsg = "Not connected. Press ctrl+r to reconnect."
				return v, nil
			}
			v.errMsg = ""
			if err := v.model.Submit(line); err != nil {
				v.errMsg = err.Error()
			}
			return v, nil

		case msg.Type == tea.KeyUp:
			v.setInput(s.RecallPrevious())
			return v, nil

		case msg.Type == tea.KeyDown:
			v.setInput(s.RecallNext())
			return v, nil

		case key.Matches(msg, keys.Reconnect):
			host := v.model.GetSelectedHost()
			if host == nil || s.State() != session.StateDisconnected {
				return v, nil
			}
			v.errMsg = ""
			return v, v.model.ConnectCmd(*host)

		case key.Matches(msg, keys.Files):
			if s.State() != session.StateConnected {
				v.errMsg = "File browser needs an open session."
				return v, nil
			}
			v.model.SetActiveView(ui.ViewFiles)
			return v, nil

		case msg.Type == tea.KeyPgUp, msg.Type == tea.KeyPgDown:
			var cmd tea.Cmd
			v.viewport, cmd = v.viewport.Update(msg)
			return v, cmd
		}

		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}
	return v, nil
}

func (v *TerminalView) setInput(value string) {
	v.input.SetValue(value)
	v.input.CursorEnd()
}

// Input returns the current command line.
func (v *TerminalView) Input() string {
	return v.input.Value()
}

func (v *TerminalView) View() string {
	layout := ui.NewBaseLayout(v.width, v.height)

	header := layout.Header().Render(v.renderHeader())

	footer := v.input.View()
	if v.errMsg != "" {
		footer += "\n" + ui.ErrorStyle.Render(v.errMsg)
	} else {
		footer += "\n" + ui.DescriptionStyle.Render("↑↓ history  pgup/pgdn scroll  ^f files  ^r reconnect  esc close")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		v.viewport.View(),
		layout.Footer().Render(footer),
	)
}

func (v *TerminalView) renderHeader() string {
	s := v.model.Session()
	name := "-"
	if host := v.model.GetSelectedHost(); host != nil {
		name = host.Name
	}
	if s == nil {
		return ui.TitleStyle.Render(name)
	}

	state := s.State()
	var stateText string
	switch state {
	case session.StateConnecting:
		stateText = ui.StatusConnectingStyle.Render("connecting…")
	case session.StateConnected:
		stateText = ui.StatusConnectedStyle.Render("connected")
	default:
		stateText = ui.StatusDefaultStyle.Render("disconnected")
	}

	target := s.Target()
	addr := ""
	if target.Host != "" {
		addr = "  " + ui.DescriptionStyle.Render(fmt.Sprintf("%s@%s", target.Username, target.Address()))
	}
	return ui.TitleStyle.Render(name) + "  " + stateText + addr
}

// RenderTranscript styles transcript entries the way the terminal view
// shows them. The text matches session.Transcript's rendering.
func RenderTranscript(entries []session.Entry) string {
	var b strings.Builder
	atLineStart := true
	for _, e := range entries {
		if e.Kind == session.KindOutput {
			b.WriteString(e.Text)
			atLineStart = strings.HasSuffix(e.Text, "\n")
			continue
		}
		if !atLineStart {
			b.WriteByte('\n')
		}
		switch e.Kind {
		case session.KindCommand:
			b.WriteString(ui.CommandStyle.Render(e.Text))
		case session.KindError:
			b.WriteString(ui.ErrorStyle.Render(e.Text))
		default:
			b.WriteString(ui.InfoStyle.Render(e.Text))
		}
		b.WriteByte('\n')
		atLineStart = true
	}
	return b.String()
}
