package views

import (
	"fmt"
	"strings"

	"sshConsole/internal/models"
	"sshConsole/internal/sync"
	"sshConsole/internal/ui"
	"sshConsole/internal/ui/components"
	"sshConsole/internal/ui/messages"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type MainView struct {
	model         *ui.Model
	hosts         []models.Host
	selectedIndex int
	errMsg        string
	status        string
	syncing       bool
	width         int
	height        int
	popup         *components.Popup
}

func NewMainView(model *ui.Model) *MainView {
	return &MainView{
		model:  model,
		hosts:  model.GetHosts(),
		width:  model.GetTerminalWidth(),
		height: model.GetTerminalHeight(),
	}
}

func (v *MainView) Init() tea.Cmd {
	return nil
}

func (v *MainView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := v.model.Keys()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.model.SetTerminalSize(msg.Width, msg.Height)
		return v, nil

	case messages.SyncFinishedMsg:
		v.syncing = false
		if msg.Err != nil {
			v.popup = components.NewMessage("Sync failed", msg.Err.Error(), v.width, v.height)
			return v, nil
		}
		v.reloadHosts()
		v.status = fmt.Sprintf("Synced: %d added, %d updated, %d skipped", msg.Added, msg.Updated, msg.Skipped)
		return v, nil

	case tea.KeyMsg:
		if v.popup != nil {
			return v.updatePopup(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			v.model.SetQuitting(true)
			return v, tea.Quit

		case key.Matches(msg, keys.Up):
			if len(v.hosts) > 0 {
				v.selectedIndex = (v.selectedIndex - 1 + len(v.hosts)) % len(v.hosts)
				v.errMsg = ""
			}

		case key.Matches(msg, keys.Down):
			if len(v.hosts) > 0 {
				v.selectedIndex = (v.selectedIndex + 1) % len(v.hosts)
				v.errMsg = ""
			}

		case key.Matches(msg, keys.Enter), msg.String() == "c":
			return v.handleConnect()

		case key.Matches(msg, keys.Sync):
			if v.syncing {
				return v, nil
			}
			v.syncing = true
			v.status = "Syncing hosts..."
			v.errMsg = ""
			return v, v.model.SyncCmd(sync.Options{
				PasswordID: models.NoCredential,
				KeyID:      models.NoCredential,
			})

		case key.Matches(msg, keys.Delete):
			if len(v.hosts) > 0 {
				host := v.hosts[v.selectedIndex]
				v.popup = components.NewPopup(components.PopupConfirm, "Delete host",
					fmt.Sprintf("Delete host %q?", host.Name), 50, 7, v.width, v.height)
			}

		case key.Matches(msg, keys.Theme):
			v.status = "Theme: " + ui.SwitchTheme()
		}
	}
	return v, nil
}

func (v *MainView) updatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch v.popup.Type {
	case components.PopupMessage:
		if msg.String() == "esc" || msg.String() == "enter" {
			v.popup = nil
		}
	case components.PopupConfirm:
		switch msg.String() {
		case "y", "Y":
			v.popup = nil
			host := v.hosts[v.selectedIndex]
			if err := v.model.DeleteHost(host.Name); err != nil {
				v.errMsg = err.Error()
				return v, nil
			}
			v.reloadHosts()
			v.status = fmt.Sprintf("Host %s deleted", host.Name)
		case "n", "N", "esc":
			v.popup = nil
		}
	}
	return v, nil
}

func (v *MainView) handleConnect() (tea.Model, tea.Cmd) {
	if len(v.hosts) == 0 {
		return v, nil
	}
	if v.model.Session() == nil {
		v.errMsg = "No dashboard backend configured"
		return v, nil
	}
	host := v.hosts[v.selectedIndex]
	cmd := v.model.ConnectCmd(host)
	v.model.SetActiveView(ui.ViewTerminal)
	return v, cmd
}

func (v *MainView) reloadHosts() {
	v.hosts = v.model.GetHosts()
	if v.selectedIndex >= len(v.hosts) {
		v.selectedIndex = len(v.hosts) - 1
	}
	if v.selectedIndex < 0 {
		v.selectedIndex = 0
	}
}

func (v *MainView) View() string {
	var content strings.Builder
	content.WriteString(ui.TitleStyle.Render("sshConsole ❯ "+v.model.GetConfig().BackendURL()) + "\n\n")

	content.WriteString(lipgloss.JoinHorizontal(
		lipgloss.Top,
		v.renderHostPanel(),
		"  ",
		v.renderDetailsPanel(),
	) + "\n\n")
	content.WriteString(v.renderStatusBar() + "\n")

	base := lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Left,
		lipgloss.Top,
		ui.WindowStyle.Render(content.String()),
		lipgloss.WithWhitespaceChars(""),
	)
	if v.popup != nil {
		return v.popup.Render()
	}
	return base
}

func (v *MainView) renderHostPanel() string {
	var content strings.Builder
	if len(v.hosts) == 0 {
		content.WriteString(ui.DescriptionStyle.Render("\n  No hosts available\n  Press 's' to sync from the dashboard"))
	}
	for i, host := range v.hosts {
		name := ui.HostStyle.Render(ui.Truncate(host.Name, 34))
		if i == v.selectedIndex {
			content.WriteString(ui.SelectedItemStyle.Render("\n" + ui.SuccessStyle.Render("❯ ") + name))
			continue
		}
		content.WriteString("\n  " + name)
	}
	return ui.PanelStyle.Width(40).Render("Hosts\n" + content.String())
}

func (v *MainView) renderDetailsPanel() string {
	var content strings.Builder
	if len(v.hosts) > 0 {
		host := v.hosts[v.selectedIndex]
		auth := "password"
		if host.UsesKey() {
			auth = "key"
		}
		port := host.Port
		if port == "" {
			port = models.DefaultSSHPort
		}
		rows := [][2]string{
			{"Name:", host.Name},
			{"Description:", host.Description},
			{"Login:", host.Login},
			{"Address:", host.IP},
			{"Port:", port},
			{"Auth:", auth},
		}
		labels := make([]string, len(rows))
		for i, row := range rows {
			labels[i] = row[0]
		}
		labelWidth := ui.GetMaxWidth(labels)
		for _, row := range rows {
			label := ui.LabelStyle.Width(labelWidth).Render(row[0])
			value := ui.Infotext.Render(ui.Truncate(row[1], 44-labelWidth))
			content.WriteString(fmt.Sprintf("\n  %s %s", label, value))
		}
	}
	return ui.PanelStyle.Width(50).Render("Host Details\n" + content.String())
}

func (v *MainView) renderStatusBar() string {
	var status string
	switch {
	case v.errMsg != "":
		status = ui.ErrorStyle.Render(v.errMsg)
	case v.status != "":
		status = ui.SuccessStyle.Render(v.status)
	default:
		status = ui.DescriptionStyle.Render(fmt.Sprintf("%d hosts, theme %s", len(v.hosts), ui.CurrentTheme()))
	}

	bar := ui.ShortcutBar(
		[]string{"Connect", "Navigate", "Sync", "Delete", "Theme", "Quit"},
		[]string{"enter/c", "↑↓/k/j", "s", "d/f8", "space", "q/^c"},
	)
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(lipgloss.JoinVertical(lipgloss.Left, status, bar))
}
