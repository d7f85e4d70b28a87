package views

import (
	"fmt"
	"path"
	"sort"
	"strings"

	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
	"sshConsole/internal/session"
	"sshConsole/internal/ui"
	"sshConsole/internal/ui/components"
	"sshConsole/internal/ui/messages"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const parentEntry = ".."

// FilesView browses the remote file system of the open session and
// downloads single files into the working directory.
type FilesView struct {
	model       *ui.Model
	path        string
	entries     []models.RemoteFile
	selected    int
	offset      int
	loading     bool
	downloading bool
	errMsg      string
	status      string
	width       int
	height      int
	popup       *components.Popup
}

func NewFilesView(model *ui.Model) *FilesView {
	return &FilesView{
		model:  model,
		path:   "~",
		width:  model.GetTerminalWidth(),
		height: model.GetTerminalHeight(),
	}
}

func (v *FilesView) Init() tea.Cmd {
	return v.load(v.path)
}

// Path is the directory currently listed, as sent to the backend.
func (v *FilesView) Path() string {
	return v.path
}

func (v *FilesView) load(dir string) tea.Cmd {
	v.path = dir
	v.loading = true
	v.errMsg = ""
	return v.model.ListFilesCmd(dir)
}

// Paths under "~" stay unresolved since the backend expands them; the view
// never cleans them so ".." above home survives.
func parentOf(dir string) string {
	if !strings.HasPrefix(dir, "~") {
		return path.Dir(path.Clean("/" + dir))
	}
	if dir == "~" || path.Base(dir) == parentEntry {
		return dir + "/" + parentEntry
	}
	return dir[:strings.LastIndex(dir, "/")]
}

func joinRemote(dir, name string) string {
	if strings.HasPrefix(dir, "~") {
		return strings.TrimSuffix(dir, "/") + "/" + name
	}
	return path.Join(dir, name)
}

// cleanInputPath brings a typed path into the form parentOf and joinRemote
// expect. Relative paths are taken from home.
func cleanInputPath(p string) string {
	switch {
	case strings.HasPrefix(p, "/"):
		return path.Clean(p)
	case p == "~" || strings.HasPrefix(p, "~/"):
		if trimmed := strings.TrimRight(p, "/"); trimmed != "" {
			return trimmed
		}
		return "~"
	}
	return "~/" + strings.TrimRight(p, "/")
}

func sortEntries(files []models.RemoteFile) []models.RemoteFile {
	sorted := make([]models.RemoteFile, 0, len(files))
	for _, f := range files {
		if f.Name == "." || f.Name == parentEntry {
			continue
		}
		sorted = append(sorted, f)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsDir != sorted[j].IsDir {
			return sorted[i].IsDir
		}
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})
	return sorted
}

func (v *FilesView) listHeight() int {
	h := ui.NewBaseLayout(v.width, v.height).ContentHeight - 1
	if h < 1 {
		h = 1
	}
	return h
}

func (v *FilesView) move(delta int) {
	if len(v.entries) == 0 {
		return
	}
	v.selected = (v.selected + delta + len(v.entries)) % len(v.entries)
	visible := v.listHeight()
	if v.selected < v.offset {
		v.offset = v.selected
	}
	if v.selected >= v.offset+visible {
		v.offset = v.selected - visible + 1
	}
}

func (v *FilesView) current() (models.RemoteFile, bool) {
	if v.selected < 0 || v.selected >= len(v.entries) {
		return models.RemoteFile{}, false
	}
	return v.entries[v.selected], true
}

func (v *FilesView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keys := v.model.Keys()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height
		v.model.SetTerminalSize(msg.Width, msg.Height)
		return v, nil

	case messages.SessionUpdateMsg:
		if s := v.model.Session(); s == nil || s.State() != session.StateConnected {
			v.model.SetActiveView(ui.ViewTerminal)
		}
		return v, nil

	case messages.FilesListedMsg:
		if msg.Path != v.path {
			return v, nil
		}
		v.loading = false
		if msg.Err != nil {
			v.errMsg = apperr.Reason(msg.Err)
			v.entries = nil
			return v, nil
		}
		v.entries = sortEntries(msg.Files)
		if v.path != "/" {
			v.entries = append([]models.RemoteFile{{Name: parentEntry, IsDir: true}}, v.entries...)
		}
		v.selected, v.offset = 0, 0
		return v, nil

	case messages.DownloadFinishedMsg:
		v.downloading = false
		if msg.Err != nil {
			v.errMsg = fmt.Sprintf("Download of %s failed: %s", msg.RemotePath, apperr.Reason(msg.Err))
			return v, nil
		}
		v.status = fmt.Sprintf("Saved %s (%s)", msg.LocalPath, formatSize(msg.Bytes))
		return v, nil

	case tea.KeyMsg:
		if v.popup != nil {
			return v.updatePopup(msg)
		}

		switch {
		case msg.String() == "ctrl+c":
			v.model.SetQuitting(true)
			return v, tea.Quit

		case key.Matches(msg, keys.Back):
			v.model.SetActiveView(ui.ViewTerminal)
			return v, nil

		case key.Matches(msg, keys.GoTo):
			v.popup = components.NewPopup(components.PopupInput, "Go to path",
				"Absolute, ~ or relative to home", 50, 9, v.width, v.height)
			v.popup.Input.Placeholder = "/var/log"
			return v, nil

		case key.Matches(msg, keys.Up):
			v.move(-1)

		case key.Matches(msg, keys.Down):
			v.move(1)

		case key.Matches(msg, keys.Parent):
			if v.loading {
				return v, nil
			}
			return v, v.load(parentOf(v.path))

		case key.Matches(msg, keys.Enter):
			entry, ok := v.current()
			if !ok || !entry.IsDir || v.loading {
				return v, nil
			}
			if entry.Name == parentEntry {
				return v, v.load(parentOf(v.path))
			}
			return v, v.load(joinRemote(v.path, entry.Name))

		case key.Matches(msg, keys.Download):
			entry, ok := v.current()
			if !ok || entry.IsDir || v.downloading {
				return v, nil
			}
			v.downloading = true
			v.errMsg = ""
			v.status = "Downloading " + entry.Name + "..."
			return v, v.model.DownloadCmd(joinRemote(v.path, entry.Name), "")
		}
	}
	return v, nil
}

func (v *FilesView) updatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		v.popup = nil
		return v, nil
	case tea.KeyEnter:
		target := strings.TrimSpace(v.popup.Input.Value())
		v.popup = nil
		if target == "" || v.loading {
			return v, nil
		}
		return v, v.load(cleanInputPath(target))
	}
	var cmd tea.Cmd
	v.popup.Input, cmd = v.popup.Input.Update(msg)
	return v, cmd
}

func (v *FilesView) View() string {
	if v.popup != nil {
		return v.popup.Render()
	}
	layout := ui.NewBaseLayout(v.width, v.height)

	title := ui.TitleStyle.Render("Files") + "  " + ui.Infotext.Render(formatPath(v.path, layout.InnerWidth()-10))
	header := layout.Header().Render(title)

	var body string
	switch {
	case v.loading:
		body = ui.DescriptionStyle.Render("Loading...")
	case len(v.entries) == 0 && v.errMsg == "":
		body = ui.DescriptionStyle.Render("Empty directory")
	default:
		body = v.renderFileList(layout.InnerWidth())
	}
	body = lipgloss.NewStyle().Height(layout.ContentHeight).Render(body)

	var status string
	switch {
	case v.errMsg != "":
		status = ui.ErrorStyle.Render(v.errMsg)
	case v.status != "":
		status = ui.SuccessStyle.Render(v.status)
	}
	hints := ui.DescriptionStyle.Render("enter open  ⌫ parent  / go to  g download  esc terminal")
	footer := layout.Footer().Render(lipgloss.JoinVertical(lipgloss.Left, status, hints))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderFileList draws the visible window of entries as a table and colors
// each row by file type.
func (v *FilesView) renderFileList(width int) string {
	nameWidth := width - 34
	if nameWidth < 10 {
		nameWidth = 10
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: nameWidth},
			{Title: "Size", Width: 10},
			{Title: "Modified", Width: 16},
		}),
	)

	end := v.offset + v.listHeight()
	if end > len(v.entries) {
		end = len(v.entries)
	}
	visible := v.entries[v.offset:end]

	rows := make([]table.Row, 0, len(visible))
	for _, entry := range visible {
		name, size, modified := entry.Name, formatSize(entry.Size), ""
		if entry.IsDir {
			name, size = "["+name+"]", "<DIR>"
		}
		if !entry.ModTime.IsZero() {
			modified = entry.ModTime.Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{name, size, modified})
	}
	t.SetRows(rows)
	t.SetHeight(len(rows) + 1)

	var out strings.Builder
	for i, line := range strings.Split(t.View(), "\n") {
		idx := v.offset + i - 1
		switch {
		case i == 0 || idx >= end:
			out.WriteString(line)
		case idx == v.selected:
			out.WriteString(lipgloss.NewStyle().
				Bold(true).
				Background(ui.Highlight).
				Foreground(lipgloss.Color("0")).
				Render(line))
		default:
			entry := v.entries[idx]
			out.WriteString(ui.FileStyle(entry.Name, entry.IsDir, entry.Mode).Render(line))
		}
		out.WriteByte('\n')
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// formatPath formatuje ścieżkę do wyświetlenia
func formatPath(p string, maxWidth int) string {
	if maxWidth < 4 || len(p) <= maxWidth {
		return p
	}
	return "..." + p[len(p)-(maxWidth-3):]
}
