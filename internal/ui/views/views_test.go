package views

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"sshConsole/internal/config"
	"sshConsole/internal/models"
	"sshConsole/internal/session"
	"sshConsole/internal/ui"
	"sshConsole/internal/ui/messages"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu     sync.Mutex
	sent   []string
	listed []string
	files  map[string][]models.RemoteFile
}

func (f *fakeBackend) OpenSession(context.Context, models.Target) (string, error) {
	return "sess-1", nil
}

func (f *fakeBackend) CloseSession(context.Context, string) error { return nil }

func (f *fakeBackend) PollOutput(context.Context, string) (models.PollResult, error) {
	return models.PollResult{Connected: true}, nil
}

func (f *fakeBackend) SendCommand(_ context.Context, _ string, command string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, command)
	return nil
}

func (f *fakeBackend) ListServers(context.Context) ([]models.Server, error) {
	return nil, nil
}

func (f *fakeBackend) ListFiles(_ context.Context, _ string, path string) ([]models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, path)
	return f.files[path], nil
}

func (f *fakeBackend) DownloadFile(_ context.Context, _ string, _ string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "data")
	return int64(n), err
}

func (f *fakeBackend) sentCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeBackend) listedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listed...)
}

// newConnectedModel returns a model whose session is already open.
func newConnectedModel(t *testing.T, backend *fakeBackend) *ui.Model {
	t.Helper()
	cfg := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	m := ui.NewModel(cfg, nil)
	m.SetBackend(backend)
	t.Cleanup(m.Shutdown)
	m.SetTerminalSize(100, 30)

	err := m.Session().Open(context.Background(), models.Target{Host: "web1", Username: "admin", Password: "secret"})
	require.NoError(t, err)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderTranscriptMatchesPlainText(t *testing.T) {
	tr := session.NewTranscript()
	tr.AppendInfo("Connected to web1")
	tr.AppendOutput("$ ")
	tr.AppendCommand("uptime")
	tr.AppendOutput(" 10:00 up 3 days\n")
	tr.AppendError("Error: boom")
	tr.AppendOutput("partial")
	tr.AppendInfo("Connection closed")

	assert.Equal(t, tr.String(), RenderTranscript(tr.Entries()))
	assert.Empty(t, RenderTranscript(nil))
}

func TestTerminalViewSubmitsAndRecalls(t *testing.T) {
	backend := &fakeBackend{}
	m := newConnectedModel(t, backend)
	v := NewTerminalView(m)

	v.Update(runes("uptime"))
	assert.Equal(t, "uptime", v.Input())

	v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, v.Input())
	assert.Eventually(t, func() bool {
		return len(backend.sentCommands()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"uptime"}, backend.sentCommands())

	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "uptime", v.Input())
	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Empty(t, v.Input())

	v.Update(messages.SessionUpdateMsg{})
	assert.Contains(t, v.View(), "$ uptime")
}

func TestTerminalViewRejectsInputWhenDisconnected(t *testing.T) {
	backend := &fakeBackend{}
	m := newConnectedModel(t, backend)
	require.NoError(t, m.Session().Close(context.Background()))
	v := NewTerminalView(m)

	v.Update(runes("ls"))
	v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, v.Input())
	assert.Contains(t, v.View(), "Not connected")
	assert.Empty(t, backend.sentCommands())
}

func TestTerminalViewEscReleasesSession(t *testing.T) {
	m := newConnectedModel(t, &fakeBackend{})
	m.SetActiveView(ui.ViewTerminal)
	v := NewTerminalView(m)

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, ui.ViewMain, m.GetActiveView())
	assert.Equal(t, session.StateDisconnected, m.Session().State())
	assert.Empty(t, m.Session().Transcript())
}

func TestTerminalViewOpensFiles(t *testing.T) {
	m := newConnectedModel(t, &fakeBackend{})
	v := NewTerminalView(m)

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlF})
	assert.Equal(t, ui.ViewFiles, m.GetActiveView())
}

func TestFilesViewNavigation(t *testing.T) {
	backend := &fakeBackend{files: map[string][]models.RemoteFile{
		"~": {
			{Name: "notes.txt", Size: 12, Mode: "-rw-r--r--"},
			{Name: "logs", IsDir: true, Mode: "drwxr-xr-x"},
		},
		"~/logs": {
			{Name: "app.log", Size: 2048, Mode: "-rw-r--r--"},
		},
	}}
	m := newConnectedModel(t, backend)
	v := NewFilesView(m)

	v.Update(v.Init()())
	require.Len(t, v.entries, 3)
	assert.Equal(t, []string{"..", "logs", "notes.txt"}, entryNames(v.entries))

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, "~/logs", v.Path())
	v.Update(cmd())
	assert.Equal(t, []string{"..", "app.log"}, entryNames(v.entries))
	assert.Contains(t, v.View(), "app.log")

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.NotNil(t, cmd)
	assert.Equal(t, "~", v.Path())
	v.Update(cmd())

	assert.Equal(t, []string{"~", "~/logs", "~"}, backend.listedPaths())
}

func TestFilesViewIgnoresStaleListing(t *testing.T) {
	m := newConnectedModel(t, &fakeBackend{})
	v := NewFilesView(m)
	v.Init()

	v.Update(messages.FilesListedMsg{Path: "/etc", Files: []models.RemoteFile{{Name: "hosts"}}})
	assert.True(t, v.loading)
	assert.Empty(t, v.entries)
}

func TestFilesViewDownloadSkipsDirectories(t *testing.T) {
	m := newConnectedModel(t, &fakeBackend{})
	v := NewFilesView(m)
	v.Update(messages.FilesListedMsg{Path: "~", Files: []models.RemoteFile{{Name: "etc", IsDir: true}, {Name: "a.txt"}}})

	_, cmd := v.Update(runes("g"))
	assert.Nil(t, cmd, "the parent entry is selected")

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = v.Update(runes("g"))
	assert.Nil(t, cmd)

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = v.Update(runes("g"))
	assert.NotNil(t, cmd)
	assert.True(t, v.downloading)

	v.Update(messages.DownloadFinishedMsg{RemotePath: "~/a.txt", LocalPath: "a.txt", Bytes: 4})
	assert.False(t, v.downloading)
	assert.Contains(t, v.View(), "Saved a.txt (4 B)")
}

func TestFilesViewLeavesWhenDisconnected(t *testing.T) {
	m := newConnectedModel(t, &fakeBackend{})
	m.SetActiveView(ui.ViewFiles)
	v := NewFilesView(m)

	require.NoError(t, m.Session().Close(context.Background()))
	v.Update(messages.SessionUpdateMsg{})

	assert.Equal(t, ui.ViewTerminal, m.GetActiveView())
}

func TestParentOf(t *testing.T) {
	tests := []struct {
		dir, want string
	}{
		{"~", "~/.."},
		{"~/logs", "~"},
		{"~/logs/app", "~/logs"},
		{"~/..", "~/../.."},
		{"/", "/"},
		{"/var/log", "/var"},
		{"/var", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parentOf(tt.dir), tt.dir)
	}
	assert.Equal(t, "~/../srv", joinRemote("~/..", "srv"))
	assert.Equal(t, "/var/log", joinRemote("/var", "log"))
}

func TestFilesViewGoTo(t *testing.T) {
	backend := &fakeBackend{}
	m := newConnectedModel(t, backend)
	v := NewFilesView(m)

	v.Update(runes("/"))
	require.NotNil(t, v.popup)
	v.Update(runes("/var/log/"))
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Nil(t, v.popup)
	assert.Equal(t, "/var/log", v.Path())

	assert.Equal(t, "~/logs", cleanInputPath("logs/"))
	assert.Equal(t, "~/a", cleanInputPath("~/a/"))
	assert.Equal(t, "~", cleanInputPath("~"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "2.0 KB", formatSize(2048))
	assert.Equal(t, "1.5 MB", formatSize(1536*1024))
}

func entryNames(files []models.RemoteFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}

func TestMainViewDeleteHost(t *testing.T) {
	cfg := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	_, err := cfg.AddPassword(models.Password{Description: "root", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, cfg.AddHost(models.Host{Name: "web1", Login: "root", IP: "10.0.0.1", PasswordID: 0, KeyID: models.NoCredential}))
	require.NoError(t, cfg.AddHost(models.Host{Name: "web2", Login: "root", IP: "10.0.0.2", PasswordID: 0, KeyID: models.NoCredential}))

	m := ui.NewModel(cfg, nil)
	v := NewMainView(m)

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	v.Update(runes("d"))
	require.NotNil(t, v.popup)
	v.Update(runes("y"))

	assert.Nil(t, v.popup)
	require.Len(t, cfg.GetHosts(), 1)
	assert.Equal(t, "web1", cfg.GetHosts()[0].Name)
	assert.True(t, strings.Contains(v.status, "web2"))
}

func TestMainViewConnectWithoutBackend(t *testing.T) {
	cfg := config.NewManager(filepath.Join(t.TempDir(), "config.json"))
	_, err := cfg.AddPassword(models.Password{Description: "root", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, cfg.AddHost(models.Host{Name: "web1", Login: "root", IP: "10.0.0.1", PasswordID: 0, KeyID: models.NoCredential}))

	m := ui.NewModel(cfg, nil)
	v := NewMainView(m)
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, ui.ViewMain, m.GetActiveView())
	assert.Equal(t, "No dashboard backend configured", v.errMsg)
}
