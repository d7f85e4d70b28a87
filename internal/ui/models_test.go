package ui

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"sshConsole/internal/config"
	"sshConsole/internal/models"
	"sshConsole/internal/session"
	"sshConsole/internal/ui/messages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct{}

func (stubBackend) OpenSession(context.Context, models.Target) (string, error) { return "s-1", nil }
func (stubBackend) CloseSession(context.Context, string) error { return nil }
func (stubBackend) PollOutput(context.Context, string) (models.PollResult, error) {
	return models.PollResult{Connected: true}, nil
}
func (stubBackend) SendCommand(context.Context, string, string) error { return nil }
func (stubBackend) ListServers(context.Context) ([]models.Server, error) {
	return nil, nil
}
func (stubBackend) ListFiles(context.Context, string, string) ([]models.RemoteFile, error) {
	return nil, nil
}
func (stubBackend) DownloadFile(_ context.Context, _, _ string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "payload")
	return int64(n), err
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel(config.NewManager(filepath.Join(t.TempDir(), "hosts.json")), nil)
	t.Cleanup(m.Shutdown)
	return m
}

func TestModelWithoutBackend(t *testing.T) {
	m := newTestModel(t)

	assert.Nil(t, m.Session())
	assert.Error(t, m.Submit("ls"))
	assert.Nil(t, m.WaitForSessionUpdate())

	msg := m.ConnectCmd(models.Host{Name: "web1"})()
	assert.Error(t, msg.(messages.OpenFinishedMsg).Err)
}

func TestModelDownloadNeverOverwrites(t *testing.T) {
	m := newTestModel(t)
	m.SetBackend(stubBackend{})
	require.NoError(t, m.Session().Open(context.Background(), models.Target{Host: "h", Username: "u", Password: "p"}))
	dir := t.TempDir()

	msg := m.DownloadCmd("/var/log/app.log", dir)().(messages.DownloadFinishedMsg)
	require.NoError(t, msg.Err)
	assert.Equal(t, filepath.Join(dir, "app.log"), msg.LocalPath)
	assert.EqualValues(t, 7, msg.Bytes)
	data, err := os.ReadFile(msg.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	msg = m.DownloadCmd("/var/log/app.log", dir)().(messages.DownloadFinishedMsg)
	assert.ErrorIs(t, msg.Err, os.ErrExist)
}

func TestModelDownloadNeedsSession(t *testing.T) {
	m := newTestModel(t)
	m.SetBackend(stubBackend{})

	msg := m.DownloadCmd("/etc/hosts", t.TempDir())().(messages.DownloadFinishedMsg)
	assert.ErrorIs(t, msg.Err, session.ErrNotConnected)
}

func TestModelShutdownReleasesSession(t *testing.T) {
	m := newTestModel(t)
	m.SetBackend(stubBackend{})
	require.NoError(t, m.Session().Open(context.Background(), models.Target{Host: "h", Username: "u", Password: "p"}))

	m.Shutdown()
	assert.Equal(t, session.StateDisconnected, m.Session().State())
	assert.Error(t, m.Submit("ls"))
}

func TestSwitchThemeCycles(t *testing.T) {
	first := CurrentTheme()
	seen := map[string]bool{first: true}
	for i := 0; i < len(themes)-1; i++ {
		seen[SwitchTheme()] = true
	}
	assert.Len(t, seen, len(themes))
	assert.Equal(t, first, SwitchTheme())
}

func TestFileStyle(t *testing.T) {
	assert.Equal(t, DirectoryStyle.Render("x"), FileStyle("logs", true, "drwxr-xr-x").Render("x"))
	assert.Equal(t, ArchiveStyle.Render("x"), FileStyle("backup.tar", false, "-rw-r--r--").Render("x"))
	assert.Equal(t, ExecutableStyle.Render("x"), FileStyle("run", false, "-rwxr-xr-x").Render("x"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, 3, GetMaxWidth([]string{"a", "abc", "ab"}))
}
