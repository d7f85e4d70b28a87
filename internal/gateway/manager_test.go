package gateway

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sshConsole/internal/models"
	"sshConsole/internal/ssh"
	"sshConsole/internal/ssh/sshtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTarget(s *sshtest.Server) models.Target {
	return models.Target{Host: s.Host, Port: s.Port, Username: sshtest.User, Password: sshtest.Password}
}

func newTestManager(t *testing.T, idle time.Duration) *Manager {
	t.Helper()
	m := NewManager(ManagerConfig{
		Dial:        ssh.DialOptions{Timeout: 5 * time.Second},
		IdleTimeout: idle,
	})
	t.Cleanup(m.CloseAll)
	return m
}

// pollUntil accumulates polled output until it contains want.
func pollUntil(t *testing.T, m *Manager, id string, acc *strings.Builder, want string) models.PollResult {
	t.Helper()
	var last models.PollResult
	require.Eventually(t, func() bool {
		last = m.Poll(id)
		acc.WriteString(last.Output)
		return strings.Contains(acc.String(), want)
	}, 5*time.Second, 5*time.Millisecond, "waiting for %q, got %q", want, acc.String())
	return last
}

func TestManagerOpenPollSend(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)

	id, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, m.Count())

	var out strings.Builder
	result := pollUntil(t, m, id, &out, "ready\n")
	assert.True(t, result.Connected)

	require.NoError(t, m.Send(id, "whoami"))
	pollUntil(t, m, id, &out, "echo:whoami\n")
}

func TestManagerStripsPassword(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)

	id, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)

	ms, ok := m.get(id)
	require.True(t, ok)
	assert.Empty(t, ms.target.Password)
	assert.Equal(t, sshtest.User, ms.target.Username)
}

func TestManagerOpenFailure(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)
	target := testTarget(server)
	target.Password = "wrong"

	_, err := m.Open(context.Background(), target)
	assert.Error(t, err)
	assert.Zero(t, m.Count())
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(t, 0)

	assert.Equal(t, models.PollResult{Connected: false}, m.Poll("missing"))
	assert.ErrorIs(t, m.Send("missing", "ls"), ErrSessionNotFound)
	assert.False(t, m.Close("missing"))

	_, _, err := m.ListFiles("missing", "/")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Download(context.Background(), "missing", "/etc/hosts", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)

	id, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)

	assert.True(t, m.Close(id))
	assert.False(t, m.Close(id))
	assert.False(t, m.Poll(id).Connected)
}

func TestManagerRemoteExitForgetsSession(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)

	id, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)
	require.NoError(t, m.Send(id, "exit"))

	var out strings.Builder
	require.Eventually(t, func() bool {
		result := m.Poll(id)
		out.WriteString(result.Output)
		return !result.Connected
	}, 5*time.Second, 5*time.Millisecond)

	assert.Contains(t, out.String(), "logout\n")
	assert.Zero(t, m.Count())
	assert.ErrorIs(t, m.Send(id, "ls"), ErrSessionNotFound)
}

func TestManagerReapIdle(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 20*time.Millisecond)

	stale, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	fresh, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)

	assert.Equal(t, 1, m.ReapIdle())
	assert.False(t, m.Close(stale))
	assert.True(t, m.Close(fresh))
}

func TestManagerReapDisabled(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)

	_, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)
	assert.Zero(t, m.ReapIdle())
	assert.Equal(t, 1, m.Count())
}

func TestManagerRunStopsWithContext(t *testing.T) {
	m := newTestManager(t, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManagerFiles(t *testing.T) {
	server := sshtest.NewServer(t)
	m := newTestManager(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.log"), []byte("started\n"), 0644))

	id, err := m.Open(context.Background(), testTarget(server))
	require.NoError(t, err)

	resolved, files, err := m.ListFiles(id, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, resolved)
	require.Len(t, files, 1)
	assert.Equal(t, "app.log", files[0].Name)

	var buf bytes.Buffer
	n, err := m.Download(context.Background(), id, filepath.Join(dir, "app.log"), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	assert.Equal(t, "started\n", buf.String())

	assert.True(t, m.Close(id))
}
