package ssh

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sshConsole/internal/models"
	"sshConsole/internal/ssh/sshtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/knownhosts"
)

func passwordTarget(s *sshtest.Server) models.Target {
	return models.Target{Host: s.Host, Port: s.Port, Username: sshtest.User, Password: sshtest.Password}
}

func TestDialPassword(t *testing.T) {
	server := sshtest.NewServer(t)

	client, err := Dial(context.Background(), passwordTarget(server), DialOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, sshtest.User, client.User())
}

func TestDialWrongPassword(t *testing.T) {
	server := sshtest.NewServer(t)
	target := passwordTarget(server)
	target.Password = "nope"

	_, err := Dial(context.Background(), target, DialOptions{Timeout: 5 * time.Second})
	assert.Error(t, err)
}

func TestDialWithKey(t *testing.T) {
	server := sshtest.NewServer(t)
	target := models.Target{
		Host:     server.Host,
		Port:     server.Port,
		Username: sshtest.User,
		KeyPath:  server.WriteClientKey(t, t.TempDir()),
	}

	client, err := Dial(context.Background(), target, DialOptions{})
	require.NoError(t, err)
	client.Close()
}

func TestDialMissingKeyFile(t *testing.T) {
	target := models.Target{Host: "127.0.0.1", Port: 1, Username: "u", KeyPath: filepath.Join(t.TempDir(), "absent")}
	_, err := Dial(context.Background(), target, DialOptions{})
	assert.ErrorContains(t, err, "failed to read SSH key")
}

func TestDialRejectsInvalidTarget(t *testing.T) {
	_, err := Dial(context.Background(), models.Target{Host: "h"}, DialOptions{})
	assert.Error(t, err)
}

func TestDialUnknownHostRejected(t *testing.T) {
	server := sshtest.NewServer(t)
	knownHosts := filepath.Join(t.TempDir(), "ssh", "known_hosts")

	_, err := Dial(context.Background(), passwordTarget(server), DialOptions{KnownHostsPath: knownHosts})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key verification failed")

	_, statErr := os.Stat(knownHosts)
	assert.NoError(t, statErr, "known_hosts is created on first use")
}

func TestDialAcceptsAndRecordsNewHost(t *testing.T) {
	server := sshtest.NewServer(t)
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	require.NoError(t, os.WriteFile(knownHosts, []byte("# comment\n"), 0600))

	client, err := Dial(context.Background(), passwordTarget(server), DialOptions{KnownHostsPath: knownHosts, AcceptNewHosts: true})
	require.NoError(t, err)
	client.Close()

	content, err := os.ReadFile(knownHosts)
	require.NoError(t, err)
	assert.Contains(t, string(content), server.KnownHostsLine())

	client, err = Dial(context.Background(), passwordTarget(server), DialOptions{KnownHostsPath: knownHosts})
	require.NoError(t, err, "recorded key is trusted afterwards")
	client.Close()
}

func TestDialChangedHostKeyRejected(t *testing.T) {
	server := sshtest.NewServer(t)
	impostor := sshtest.NewServer(t)
	knownHosts := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(server.Addr)}, impostor.HostKey)
	require.NoError(t, os.WriteFile(knownHosts, []byte(line+"\n"), 0600))

	_, err := Dial(context.Background(), passwordTarget(server), DialOptions{KnownHostsPath: knownHosts, AcceptNewHosts: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key verification failed")
}

func startTestShell(t *testing.T, server *sshtest.Server, opts ShellOptions) *Shell {
	t.Helper()
	client, err := Dial(context.Background(), passwordTarget(server), DialOptions{})
	require.NoError(t, err)
	shell, err := StartShell(client, opts)
	require.NoError(t, err)
	t.Cleanup(func() { shell.Close() })
	return shell
}

// drainUntil collects drained output until it contains want.
func drainUntil(t *testing.T, shell *Shell, acc *strings.Builder, want string) bool {
	t.Helper()
	var connected bool
	require.Eventually(t, func() bool {
		out, c := shell.Drain()
		acc.WriteString(out)
		connected = c
		return strings.Contains(acc.String(), want)
	}, 5*time.Second, 5*time.Millisecond, "waiting for %q, got %q", want, acc.String())
	return connected
}

func TestShellRoundTrip(t *testing.T) {
	server := sshtest.NewServer(t)
	shell := startTestShell(t, server, ShellOptions{})

	var out strings.Builder
	assert.True(t, drainUntil(t, shell, &out, "ready\n"))
	assert.Equal(t, 1, server.PTYRequests())
	assert.Equal(t, 1, server.Shells())

	require.NoError(t, shell.Write("ls -la"))
	drainUntil(t, shell, &out, "echo:ls -la\n")
}

func TestShellRemoteExit(t *testing.T) {
	server := sshtest.NewServer(t)
	shell := startTestShell(t, server, ShellOptions{})

	require.NoError(t, shell.Write("exit"))
	select {
	case <-shell.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not exit")
	}

	out, connected := shell.Drain()
	assert.False(t, connected)
	assert.Contains(t, out, "logout\n")
	assert.Error(t, shell.Write("ls"))
}

func TestShellCloseIsIdempotent(t *testing.T) {
	server := sshtest.NewServer(t)
	shell := startTestShell(t, server, ShellOptions{KeepAlive: 10 * time.Millisecond})

	_ = shell.Close()
	assert.NoError(t, shell.Close())

	_, connected := shell.Drain()
	assert.False(t, connected)
	assert.Error(t, shell.Write("ls"))
}

func TestShellBufferIsCapped(t *testing.T) {
	server := sshtest.NewServer(t)
	shell := startTestShell(t, server, ShellOptions{MaxBuffer: 16})

	require.NoError(t, shell.Write(strings.Repeat("x", 64)))
	require.Eventually(t, func() bool { return shell.Dropped() > 0 }, 5*time.Second, 5*time.Millisecond)

	out, _ := shell.Drain()
	assert.LessOrEqual(t, len(out), 16)
	assert.False(t, shell.LastActivity().IsZero())
}

func TestFileTransfer(t *testing.T) {
	server := sshtest.NewServer(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello world"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "logs"), 0755))

	client, err := Dial(context.Background(), passwordTarget(server), DialOptions{})
	require.NoError(t, err)
	defer client.Close()

	ft, err := NewFileTransfer(client)
	require.NoError(t, err)
	defer ft.Close()

	files, err := ft.ListRemoteFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "logs", files[0].Name)
	assert.True(t, files[0].IsDir)
	assert.Equal(t, "notes.txt", files[1].Name)
	assert.Equal(t, int64(11), files[1].Size)

	home, err := ft.GetRemoteHomeDir()
	require.NoError(t, err)
	assert.NotEmpty(t, home)

	var buf bytes.Buffer
	n, err := ft.DownloadFile(context.Background(), filepath.Join(dir, "notes.txt"), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	assert.Equal(t, "hello world", buf.String())

	_, err = ft.DownloadFile(context.Background(), filepath.Join(dir, "logs"), &buf)
	assert.ErrorContains(t, err, "not a regular file")

	_, err = ft.ListRemoteFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
