// Package gateway is the reference session backend: it keeps interactive SSH
// shells open on behalf of HTTP clients and hands out their output on poll.
package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"sshConsole/internal/models"
	"sshConsole/internal/ssh"
	"sshConsole/internal/utils"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long a session may go unpolled before it is reaped.
const DefaultIdleTimeout = 30 * time.Minute

var ErrSessionNotFound = errors.New("session not found")

type ManagerConfig struct {
	Dial  ssh.DialOptions
	Shell ssh.ShellOptions
	// IdleTimeout of zero disables reaping.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Manager is the registry of open sessions, keyed by a random id.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

type managedSession struct {
	id        string
	target    models.Target
	createdAt time.Time
	shell     *ssh.Shell

	mu       sync.Mutex
	lastPoll time.Time
	files    *ssh.FileTransfer
	homeDir  string
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dial.Logger == nil {
		cfg.Dial.Logger = logger
	}
	if cfg.Shell.Logger == nil {
		cfg.Shell.Logger = logger
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*managedSession),
	}
}

// Open dials target, starts a shell and registers it.
func (m *Manager) Open(ctx context.Context, target models.Target) (string, error) {
	client, err := ssh.Dial(ctx, target, m.cfg.Dial)
	if err != nil {
		return "", err
	}
	shell, err := ssh.StartShell(client, m.cfg.Shell)
	if err != nil {
		client.Close()
		return "", err
	}

	// Credentials are not kept past the dial.
	target.Password = ""
	now := time.Now()
	ms := &managedSession{
		id:        uuid.New().String(),
		target:    target,
		createdAt: now,
		shell:     shell,
		lastPoll:  now,
	}

	m.mu.Lock()
	m.sessions[ms.id] = ms
	m.mu.Unlock()

	m.logger.Info("session opened",
		"session_id", ms.id,
		"host", target.Host,
		"port", target.Port,
		"user", target.Username,
	)
	return ms.id, nil
}

func (m *Manager) get(id string) (*managedSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.sessions[id]
	return ms, ok
}

func (m *Manager) remove(id string) (*managedSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ms, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	return ms, ok
}

// Close tears a session down and reports whether it existed.
func (m *Manager) Close(id string) bool {
	ms, ok := m.remove(id)
	if !ok {
		return false
	}
	ms.close(m.logger)
	m.logger.Info("session closed", "session_id", id, "dropped_bytes", ms.shell.Dropped())
	return true
}

func (ms *managedSession) close(logger *slog.Logger) {
	ms.mu.Lock()
	files := ms.files
	ms.files = nil
	ms.mu.Unlock()

	if files != nil {
		if err := files.Close(); err != nil {
			logger.Debug("closing file transfer", "session_id", ms.id, "error", err)
		}
	}
	if err := ms.shell.Close(); err != nil {
		logger.Debug("closing shell", "session_id", ms.id, "error", err)
	}
}

// Poll returns output produced since the previous poll. An unknown session
// reports Connected=false. A session whose shell has exited is returned one
// last time with its final output and then forgotten.
func (m *Manager) Poll(id string) models.PollResult {
	ms, ok := m.get(id)
	if !ok {
		return models.PollResult{Connected: false}
	}

	ms.mu.Lock()
	ms.lastPoll = time.Now()
	ms.mu.Unlock()

	output, connected := ms.shell.Drain()
	if !connected {
		if _, removed := m.remove(id); removed {
			ms.close(m.logger)
			m.logger.Info("session ended by remote", "session_id", id)
		}
	}
	return models.PollResult{Output: output, Connected: connected}
}

// Send writes one command line to the session's shell.
func (m *Manager) Send(id, command string) error {
	ms, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	return ms.shell.Write(command)
}

// fileTransfer lazily opens the SFTP channel of a session.
func (m *Manager) fileTransfer(id string) (*ssh.FileTransfer, string, error) {
	ms, ok := m.get(id)
	if !ok {
		return nil, "", ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.files == nil {
		files, err := ssh.NewFileTransfer(ms.shell.Client())
		if err != nil {
			return nil, "", err
		}
		home, err := files.GetRemoteHomeDir()
		if err != nil {
			files.Close()
			return nil, "", err
		}
		ms.files = files
		ms.homeDir = home
	}
	return ms.files, ms.homeDir, nil
}

// ListFiles lists a remote directory; relative paths resolve against the
// remote home directory.
func (m *Manager) ListFiles(id, path string) (string, []models.RemoteFile, error) {
	files, home, err := m.fileTransfer(id)
	if err != nil {
		return "", nil, err
	}
	resolved := utils.NormalizeRemotePath(path, home)
	list, err := files.ListRemoteFiles(resolved)
	return resolved, list, err
}

// Download streams a remote file into w.
func (m *Manager) Download(ctx context.Context, id, path string, w io.Writer) (int64, error) {
	files, home, err := m.fileTransfer(id)
	if err != nil {
		return 0, err
	}
	return files.DownloadFile(ctx, utils.NormalizeRemotePath(path, home), w)
}

// ReapIdle closes sessions that have not been polled within IdleTimeout.
func (m *Manager) ReapIdle() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-m.cfg.IdleTimeout)

	m.mu.RLock()
	var idle []string
	for id, ms := range m.sessions {
		ms.mu.Lock()
		last := ms.lastPoll
		ms.mu.Unlock()
		if last.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	reaped := 0
	for _, id := range idle {
		if ms, ok := m.remove(id); ok {
			ms.close(m.logger)
			reaped++
			m.logger.Info("reaped idle session",
				"session_id", id,
				"age", time.Since(ms.createdAt).Round(time.Second),
				"last_activity", ms.shell.LastActivity().Format(time.RFC3339),
			)
		}
	}
	return reaped
}

// Run reaps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.IdleTimeout <= 0 {
		<-ctx.Done()
		return
	}
	interval := m.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle()
		}
	}
}

// CloseAll tears every session down.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*managedSession)
	m.mu.Unlock()

	for _, ms := range sessions {
		ms.close(m.logger)
	}
	if len(sessions) > 0 {
		m.logger.Info("closed all sessions", "count", len(sessions))
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
