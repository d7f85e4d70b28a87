// internal/ui/models.go

package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sshConsole/internal/config"
	"sshConsole/internal/crypto"
	"sshConsole/internal/models"
	"sshConsole/internal/session"
	"sshConsole/internal/sync"
	"sshConsole/internal/ui/messages"
	"sshConsole/internal/utils"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// requestTimeout bounds UI-initiated backend calls other than downloads.
const requestTimeout = 30 * time.Second

// Backend is everything the console needs from the dashboard.
type Backend interface {
	session.Backend
	ListServers(ctx context.Context) ([]models.Server, error)
	ListFiles(ctx context.Context, sessionID, path string) ([]models.RemoteFile, error)
	DownloadFile(ctx context.Context, sessionID, path string, w io.Writer) (int64, error)
}

// KeyMap definiuje skróty klawiszowe
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	Sync      key.Binding
	Files     key.Binding
	Theme     key.Binding
	Delete    key.Binding
	Reconnect key.Binding
	Download  key.Binding
	Parent    key.Binding
	GoTo      key.Binding
}

// DefaultKeyMap zwraca domyślne ustawienia klawiszy
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync hosts"),
		),
		Files: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("^f", "files"),
		),
		Theme: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "theme"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "f8"),
			key.WithHelp("d", "delete"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("^r", "reconnect"),
		),
		Download: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "download"),
		),
		Parent: key.NewBinding(
			key.WithKeys("backspace"),
			key.WithHelp("⌫", "parent dir"),
		),
		GoTo: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "go to path"),
		),
	}
}

type View int

const (
	ViewMain View = iota
	ViewTerminal
	ViewFiles
)

// Model reprezentuje główny model aplikacji, współdzielony przez widoki
type Model struct {
	keys         KeyMap
	activeView   View
	config       *config.Manager
	cipher       *crypto.Cipher
	backend      Backend
	session      *session.Session
	selectedHost *models.Host
	logger       *slog.Logger
	width        int
	height       int
	quitting     bool

	submits chan string
}

// NewModel tworzy nowy model aplikacji
func NewModel(cfg *config.Manager, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		keys:       DefaultKeyMap(),
		activeView: ViewMain,
		config:     cfg,
		logger:     logger,
	}
}

func (m *Model) Keys() KeyMap {
	return m.keys
}

func (m *Model) GetConfig() *config.Manager {
	return m.config
}

func (m *Model) SetCipher(cipher *crypto.Cipher) {
	m.cipher = cipher
}

// SetBackend installs the backend and creates the console session on it.
func (m *Model) SetBackend(b Backend) {
	m.Shutdown()
	m.backend = b
	m.session = session.New(session.Config{
		Backend:      b,
		PollInterval: m.config.PollInterval(),
		Logger:       m.logger,
	})
	m.submits = make(chan string, 64)
	go m.submitLoop(m.session, m.submits)
}

// Session returns the console session, nil until a backend is set.
func (m *Model) Session() *session.Session {
	return m.session
}

// submitLoop sends queued commands one at a time, in the order typed.
func (m *Model) submitLoop(s *session.Session, lines <-chan string) {
	for line := range lines {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		if err := s.Submit(ctx, line); err != nil && !errors.Is(err, session.ErrNotConnected) {
			m.logger.Debug("submit failed", "error", err)
		}
		cancel()
	}
}

// Submit queues a command line for the session.
func (m *Model) Submit(line string) error {
	if m.submits == nil {
		return errors.New("no backend configured")
	}
	select {
	case m.submits <- line:
		return nil
	default:
		return errors.New("too many commands pending")
	}
}

// Shutdown releases the session and stops the submit loop.
func (m *Model) Shutdown() {
	if m.session != nil {
		m.session.Release()
	}
	if m.submits != nil {
		close(m.submits)
		m.submits = nil
	}
}

// WaitForSessionUpdate delivers a SessionUpdateMsg on the next session change.
// Only one of these should be outstanding at a time.
func (m *Model) WaitForSessionUpdate() tea.Cmd {
	if m.session == nil {
		return nil
	}
	updates := m.session.Updates()
	return func() tea.Msg {
		<-updates
		return messages.SessionUpdateMsg{}
	}
}

// ConnectCmd opens the console session to host.
func (m *Model) ConnectCmd(host models.Host) tea.Cmd {
	if m.session == nil {
		return func() tea.Msg {
			return messages.OpenFinishedMsg{Err: errors.New("no backend configured")}
		}
	}
	target, err := m.config.ResolveTarget(host, m.cipher)
	if err != nil {
		return func() tea.Msg { return messages.OpenFinishedMsg{Err: err} }
	}
	m.selectedHost = &host
	s := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return messages.OpenFinishedMsg{Err: s.Open(ctx, target)}
	}
}

// SyncCmd pulls the server inventory into the host list.
func (m *Model) SyncCmd(opts sync.Options) tea.Cmd {
	if m.backend == nil {
		return func() tea.Msg {
			return messages.SyncFinishedMsg{Err: errors.New("no backend configured")}
		}
	}
	backend, cfg := m.backend, m.config
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		result, err := sync.SyncHosts(ctx, backend, cfg, opts)
		return messages.SyncFinishedMsg{
			Added:   len(result.Added),
			Updated: len(result.Updated),
			Skipped: len(result.Skipped),
			Err:     err,
		}
	}
}

// ListFilesCmd lists a remote directory through the open session.
func (m *Model) ListFilesCmd(path string) tea.Cmd {
	backend, id := m.backend, m.sessionID()
	return func() tea.Msg {
		if id == "" {
			return messages.FilesListedMsg{Path: path, Err: session.ErrNotConnected}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		files, err := backend.ListFiles(ctx, id, path)
		return messages.FilesListedMsg{Path: path, Files: files, Err: err}
	}
}

// DownloadCmd saves a remote file into localDir.
func (m *Model) DownloadCmd(remotePath, localDir string) tea.Cmd {
	backend, id := m.backend, m.sessionID()
	return func() tea.Msg {
		msg := messages.DownloadFinishedMsg{
			RemotePath: remotePath,
			LocalPath:  utils.LocalDownloadPath(remotePath, localDir, true),
		}
		if id == "" {
			msg.Err = session.ErrNotConnected
			return msg
		}
		f, err := os.OpenFile(msg.LocalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Bytes, msg.Err = backend.DownloadFile(context.Background(), id, remotePath, f)
		if closeErr := f.Close(); msg.Err == nil {
			msg.Err = closeErr
		}
		if msg.Err != nil {
			os.Remove(msg.LocalPath)
		}
		return msg
	}
}

func (m *Model) sessionID() string {
	if m.session == nil {
		return ""
	}
	return m.session.SessionID()
}

// GetHosts zwraca listę hostów
func (m *Model) GetHosts() []models.Host {
	return m.config.GetHosts()
}

// DeleteHost usuwa hosta i zapisuje konfigurację
func (m *Model) DeleteHost(name string) error {
	_, idx, err := m.config.FindHostByName(name)
	if err != nil {
		return err
	}
	if err := m.config.DeleteHost(idx); err != nil {
		return fmt.Errorf("nie można usunąć hosta: %w", err)
	}
	return m.config.Save()
}

// GetSelectedHost zwraca aktualnie wybrany host
func (m *Model) GetSelectedHost() *models.Host {
	return m.selectedHost
}

// SetActiveView przełącza widok
func (m *Model) SetActiveView(view View) {
	m.activeView = view
}

func (m *Model) GetActiveView() View {
	return m.activeView
}

func (m *Model) SetTerminalSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) GetTerminalWidth() int {
	return m.width
}

func (m *Model) GetTerminalHeight() int {
	return m.height
}

func (m *Model) SetQuitting(quitting bool) {
	m.quitting = quitting
}

func (m *Model) IsQuitting() bool {
	return m.quitting
}
