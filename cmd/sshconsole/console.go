package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"sshConsole/internal/api"
	"sshConsole/internal/config"
	"sshConsole/internal/crypto"
	"sshConsole/internal/ui"
	"sshConsole/internal/ui/messages"
	"sshConsole/internal/ui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	closeOnExitTimeout = 5 * time.Second
	healthTimeout      = 5 * time.Second
)

type programModel struct {
	quitting    bool
	uiModel     *ui.Model
	currentView tea.Model
	cipher      *crypto.Cipher
	logger      *slog.Logger
}

func newProgramModel(cfg *config.Manager, logger *slog.Logger) *programModel {
	uiModel := ui.NewModel(cfg, logger)

	// Ustaw domyślny rozmiar terminala
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		uiModel.SetTerminalSize(w, h)
	}

	return &programModel{
		uiModel:     uiModel,
		currentView: views.NewInitialPromptModel(cfg.GetConfigPath()),
		logger:      logger,
	}
}

func (m *programModel) Init() tea.Cmd {
	return m.currentView.Init()
}

// updateCurrentView builds the view matching the model's active view.
func (m *programModel) updateCurrentView() tea.Cmd {
	if m.cipher == nil {
		// Wciąż jesteśmy w widoku początkowym
		return nil
	}

	switch m.uiModel.GetActiveView() {
	case ui.ViewTerminal:
		m.currentView = views.NewTerminalView(m.uiModel)
	case ui.ViewFiles:
		m.currentView = views.NewFilesView(m.uiModel)
	default:
		m.currentView = views.NewMainView(m.uiModel)
		m.uiModel.SetActiveView(ui.ViewMain)
	}
	return m.currentView.Init()
}

func (m *programModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.uiModel.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.uiModel.SetTerminalSize(msg.Width, msg.Height)
		return m.forward(msg)

	case messages.PasswordEnteredMsg:
		cipher, err := m.uiModel.GetConfig().Unlock(string(msg))
		if err != nil {
			m.logger.Warn("unlock failed", "error", err)
			return m.forward(messages.UnlockFailedMsg{Err: err})
		}
		m.cipher = cipher
		m.uiModel.SetCipher(cipher)

		token, err := resolveToken(m.uiModel.GetConfig(), cipher)
		if err != nil {
			m.logger.Warn("stored token unreadable", "error", err)
		}
		if token == "" {
			m.currentView = views.NewTokenPromptModel(m.uiModel.GetConfig().BackendURL())
			return m, m.currentView.Init()
		}
		return m, m.startConsole(token)

	case messages.TokenEnteredMsg:
		if !msg.Skip {
			if err := m.uiModel.GetConfig().SaveAPIToken(msg.Token, m.cipher); err != nil {
				m.logger.Warn("could not save API token", "error", err)
			}
		}
		return m, m.startConsole(msg.Token)

	case messages.SessionUpdateMsg:
		// One listener is kept armed for the whole program.
		model, cmd := m.forward(msg)
		return model, tea.Batch(cmd, m.uiModel.WaitForSessionUpdate())
	}

	return m.forward(msg)
}

// forward hands msg to the current view and follows any view switch it made.
func (m *programModel) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.uiModel.GetActiveView()

	var cmd tea.Cmd
	m.currentView, cmd = m.currentView.Update(msg)

	if m.uiModel.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if before != m.uiModel.GetActiveView() {
		return m, tea.Batch(cmd, m.updateCurrentView())
	}
	return m, cmd
}

// startConsole attaches the backend and shows the host list. A bad backend
// URL still opens the host list so hosts can be inspected.
func (m *programModel) startConsole(token string) tea.Cmd {
	client, err := newBackend(m.uiModel.GetConfig(), token, m.logger)
	if err != nil {
		m.logger.Error("backend unavailable", "error", err)
		m.uiModel.SetActiveView(ui.ViewMain)
		return m.updateCurrentView()
	}
	m.uiModel.SetBackend(client)
	m.uiModel.SetActiveView(ui.ViewMain)
	return tea.Batch(m.updateCurrentView(), m.uiModel.WaitForSessionUpdate(), checkBackend(client, m.logger))
}

// checkBackend logs a warning when the dashboard does not answer its health
// endpoint. The console stays usable for browsing hosts either way.
func checkBackend(client *api.Client, logger *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			logger.Warn("backend health check failed", "error", err)
			return nil
		}
		logger.Debug("backend reachable")
		return nil
	}
}

func (m *programModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	return m.currentView.View()
}

// closeSession tears the console session down before the process exits.
func (m *programModel) closeSession() {
	if s := m.uiModel.Session(); s != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeOnExitTimeout)
		defer cancel()
		if err := s.Close(ctx); err != nil {
			m.logger.Warn("closing session on exit failed", "error", err)
		}
	}
	m.uiModel.Shutdown()
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("console starting", "config", cfg.GetConfigPath(), "backend", cfg.BackendURL())

	m := newProgramModel(cfg, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, runErr := p.Run()
	m.closeSession()
	if runErr != nil {
		return fmt.Errorf("console: %w", runErr)
	}
	return nil
}
