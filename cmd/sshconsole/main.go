// Package main is the entrypoint for the sshconsole CLI.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sshConsole/internal/api"
	"sshConsole/internal/config"
	"sshConsole/internal/crypto"
	"sshConsole/internal/logging"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	envPassphrase = "SSHCONSOLE_KEY"
	envToken      = "SSHCONSOLE_TOKEN"
)

var version = "dev"

// Global flags
var (
	configPath string
	backendURL string
	debug      bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sshconsole",
	Short: "Remote command console for hosts behind a session gateway",
	Long: `sshconsole opens command sessions on saved hosts through a dashboard
backend, streams their output and keeps a per-session command history.

Without a subcommand it starts the terminal console.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE:          runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/sshconsole/hosts.json)")
	rootCmd.PersistentFlags().StringVarP(&backendURL, "backend", "b", "", "Dashboard backend URL, overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Write debug entries to the log file")

	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(filesCmd)
}

// loadConfig reads the config file and applies the --backend override
// in memory only.
func loadConfig() (*config.Manager, error) {
	cfg := config.NewManager(configPath)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.SetBackendURL(backendURL)
	}
	return cfg, nil
}

// openLogger writes to a log file next to the config.
func openLogger(cfg *config.Manager) (*slog.Logger, io.Closer, error) {
	path := filepath.Join(filepath.Dir(cfg.GetConfigPath()), config.DefaultLogFileName)
	return logging.Init(path, debug)
}

// readPassphrase takes the master passphrase from the environment or asks
// for it on the terminal.
func readPassphrase(prompt string) (string, error) {
	if v := os.Getenv(envPassphrase); v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func unlock(cfg *config.Manager) (*crypto.Cipher, error) {
	passphrase, err := readPassphrase("Master passphrase: ")
	if err != nil {
		return nil, err
	}
	return cfg.Unlock(passphrase)
}

// resolveToken prefers SSHCONSOLE_TOKEN over the token stored in the config.
func resolveToken(cfg *config.Manager, cipher *crypto.Cipher) (string, error) {
	if v := os.Getenv(envToken); v != "" {
		return v, nil
	}
	return cfg.LoadAPIToken(cipher)
}

func newBackend(cfg *config.Manager, token string, logger *slog.Logger) (*api.Client, error) {
	return api.NewClient(api.ClientConfig{
		BaseURL: cfg.BackendURL(),
		Token:   token,
		Logger:  logger,
	})
}

// cliEnv is what every non-interactive subcommand needs.
type cliEnv struct {
	cfg    *config.Manager
	cipher *crypto.Cipher
	logger *slog.Logger
	closer io.Closer
}

func (e *cliEnv) Close() {
	if e.closer != nil {
		e.closer.Close()
	}
}

// setup loads the config and, when locked is false, unlocks it.
func setup(locked bool) (*cliEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, closer, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}
	env := &cliEnv{cfg: cfg, logger: logger, closer: closer}
	if locked {
		return env, nil
	}
	if env.cipher, err = unlock(cfg); err != nil {
		env.Close()
		return nil, err
	}
	return env, nil
}

// backend builds the API client, unlocking only if the token has to be
// decrypted.
func (e *cliEnv) backend() (*api.Client, error) {
	token := os.Getenv(envToken)
	if token == "" && e.cfg.HasAPIToken() {
		if e.cipher == nil {
			cipher, err := unlock(e.cfg)
			if err != nil {
				return nil, err
			}
			e.cipher = cipher
		}
		var err error
		if token, err = e.cfg.LoadAPIToken(e.cipher); err != nil {
			return nil, err
		}
	}
	return newBackend(e.cfg, token, e.logger)
}
