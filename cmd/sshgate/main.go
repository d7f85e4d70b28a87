// Command sshgate is a reference session gateway: it serves the REST session
// API the console polls, backed by real SSH connections.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sshConsole/internal/gateway"
	"sshConsole/internal/models"
	"sshConsole/internal/ssh"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr     string        `envconfig:"LISTEN_ADDR" default:":8080"`
	Token          string        `envconfig:"TOKEN" default:""`
	KnownHosts     string        `envconfig:"KNOWN_HOSTS" default:""`
	AcceptNewHosts bool          `envconfig:"ACCEPT_NEW_HOSTS" default:"false"`
	DialTimeout    time.Duration `envconfig:"DIAL_TIMEOUT" default:"10s"`
	IdleTimeout    time.Duration `envconfig:"IDLE_TIMEOUT" default:"30m"`
	MaxBuffer      int           `envconfig:"MAX_BUFFER" default:"1048576"`
	ServersFile    string        `envconfig:"SERVERS_FILE" default:""`
	Debug          bool          `envconfig:"DEBUG" default:"false"`
}

func main() {
	var cfg Settings
	if err := envconfig.Process("SSHGATE", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("sshgate failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg Settings, logger *slog.Logger) error {
	servers, err := loadServers(cfg.ServersFile)
	if err != nil {
		return err
	}
	if cfg.Token == "" {
		logger.Warn("SSHGATE_TOKEN is empty, API authentication is disabled")
	}
	if cfg.KnownHosts == "" {
		logger.Warn("SSHGATE_KNOWN_HOSTS is empty, host keys will not be verified")
	}

	manager := gateway.NewManager(gateway.ManagerConfig{
		Dial: ssh.DialOptions{
			KnownHostsPath: cfg.KnownHosts,
			AcceptNewHosts: cfg.AcceptNewHosts,
			Timeout:        cfg.DialTimeout,
		},
		Shell:       ssh.ShellOptions{MaxBuffer: cfg.MaxBuffer},
		IdleTimeout: cfg.IdleTimeout,
		Logger:      logger,
	})
	defer manager.CloseAll()

	server := gateway.NewServer(gateway.ServerConfig{
		Manager: manager,
		Token:   cfg.Token,
		Servers: servers,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go manager.Run(sigCtx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sshgate starting", "addr", cfg.ListenAddr, "servers", len(servers))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("sshgate stopped")
	return nil
}

// loadServers reads the inventory served on /api/v1/servers.
func loadServers(path string) ([]models.Server, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers file: %w", err)
	}
	var servers []models.Server
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, fmt.Errorf("failed to parse servers file %s: %w", path, err)
	}
	return servers, nil
}
