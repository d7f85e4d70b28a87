// Package sync pulls the dashboard's server inventory into the local host list.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"sshConsole/internal/config"
	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
)

// ServerLister is the part of the backend client sync needs.
type ServerLister interface {
	ListServers(ctx context.Context) ([]models.Server, error)
}

// Options controls how servers become hosts.
type Options struct {
	// PasswordID and KeyID are assigned to servers not yet known locally.
	// With both set to models.NoCredential new servers are skipped.
	PasswordID int
	KeyID      int
	// Prune removes local hosts the inventory no longer lists.
	Prune  bool
	Logger *slog.Logger
}

// Result summarises one sync run.
type Result struct {
	Added     []string
	Updated   []string
	Unchanged []string
	Skipped   []string
	Removed   []string
}

// BackupConfigFile tworzy kopię pliku konfiguracyjnego
func BackupConfigFile(configPath string) error {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := os.WriteFile(configPath+".old", content, config.DefaultFilePerms); err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	return nil
}

// RestoreFromBackup przywraca plik konfiguracyjny z kopii zapasowej
func RestoreFromBackup(configPath string) error {
	backupPath := configPath + ".old"
	if _, err := os.Stat(backupPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading backup: %w", err)
	}
	if err := os.Rename(backupPath, configPath); err != nil {
		return fmt.Errorf("error restoring config from backup: %w", err)
	}
	return nil
}

// SyncHosts merges the backend's servers into cfg and saves it. Existing
// hosts keep their credentials; only address, port, login and description
// follow the inventory. The config file is backed up first and restored if
// saving fails.
func SyncHosts(ctx context.Context, lister ServerLister, cfg *config.Manager, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	servers, err := lister.ListServers(ctx)
	if err != nil {
		return Result{}, apperr.New(apperr.BackendError, "failed to fetch server list", err)
	}

	hosts, result := Merge(cfg.GetHosts(), servers, opts)
	if len(result.Added)+len(result.Updated)+len(result.Removed) == 0 {
		logger.Info("host sync: nothing to do", "servers", len(servers))
		return result, nil
	}

	path := cfg.GetConfigPath()
	if err := BackupConfigFile(path); err != nil {
		return Result{}, apperr.New(apperr.ConfigError, "failed to back up config", err)
	}

	previous := append([]models.Host(nil), cfg.GetHosts()...)
	cfg.ReplaceHosts(hosts)
	if err := cfg.Save(); err != nil {
		cfg.ReplaceHosts(previous)
		if restoreErr := RestoreFromBackup(path); restoreErr != nil {
			logger.Error("host sync: restore failed", "error", restoreErr)
		}
		return Result{}, err
	}

	logger.Info("host sync finished",
		"added", len(result.Added),
		"updated", len(result.Updated),
		"removed", len(result.Removed),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

// Merge applies servers to hosts by name and returns the new host list.
func Merge(hosts []models.Host, servers []models.Server, opts Options) ([]models.Host, Result) {
	var result Result
	merged := append([]models.Host(nil), hosts...)
	index := make(map[string]int, len(merged))
	for i, h := range merged {
		index[h.Name] = i
	}
	seen := make(map[string]bool, len(servers))

	for _, server := range servers {
		if server.Name == "" || server.IP == "" || seen[server.Name] {
			continue
		}
		seen[server.Name] = true

		port := ""
		if server.Port != 0 {
			port = strconv.Itoa(server.Port)
		}

		if i, ok := index[server.Name]; ok {
			updated := merged[i]
			updated.IP = server.IP
			updated.Port = port
			if server.Username != "" {
				updated.Login = server.Username
			}
			if server.Description != "" {
				updated.Description = server.Description
			}
			if updated == merged[i] {
				result.Unchanged = append(result.Unchanged, server.Name)
				continue
			}
			merged[i] = updated
			result.Updated = append(result.Updated, server.Name)
			continue
		}

		if (opts.PasswordID == models.NoCredential && opts.KeyID == models.NoCredential) || server.Username == "" {
			result.Skipped = append(result.Skipped, server.Name)
			continue
		}
		host := models.Host{
			Name:        server.Name,
			Description: server.Description,
			Login:       server.Username,
			IP:          server.IP,
			Port:        port,
			PasswordID:  opts.PasswordID,
			KeyID:       opts.KeyID,
		}
		if host.PasswordID != models.NoCredential {
			host.KeyID = models.NoCredential
		}
		merged = append(merged, host)
		result.Added = append(result.Added, server.Name)
	}

	if opts.Prune {
		kept := merged[:0]
		for _, h := range merged {
			if seen[h.Name] {
				kept = append(kept, h)
				continue
			}
			result.Removed = append(result.Removed, h.Name)
		}
		merged = kept
	}
	return merged, result
}
