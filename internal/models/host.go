// internal/models/host.go

package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const DefaultSSHPort = "22"

// NoCredential marks an unused PasswordID or KeyID.
const NoCredential = -1

type Host struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Login       string `json:"login"`
	IP          string `json:"ip"`
	Port        string `json:"port"`
	PasswordID  int    `json:"password_id"` // indeks w Passwords, NoCredential gdy używamy klucza
	KeyID       int    `json:"key_id"`      // indeks w Keys, używany gdy PasswordID == NoCredential
}

type Backend struct {
	BaseURL        string `json:"base_url"`
	Token          string `json:"token,omitempty"` // zaszyfrowany token
	PollIntervalMs int    `json:"poll_interval_ms,omitempty"`
}

type Config struct {
	Hosts     []Host     `json:"hosts"`
	Passwords []Password `json:"passwords"`
	Keys      []Key      `json:"keys"`
	Backend   Backend    `json:"backend"`
	Salt      string     `json:"salt,omitempty"`
	KeyCheck  string     `json:"key_check,omitempty"`
}

// Validate checks the fields a host needs before it can be turned into a Target.
func (h *Host) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return errors.New("host name cannot be empty")
	}
	if strings.TrimSpace(h.IP) == "" {
		return errors.New("host address cannot be empty")
	}
	if strings.TrimSpace(h.Login) == "" {
		return errors.New("login cannot be empty")
	}
	if _, err := h.PortNumber(); err != nil {
		return err
	}
	if h.PasswordID == NoCredential && h.KeyID == NoCredential {
		return errors.New("host needs a password or a key")
	}
	return nil
}

// PortNumber parses Port, defaulting to 22.
func (h *Host) PortNumber() (int, error) {
	port := h.Port
	if port == "" {
		port = DefaultSSHPort
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q", h.Port)
	}
	return n, nil
}

// UsesKey reports whether the host authenticates with a key instead of a password.
func (h *Host) UsesKey() bool {
	return h.PasswordID == NoCredential
}
