// internal/config/config.go

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sshConsole/internal/crypto"
	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
)

const (
	DefaultConfigFileName = "hosts.json"
	DefaultConfigDir      = ".config/sshconsole"
	DefaultLogFileName    = "sshconsole.log"
	DefaultFilePerms      = 0600
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultBackendURL     = "http://localhost:8080"
)

// ErrWrongPassphrase is returned by Unlock when the key check does not match.
var ErrWrongPassphrase = apperr.New(apperr.CryptoError, "wrong master passphrase", nil)

type Manager struct {
	configPath string
	config     *models.Config
}

// NewManager tworzy nowego menedżera konfiguracji
func NewManager(configPath string) *Manager {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err == nil {
			configPath = defaultPath
		} else {
			configPath = DefaultConfigFileName
		}
	}

	return &Manager{
		configPath: configPath,
		config:     emptyConfig(),
	}
}

func emptyConfig() *models.Config {
	return &models.Config{
		Hosts:     make([]models.Host, 0),
		Passwords: make([]models.Password, 0),
		Keys:      make([]models.Key, 0),
	}
}

// Load wczytuje konfigurację z pliku. A missing file yields an empty config
// which is written out immediately.
func (m *Manager) Load() error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create config directory", err)
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.config = emptyConfig()
			return m.Save()
		}
		return apperr.New(apperr.ConfigError, "failed to read config file", err)
	}

	cfg := emptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return apperr.New(apperr.ConfigError, "failed to parse config file", err)
	}
	m.config = cfg
	return nil
}

// Save zapisuje konfigurację do pliku
func (m *Manager) Save() error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return apperr.New(apperr.ConfigError, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "    ")
	if err != nil {
		return apperr.New(apperr.ConfigError, "failed to marshal config", err)
	}

	// Write to a sibling temp file first so a crash never leaves half a config.
	tmp := m.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, DefaultFilePerms); err != nil {
		return apperr.New(apperr.ConfigError, "failed to write config file", err)
	}
	if err := os.Rename(tmp, m.configPath); err != nil {
		return apperr.New(apperr.ConfigError, "failed to replace config file", err)
	}
	return nil
}

func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Unlock derives the cipher for passphrase. The first unlock of a fresh
// config generates the salt and key check and saves them.
func (m *Manager) Unlock(passphrase string) (*crypto.Cipher, error) {
	if m.config.Salt == "" {
		salt, err := crypto.NewSalt()
		if err != nil {
			return nil, apperr.New(apperr.CryptoError, "failed to initialise key", err)
		}
		cipher, err := crypto.DeriveCipher(passphrase, salt)
		if err != nil {
			return nil, apperr.New(apperr.CryptoError, "failed to derive key", err)
		}
		check, err := cipher.KeyCheck()
		if err != nil {
			return nil, apperr.New(apperr.CryptoError, "failed to initialise key", err)
		}
		m.config.Salt = salt
		m.config.KeyCheck = check
		if err := m.Save(); err != nil {
			return nil, err
		}
		return cipher, nil
	}

	cipher, err := crypto.DeriveCipher(passphrase, m.config.Salt)
	if err != nil {
		return nil, apperr.New(apperr.CryptoError, "failed to derive key", err)
	}
	if !cipher.VerifyKeyCheck(m.config.KeyCheck) {
		return nil, ErrWrongPassphrase
	}
	return cipher, nil
}

// GetHosts zwraca listę wszystkich hostów
func (m *Manager) GetHosts() []models.Host {
	return m.config.Hosts
}

// AddHost dodaje nowego hosta
func (m *Manager) AddHost(host models.Host) error {
	if err := m.validateHost(host); err != nil {
		return err
	}
	if _, _, err := m.FindHostByName(host.Name); err == nil {
		return apperr.New(apperr.ValidationError, fmt.Sprintf("host %q already exists", host.Name), nil)
	}
	m.config.Hosts = append(m.config.Hosts, host)
	return nil
}

// DeleteHost usuwa hosta
func (m *Manager) DeleteHost(index int) error {
	if index < 0 || index >= len(m.config.Hosts) {
		return apperr.New(apperr.ValidationError, "invalid host index", nil)
	}
	m.config.Hosts = append(m.config.Hosts[:index], m.config.Hosts[index+1:]...)
	return nil
}

// ReplaceHosts swaps the host list wholesale; used by the server sync.
func (m *Manager) ReplaceHosts(hosts []models.Host) {
	m.config.Hosts = append(make([]models.Host, 0, len(hosts)), hosts...)
}

// FindHostByName szuka hosta po nazwie
func (m *Manager) FindHostByName(name string) (models.Host, int, error) {
	for i, host := range m.config.Hosts {
		if host.Name == name {
			return host, i, nil
		}
	}
	return models.Host{}, -1, apperr.New(apperr.ValidationError, fmt.Sprintf("host %q not found", name), nil)
}

func (m *Manager) validateHost(host models.Host) error {
	if err := host.Validate(); err != nil {
		return apperr.New(apperr.ValidationError, "invalid host", err)
	}
	if host.PasswordID != models.NoCredential && (host.PasswordID < 0 || host.PasswordID >= len(m.config.Passwords)) {
		return apperr.New(apperr.ValidationError, "invalid password index", nil)
	}
	if host.UsesKey() && (host.KeyID < 0 || host.KeyID >= len(m.config.Keys)) {
		return apperr.New(apperr.ValidationError, "invalid key index", nil)
	}
	return nil
}

// GetPasswords zwraca listę wszystkich haseł
func (m *Manager) GetPasswords() []models.Password {
	return m.config.Passwords
}

// AddPassword dodaje nowe hasło i zwraca jego indeks
func (m *Manager) AddPassword(password models.Password) (int, error) {
	if err := password.Validate(); err != nil {
		return -1, apperr.New(apperr.ValidationError, "invalid password", err)
	}
	for _, p := range m.config.Passwords {
		if p.Description == password.Description {
			return -1, apperr.New(apperr.ValidationError, fmt.Sprintf("password %q already exists", password.Description), nil)
		}
	}
	m.config.Passwords = append(m.config.Passwords, password)
	return len(m.config.Passwords) - 1, nil
}

// DeletePassword usuwa hasło
func (m *Manager) DeletePassword(index int) error {
	if index < 0 || index >= len(m.config.Passwords) {
		return apperr.New(apperr.ValidationError, "invalid password index", nil)
	}
	for _, host := range m.config.Hosts {
		if host.PasswordID == index {
			return apperr.New(apperr.ValidationError, fmt.Sprintf("password is in use by host %q", host.Name), nil)
		}
	}
	m.config.Passwords = append(m.config.Passwords[:index], m.config.Passwords[index+1:]...)
	for i := range m.config.Hosts {
		if m.config.Hosts[i].PasswordID > index {
			m.config.Hosts[i].PasswordID--
		}
	}
	return nil
}

// GetKeys zwraca listę wszystkich kluczy
func (m *Manager) GetKeys() []models.Key {
	return m.config.Keys
}

// AddKey dodaje nowy klucz i zwraca jego indeks
func (m *Manager) AddKey(key models.Key) (int, error) {
	if err := key.Validate(); err != nil {
		return -1, apperr.New(apperr.ValidationError, "invalid key", err)
	}
	for _, k := range m.config.Keys {
		if k.Description == key.Description {
			return -1, apperr.New(apperr.ValidationError, fmt.Sprintf("key %q already exists", key.Description), nil)
		}
	}
	m.config.Keys = append(m.config.Keys, key)
	return len(m.config.Keys) - 1, nil
}

// DeleteKey usuwa klucz
func (m *Manager) DeleteKey(index int) error {
	if index < 0 || index >= len(m.config.Keys) {
		return apperr.New(apperr.ValidationError, fmt.Sprintf("invalid key index: %d", index), nil)
	}
	for _, host := range m.config.Hosts {
		if host.UsesKey() && host.KeyID == index {
			return apperr.New(apperr.ValidationError,
				fmt.Sprintf("key %q is in use by host %q", m.config.Keys[index].Description, host.Name), nil)
		}
	}
	m.config.Keys = append(m.config.Keys[:index], m.config.Keys[index+1:]...)
	for i := range m.config.Hosts {
		if m.config.Hosts[i].UsesKey() && m.config.Hosts[i].KeyID > index {
			m.config.Hosts[i].KeyID--
		}
	}
	return nil
}

// ResolveTarget turns a saved host into the parameters a backend needs,
// decrypting the host's password when it has one.
func (m *Manager) ResolveTarget(host models.Host, cipher *crypto.Cipher) (models.Target, error) {
	port, err := host.PortNumber()
	if err != nil {
		return models.Target{}, apperr.New(apperr.ValidationError, "invalid host", err)
	}
	target := models.Target{
		Host:     host.IP,
		Port:     port,
		Username: host.Login,
	}

	if host.UsesKey() {
		if host.KeyID < 0 || host.KeyID >= len(m.config.Keys) {
			return models.Target{}, apperr.New(apperr.ValidationError, "invalid key index", nil)
		}
		target.KeyPath = m.config.Keys[host.KeyID].Path
		return target, nil
	}

	if host.PasswordID < 0 || host.PasswordID >= len(m.config.Passwords) {
		return models.Target{}, apperr.New(apperr.ValidationError, "invalid password index", nil)
	}
	if cipher == nil {
		return models.Target{}, apperr.New(apperr.CryptoError, "config is locked", nil)
	}
	plain, err := m.config.Passwords[host.PasswordID].GetDecrypted(cipher)
	if err != nil {
		return models.Target{}, apperr.New(apperr.CryptoError, "failed to decrypt password", err)
	}
	target.Password = plain
	return target, nil
}

// BackendURL returns the configured backend base URL.
func (m *Manager) BackendURL() string {
	if m.config.Backend.BaseURL == "" {
		return DefaultBackendURL
	}
	return strings.TrimRight(m.config.Backend.BaseURL, "/")
}

func (m *Manager) SetBackendURL(url string) {
	m.config.Backend.BaseURL = strings.TrimRight(url, "/")
}

// PollInterval returns the output poll interval, 500ms unless configured.
func (m *Manager) PollInterval() time.Duration {
	if m.config.Backend.PollIntervalMs <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(m.config.Backend.PollIntervalMs) * time.Millisecond
}

func (m *Manager) SetPollInterval(d time.Duration) {
	m.config.Backend.PollIntervalMs = int(d / time.Millisecond)
}

// SaveAPIToken encrypts and persists the backend bearer token.
func (m *Manager) SaveAPIToken(token string, cipher *crypto.Cipher) error {
	if cipher == nil {
		return apperr.New(apperr.CryptoError, "config is locked", nil)
	}
	encrypted, err := cipher.Encrypt(token)
	if err != nil {
		return apperr.New(apperr.CryptoError, "failed to encrypt token", err)
	}
	m.config.Backend.Token = encrypted
	return m.Save()
}

// LoadAPIToken returns the decrypted bearer token, or "" when none is stored.
func (m *Manager) LoadAPIToken(cipher *crypto.Cipher) (string, error) {
	if m.config.Backend.Token == "" {
		return "", nil
	}
	if cipher == nil {
		return "", apperr.New(apperr.CryptoError, "config is locked", nil)
	}
	token, err := cipher.Decrypt(m.config.Backend.Token)
	if err != nil {
		return "", apperr.New(apperr.CryptoError, "failed to decrypt token", err)
	}
	return token, nil
}

// HasAPIToken reports whether a token is stored without decrypting it.
func (m *Manager) HasAPIToken() bool {
	return m.config.Backend.Token != ""
}

func GetDefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}

	return filepath.Join(configDir, DefaultConfigFileName), nil
}
