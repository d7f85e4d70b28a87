// internal/ssh/ssh_client.go
package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sshConsole/internal/models"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const DefaultDialTimeout = 10 * time.Second

// DialOptions controls how the gateway reaches a target.
type DialOptions struct {
	// KnownHostsPath enables host key verification. Empty accepts any key.
	KnownHostsPath string
	// AcceptNewHosts records the key of a host missing from KnownHostsPath
	// instead of rejecting it. A changed key is always rejected.
	AcceptNewHosts bool
	Timeout        time.Duration
	Logger         *slog.Logger
}

// HostKeyError reprezentuje błąd weryfikacji klucza hosta
type HostKeyError struct {
	Address     string
	Fingerprint string
	Err         error
}

func (e *HostKeyError) Error() string {
	return fmt.Sprintf("host key verification failed for %s (%s): %v", e.Address, e.Fingerprint, e.Err)
}

func (e *HostKeyError) Unwrap() error {
	return e.Err
}

// knownHostsMu serialises appends to known_hosts files.
var knownHostsMu sync.Mutex

// Dial opens an authenticated SSH connection to target.
func Dial(ctx context.Context, target models.Target, opts DialOptions) (*ssh.Client, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	auth, err := authMethods(target)
	if err != nil {
		return nil, err
	}
	callback, err := hostKeyCallback(opts, logger)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         timeout,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := target.Address()
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	// The handshake has no context of its own; a deadline bounds it instead.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		var hostErr *HostKeyError
		if errors.As(err, &hostErr) {
			return nil, hostErr
		}
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	logger.Debug("ssh connected", "address", addr, "user", target.Username)
	return ssh.NewClient(sshConn, chans, reqs), nil
}

func authMethods(target models.Target) ([]ssh.AuthMethod, error) {
	if target.KeyPath != "" {
		signer, err := loadSigner(target.KeyPath, target.Password)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	password := target.Password
	return []ssh.AuthMethod{
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}),
	}, nil
}

// loadSigner reads a private key; passphrase is only used when the key is encrypted.
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		if passphrase == "" {
			return nil, fmt.Errorf("SSH key %s is encrypted and no passphrase was given", path)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}
	return signer, nil
}

func hostKeyCallback(opts DialOptions, logger *slog.Logger) (ssh.HostKeyCallback, error) {
	if opts.KnownHostsPath == "" {
		return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
			logger.Warn("host key not verified", "host", hostname, "fingerprint", ssh.FingerprintSHA256(key))
			return nil
		}, nil
	}

	if err := ensureKnownHostsFile(opts.KnownHostsPath); err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// Re-read on every dial so keys recorded by other sessions are seen.
		check, err := knownhosts.New(opts.KnownHostsPath)
		if err != nil {
			return fmt.Errorf("failed to load known_hosts: %w", err)
		}
		err = check(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 && opts.AcceptNewHosts {
			if err := appendKnownHost(opts.KnownHostsPath, hostname, key); err != nil {
				return err
			}
			logger.Info("recorded new host key", "host", hostname, "fingerprint", ssh.FingerprintSHA256(key))
			return nil
		}
		return &HostKeyError{Address: hostname, Fingerprint: ssh.FingerprintSHA256(key), Err: err}
	}, nil
}

func ensureKnownHostsFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts %s: %w", path, err)
	}
	return f.Close()
}

// appendKnownHost zapisuje klucz hosta do known_hosts, zastępując
// poprzednie wpisy dla tego hosta.
func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	knownHostsMu.Lock()
	defer knownHostsMu.Unlock()

	hostFormat := knownhosts.Normalize(hostname)
	newKeyLine := knownhosts.Line([]string{hostFormat}, key)

	var existingKeys []string
	if content, err := os.ReadFile(path); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(content)))
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if fields := strings.Fields(line); len(fields) > 0 && fields[0] == hostFormat {
				continue
			}
			existingKeys = append(existingKeys, line)
		}
	}

	allKeys := append(existingKeys, newKeyLine)
	content := strings.Join(allKeys, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write known_hosts file %s: %w", path, err)
	}
	return nil
}
