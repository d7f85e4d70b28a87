// internal/ssh/shell.go

package ssh

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	DefaultTermType   = "xterm-256color"
	DefaultTermWidth  = 120
	DefaultTermHeight = 40
	DefaultKeepAlive  = 30 * time.Second

	// DefaultMaxBuffer is how much unread output a shell keeps (1 MB).
	DefaultMaxBuffer = 1024 * 1024
)

type ShellOptions struct {
	TermType  string
	Width     int
	Height    int
	KeepAlive time.Duration
	// MaxBuffer caps unread output; the oldest bytes are dropped past it.
	MaxBuffer int
	Logger    *slog.Logger
}

// Shell is an interactive PTY shell whose output is buffered until drained.
// It owns the SSH client it was started on.
type Shell struct {
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	logger  *slog.Logger

	mu           sync.Mutex
	buf          []byte
	maxBuffer    int
	dropped      int64
	exited       bool
	closed       bool
	lastActivity time.Time

	stopChan chan struct{}
	done     chan struct{}
}

// StartShell requests a PTY on client and starts the login shell.
func StartShell(client *ssh.Client, opts ShellOptions) (*Shell, error) {
	if opts.TermType == "" {
		opts.TermType = DefaultTermType
	}
	if opts.Width <= 0 {
		opts.Width = DefaultTermWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultTermHeight
	}
	if opts.MaxBuffer <= 0 {
		opts.MaxBuffer = DefaultMaxBuffer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s := &Shell{
		client:       client,
		session:      session,
		logger:       opts.Logger,
		maxBuffer:    opts.MaxBuffer,
		lastActivity: time.Now(),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
		ssh.VINTR:         3,  // Ctrl+C
		ssh.VQUIT:         28, // Ctrl+\
		ssh.VERASE:        127,
		ssh.VKILL:         21, // Ctrl+U
		ssh.VEOF:          4,  // Ctrl+D
		ssh.VWERASE:       23, // Ctrl+W
		ssh.VSUSP:         26, // Ctrl+Z
	}
	if err := session.RequestPty(opts.TermType, opts.Height, opts.Width, modes); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	s.stdin = stdin
	session.Stdout = shellWriter{s}
	session.Stderr = shellWriter{s}

	if err := session.Shell(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start shell: %w", err)
	}

	go s.wait()
	if opts.KeepAlive > 0 {
		go s.keepAliveLoop(opts.KeepAlive)
	}
	return s, nil
}

// shellWriter feeds remote stdout and stderr into the shell buffer.
type shellWriter struct{ s *Shell }

func (w shellWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.buf = append(w.s.buf, p...)
	if over := len(w.s.buf) - w.s.maxBuffer; over > 0 {
		w.s.buf = append(w.s.buf[:0], w.s.buf[over:]...)
		w.s.dropped += int64(over)
	}
	w.s.lastActivity = time.Now()
	return len(p), nil
}

func (s *Shell) wait() {
	defer close(s.done)
	err := s.session.Wait()

	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()

	if err != nil && !isNormalExit(err) {
		s.logger.Warn("shell ended with error", "error", err)
		return
	}
	s.logger.Debug("shell exited")
}

// isNormalExit ignores the exit codes a user's last command leaves behind.
func isNormalExit(err error) bool {
	var exitErr *ssh.ExitError
	var missing *ssh.ExitMissingError
	return errors.As(err, &exitErr) || errors.As(err, &missing) || errors.Is(err, io.EOF)
}

// keepAliveLoop wysyła pakiety keepalive
func (s *Shell) keepAliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				s.logger.Warn("keepalive failed", "error", err)
				s.Close()
				return
			}
		case <-s.stopChan:
			return
		case <-s.done:
			return
		}
	}
}

// Drain returns output buffered since the previous call and whether the
// shell is still running. The final output of an exited shell is returned
// together with connected=false.
func (s *Shell) Drain() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := string(s.buf)
	s.buf = s.buf[:0]
	return out, !s.exited && !s.closed
}

// Write sends one command line to the shell.
func (s *Shell) Write(command string) error {
	s.mu.Lock()
	if s.exited || s.closed {
		s.mu.Unlock()
		return fmt.Errorf("shell is not running")
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()

	if _, err := io.WriteString(s.stdin, command+"\n"); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// Close zamyka sesję i połączenie. Safe to call more than once.
func (s *Shell) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	close(s.stopChan)

	var errs []string
	if err := s.session.Close(); err != nil && err != io.EOF {
		errs = append(errs, fmt.Sprintf("session close error: %v", err))
	}
	if err := s.client.Close(); err != nil {
		errs = append(errs, fmt.Sprintf("client close error: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Done is closed once the remote shell has exited.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

// LastActivity is the time of the last output or command.
func (s *Shell) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Dropped reports how many output bytes were discarded because nobody drained them.
func (s *Shell) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Client returns the underlying connection, e.g. for file access.
func (s *Shell) Client() *ssh.Client {
	return s.client
}
