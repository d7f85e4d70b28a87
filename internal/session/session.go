// internal/session/session.go

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
)

// State reprezentuje stan sesji
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	DefaultPollInterval = 500 * time.Millisecond

	// releaseTimeout bounds the background teardown fired by Release.
	releaseTimeout = 10 * time.Second
)

var (
	ErrOpenInFlight = errors.New("session: open already in progress")
	ErrAlreadyOpen  = errors.New("session: already connected")
	ErrNotConnected = errors.New("session: not connected")
	// ErrOpenAborted is returned by Open when Close or Release ran before
	// the backend answered.
	ErrOpenAborted = errors.New("session: closed while opening")
)

type Config struct {
	Backend Backend
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Session is one remote command session owned by a single view. All methods
// are safe for concurrent use; network calls never run under the state lock.
type Session struct {
	backend  Backend
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	id         string
	target     models.Target
	generation uint64
	transcript *Transcript
	history    *History
	stopPoll   context.CancelFunc
	pollDone   chan struct{}

	// sendMu keeps commands reaching the backend in submit order.
	sendMu sync.Mutex

	updates chan struct{}
}

func New(cfg Config) *Session {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend:    cfg.Backend,
		interval:   interval,
		logger:     logger,
		state:      StateDisconnected,
		transcript: NewTranscript(),
		history:    NewHistory(),
		updates:    make(chan struct{}, 1),
	}
}

// Open asks the backend for a session to target. Failures are written to the
// transcript and leave the session disconnected; nothing is retried.
func (s *Session) Open(ctx context.Context, target models.Target) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting:
		s.mu.Unlock()
		return ErrOpenInFlight
	case StateConnected:
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.state = StateConnecting
	s.target = target
	s.history.Reset()
	s.generation++
	gen := s.generation
	s.mu.Unlock()
	s.notify()

	s.logger.Info("opening session", "host", target.Host, "port", target.Port, "user", target.Username)
	id, err := s.backend.OpenSession(ctx, target)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if err == nil {
			s.logger.Info("discarding session opened after close", "session_id", id)
			s.teardown(context.WithoutCancel(ctx), id)
		}
		return ErrOpenAborted
	}
	if err != nil {
		s.state = StateDisconnected
		s.transcript.AppendInfo("Connection failed: " + apperr.Reason(err))
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("open session failed", "host", target.Host, "error", err)
		return apperr.New(apperr.OpenFailure, "open session", err)
	}
	s.id = id
	s.state = StateConnected
	s.transcript.AppendInfo("Connected to " + target.Host)
	s.startPollerLocked(gen, id)
	s.mu.Unlock()
	s.notify()

	s.logger.Info("session connected", "session_id", id, "host", target.Host)
	return nil
}

// Close stops polling, forgets the session and asks the backend to tear it
// down. It is safe to call any number of times. A teardown failure is logged
// and returned but never reaches the transcript.
func (s *Session) Close(ctx context.Context) error {
	id, cancel, done := s.detach()
	if cancel != nil {
		cancel()
		<-done
	}
	s.notify()

	if id == "" {
		return nil
	}
	return s.teardown(ctx, id)
}

// Release is Close for a view that is going away: local state including the
// transcript and history is dropped at once, and the backend teardown runs in
// the background without being waited for. The poller is stopped before
// Release returns.
func (s *Session) Release() {
	id, cancel, done := s.detach()
	if cancel != nil {
		cancel()
		<-done
	}
	s.mu.Lock()
	s.transcript.Reset()
	s.history.Reset()
	s.mu.Unlock()
	s.notify()

	if id == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		_ = s.teardown(ctx, id)
	}()
}

// detach moves the session to Disconnected and hands back what the caller
// needs to finish the job outside the lock.
func (s *Session) detach() (string, context.CancelFunc, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	id, cancel, done := s.id, s.stopPoll, s.pollDone
	s.id = ""
	s.stopPoll = nil
	s.pollDone = nil
	s.state = StateDisconnected
	s.history.ResetCursor()
	return id, cancel, done
}

func (s *Session) teardown(ctx context.Context, id string) error {
	if err := s.backend.CloseSession(ctx, id); err != nil {
		s.logger.Warn("close session failed", "session_id", id, "error", err)
		return apperr.New(apperr.TeardownFailure, "close session", err)
	}
	s.logger.Info("session closed", "session_id", id)
	return nil
}

// Submit echoes line to the transcript and sends it to the backend. Blank
// lines are ignored. A rejected command is reported in the transcript and
// returned; the connection state is not touched.
func (s *Session) Submit(ctx context.Context, line string) error {
	trimmed := strings.TrimSpace(line)

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.state != StateConnected || s.id == "" {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if trimmed == "" {
		s.mu.Unlock()
		return nil
	}
	s.history.Add(trimmed)
	s.transcript.AppendCommand(line)
	id, gen := s.id, s.generation
	s.mu.Unlock()
	s.notify()

	err := s.backend.SendCommand(ctx, id, line)
	if err == nil {
		return nil
	}

	s.logger.Warn("send command failed", "session_id", id, "error", err)
	s.mu.Lock()
	if gen == s.generation {
		s.transcript.AppendError("Error: " + apperr.Reason(err))
	}
	s.mu.Unlock()
	s.notify()
	return apperr.New(apperr.CommandFailure, "send command", err)
}

// RecallPrevious returns the previous history entry for the input line.
func (s *Session) RecallPrevious() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Previous()
}

// RecallNext returns the next history entry, or "" past the newest one.
func (s *Session) RecallNext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Next()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SessionID is empty unless the session is connected.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Target() models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Transcript returns the rendered transcript.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.String()
}

func (s *Session) TranscriptEntries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Entries()
}

func (s *Session) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// Updates signals after any change to state or transcript. Signals are
// coalesced, so a receiver should re-read everything it shows.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
