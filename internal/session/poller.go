// internal/session/poller.go

package session

import (
	"context"
	"errors"
	"time"

	apperr "sshConsole/internal/error"
	"sshConsole/internal/models"
)

// startPollerLocked starts the output poller for one connected lifetime.
// s.mu must be held.
func (s *Session) startPollerLocked(gen uint64, id string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.stopPoll = cancel
	s.pollDone = done
	go s.pollLoop(ctx, gen, id, done)
}

// pollLoop fetches output every interval. The timer is re-armed only after
// the previous fetch has been applied, so ticks never overlap.
func (s *Session) pollLoop(ctx context.Context, gen uint64, id string, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		result, err := s.backend.PollOutput(ctx, id)
		if !s.applyPoll(ctx, gen, id, result, err) {
			return
		}
		timer.Reset(s.interval)
	}
}

// applyPoll folds one poll result into the session and reports whether
// polling should go on.
func (s *Session) applyPoll(ctx context.Context, gen uint64, id string, result models.PollResult, err error) bool {
	s.mu.Lock()
	if gen != s.generation || s.state != StateConnected {
		s.mu.Unlock()
		return false
	}

	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return false
		}
		s.logger.Warn("poll output failed",
			"session_id", id,
			"error", apperr.New(apperr.TransientPollFailure, "poll output", err),
		)
		return true
	}

	s.transcript.AppendOutput(result.Output)
	if result.Connected {
		s.mu.Unlock()
		if result.Output != "" {
			s.notify()
		}
		return true
	}

	// Remote side is gone: same local effect as Close, minus the teardown request.
	s.generation++
	s.id = ""
	s.state = StateDisconnected
	s.history.ResetCursor()
	s.transcript.AppendInfo("Connection closed")
	cancel := s.stopPoll
	s.stopPoll = nil
	s.pollDone = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.notify()

	s.logger.Info("session closed by remote", "session_id", id, "reason", apperr.RemoteClosed.String())
	return false
}
