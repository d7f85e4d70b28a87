// internal/session/backend.go

package session

import (
	"context"

	"sshConsole/internal/models"
)

// Backend is the remote side of a session. Every call is scoped to a session
// id the backend handed out; the caller's bearer credential lives inside the
// implementation.
type Backend interface {
	OpenSession(ctx context.Context, target models.Target) (string, error)
	// CloseSession must treat an already closed id as success.
	CloseSession(ctx context.Context, sessionID string) error
	// PollOutput returns only output not yet returned by a previous call.
	PollOutput(ctx context.Context, sessionID string) (models.PollResult, error)
	SendCommand(ctx context.Context, sessionID, command string) error
}
