package messages

import "sshConsole/internal/models"

// PasswordEnteredMsg carries the master passphrase from the unlock prompt.
type PasswordEnteredMsg string

// UnlockFailedMsg is sent back to the prompt when the passphrase is wrong.
type UnlockFailedMsg struct{ Err error }

type TokenEnteredMsg struct {
	Token string
	// Skip continues without storing a token.
	Skip bool
}

// SessionUpdateMsg means the session's state or transcript changed.
type SessionUpdateMsg struct{}

type OpenFinishedMsg struct{ Err error }

type SyncFinishedMsg struct {
	Added   int
	Updated int
	Skipped int
	Err     error
}

type FilesListedMsg struct {
	Path  string
	Files []models.RemoteFile
	Err   error
}

type DownloadFinishedMsg struct {
	RemotePath string
	LocalPath  string
	Bytes      int64
	Err        error
}
