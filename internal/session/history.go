// internal/session/history.go

package session

import "strings"

// noCursor is the cursor position before the first recall and after the newest entry.
const noCursor = -1

// History holds submitted commands for recall. Consecutive duplicates and
// blank lines are never stored.
type History struct {
	entries []string
	cursor  int
}

func NewHistory() *History {
	return &History{cursor: noCursor}
}

// Add stores cmd unless it is blank or equal to the newest entry, and resets
// the cursor either way. It reports whether an entry was added.
func (h *History) Add(cmd string) bool {
	h.cursor = noCursor
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return false
	}
	h.entries = append(h.entries, cmd)
	return true
}

// Previous moves the cursor one entry back. At the oldest entry it stays put.
func (h *History) Previous() string {
	if len(h.entries) == 0 {
		return ""
	}
	switch {
	case h.cursor == noCursor:
		h.cursor = len(h.entries) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.entries[h.cursor]
}

// Next moves the cursor one entry forward. Moving past the newest entry
// returns "" and leaves no cursor.
func (h *History) Next() string {
	if h.cursor == noCursor {
		return ""
	}
	if h.cursor < len(h.entries)-1 {
		h.cursor++
		return h.entries[h.cursor]
	}
	h.cursor = noCursor
	return ""
}

func (h *History) ResetCursor() {
	h.cursor = noCursor
}

// Reset drops every entry.
func (h *History) Reset() {
	h.entries = nil
	h.cursor = noCursor
}

// Cursor returns the current position, or -1 when there is none.
func (h *History) Cursor() int {
	return h.cursor
}

func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
