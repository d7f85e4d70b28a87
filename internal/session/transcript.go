// internal/session/transcript.go

package session

import "strings"

type EntryKind int

const (
	// KindOutput is raw remote output, rendered verbatim.
	KindOutput EntryKind = iota
	// KindCommand is an echoed "$ <line>".
	KindCommand
	KindInfo
	KindError
)

type Entry struct {
	Kind EntryKind
	Text string
}

// Transcript is the append-only log shown in the terminal view. Appending
// never changes what has already been rendered.
type Transcript struct {
	entries  []Entry
	rendered strings.Builder
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// AppendOutput adds a chunk of remote output exactly as received.
func (t *Transcript) AppendOutput(chunk string) {
	if chunk == "" {
		return
	}
	t.entries = append(t.entries, Entry{Kind: KindOutput, Text: chunk})
	t.rendered.WriteString(chunk)
}

func (t *Transcript) AppendCommand(line string) {
	t.appendLine(KindCommand, "$ "+line)
}

func (t *Transcript) AppendInfo(line string) {
	t.appendLine(KindInfo, line)
}

func (t *Transcript) AppendError(line string) {
	t.appendLine(KindError, line)
}

// appendLine starts text on a fresh line even if the last output chunk had
// no trailing newline.
func (t *Transcript) appendLine(kind EntryKind, text string) {
	t.entries = append(t.entries, Entry{Kind: kind, Text: text})
	if s := t.rendered.String(); s != "" && !strings.HasSuffix(s, "\n") {
		t.rendered.WriteByte('\n')
	}
	t.rendered.WriteString(text)
	t.rendered.WriteByte('\n')
}

func (t *Transcript) String() string {
	return t.rendered.String()
}

// Entries returns a copy of everything appended so far.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

// Reset empties the transcript. Only used when the owning view goes away.
func (t *Transcript) Reset() {
	t.entries = nil
	t.rendered.Reset()
}
