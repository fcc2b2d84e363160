// Package trace records what the harness observed while a script ran:
// messages and shell calls as they were received, matched, responded to, or
// flagged. Entries serialize to JSON because the fake shell reports through
// the same type over the IPC log file.
package trace

import (
	"fmt"
	"strings"
)

// Kind tags a log entry with how the harness handled the observation.
type Kind string

const (
	Received   Kind = "received"
	Matched    Kind = "matched"
	Responded  Kind = "responded"
	Unexpected Kind = "unexpected"
	Error      Kind = "error"
)

// kindWidth pads every header out to the longest kind, UNEXPECTED.
const kindWidth = 10

type Entry struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// NewMatched describes what an observation was matched against.
func NewMatched(pattern, mode string) Entry {
	return Entry{Kind: Matched, Text: fmt.Sprintf(`with "%s" (%s mode)`, pattern, mode)}
}

// String renders the entry with an aligned header and continuation lines
// indented under it.
func (e Entry) String() string {
	header := fmt.Sprintf("%*s", kindWidth, strings.ToUpper(string(e.Kind)))
	leader := "\n" + strings.Repeat(" ", kindWidth) + " "
	return header + " " + strings.Join(strings.Split(e.Text, "\n"), leader)
}

// Render formats entries one per element, multiline entries spanning more.
func Render(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.String())
	}
	return out
}

// Log is an append-only list of entries. The zero value is usable.
type Log struct {
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(e Entry) {
	l.entries = append(l.entries, e)
}

func (l *Log) Add(kind Kind, text string) {
	l.Append(Entry{Kind: kind, Text: text})
}

func (l *Log) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the log in arrival order.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Strings renders every entry.
func (l *Log) Strings() []string {
	return Render(l.entries)
}

// Tail renders at most the n most recent entries.
func (l *Log) Tail(n int) []string {
	if len(l.entries) <= n {
		return l.Strings()
	}
	return Render(l.entries[len(l.entries)-n:])
}
