// Package buffer verifies editor buffer contents against scripted
// expectations. Reads are lazy and positional: one snapshot is held at a
// time, and a cursor advances through it as lines are checked, so that
// consecutive expectations walk the buffer without restating positions.
package buffer

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/vroom/result"
	"github.com/google/vroom/script"
)

//go:generate mockgen -destination=buffermocks_test.go -package=buffer_test github.com/google/vroom/buffer Source

// Source reads live buffer state from the editor. A buffer number of 0 means
// whichever buffer is currently on screen.
type Source interface {
	GetBufferLines(ctx context.Context, buffer int) ([]string, error)
	GetCurrentLine(ctx context.Context) (int, error)
}

// Manager holds at most one buffer snapshot and the inspection cursor within
// it. Requesting a different buffer, or reloading after an Unload, resets
// both.
type Manager struct {
	source Source

	loaded    bool
	buffer    int
	data      []string
	line      int
	inspected bool
	lastStart int
	lastEnd   int
	hasRange  bool
}

func NewManager(source Source) *Manager {
	m := &Manager{source: source}
	m.Unload()
	return m
}

// Unload drops the snapshot and cursor. The next Load refetches.
func (m *Manager) Unload() {
	m.loaded = false
	m.buffer = 0
	m.data = nil
	m.line = -1
	m.inspected = false
	m.hasRange = false
}

// Load fetches the requested buffer. When a snapshot is already loaded and no
// buffer is requested, the snapshot is kept. Any explicit request reloads
// from the editor and resets the cursor, even for the same buffer number.
func (m *Manager) Load(ctx context.Context, buffer int, requested bool) error {
	if m.loaded && !requested {
		return nil
	}
	m.Unload()
	target := 0
	if requested {
		target = buffer
	}
	data, err := m.source.GetBufferLines(ctx, target)
	if err != nil {
		return err
	}
	m.data = data
	m.buffer = target
	m.loaded = true
	return nil
}

// View resolves span against the loaded snapshot and returns a lazy walk over
// the resolved range. Resolution marks the buffer as inspected even when the
// range turns out empty.
func (m *Manager) View(ctx context.Context, span script.Span) (*View, error) {
	if !m.inspected {
		m.inspected = true
		m.line = -1
	}

	var start int
	switch {
	case span.Cursor:
		current, err := m.source.GetCurrentLine(ctx)
		if err != nil {
			return nil, err
		}
		start = current - 1
	case span.Start > 0:
		start = span.Start - 1
	default:
		start = m.line + 1
	}

	var end int
	switch span.EndKind {
	case script.EndAbsolute:
		end = span.End
	case script.EndRelative:
		end = start + 1 + span.End
	case script.EndOfBuffer:
		end = len(m.data)
	default:
		end = start + 1
	}
	// An absolute end of 0 also means the end of the buffer.
	if end == 0 {
		end = len(m.data)
	}

	m.lastStart, m.lastEnd, m.hasRange = start, end, true
	return &View{m: m, pos: start, end: end}, nil
}

// Verify checks that every line in the controlled range matches desired under
// the control's match mode. The walk stops at the first mismatch, leaving the
// cursor on the offending line.
func (m *Manager) Verify(ctx context.Context, desired string, c script.Controls) error {
	if err := m.Load(ctx, c.Buffer, c.HasBuffer); err != nil {
		return err
	}
	view, err := m.View(ctx, c.Span)
	if err != nil {
		return err
	}
	mode := c.Mode
	if mode == "" {
		mode = script.DefaultMode
	}
	for {
		actual, ok, err := view.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		matched, err := script.Match(desired, mode, actual)
		if err != nil {
			return err
		}
		if !matched {
			return &result.Failure{
				Desc:    fmt.Sprintf("Expected \"%s\" in %s mode.", desired, mode),
				Context: m.excerpt(),
			}
		}
	}
}

// EnsureAtEnd checks that inspection has reached the last line of the buffer.
// An empty or single-blank buffer that was never inspected passes vacuously;
// any other uninspected buffer is a misuse, not a mismatch.
func (m *Manager) EnsureAtEnd(ctx context.Context, c script.Controls) error {
	if err := m.Load(ctx, c.Buffer, c.HasBuffer); err != nil {
		return err
	}
	m.lastStart, m.lastEnd, m.hasRange = len(m.data), len(m.data), true
	if !m.inspected {
		if len(m.data) == 0 || (len(m.data) == 1 && m.data[0] == "") {
			return nil
		}
		return &result.Failure{
			Desc:    "Misuse of @end: buffer has not been checked yet.",
			Context: m.excerpt(),
		}
	}
	if m.line != len(m.data)-1 {
		return &result.Failure{Desc: "Expected end of buffer.", Context: m.excerpt()}
	}
	return nil
}

func (m *Manager) excerpt() result.Context {
	if !m.loaded || !m.hasRange {
		return result.Context{}
	}
	return result.Context{Buffer: &result.BufferExcerpt{
		Buffer: m.buffer,
		Lines:  slices.Clone(m.data),
		Line:   m.line,
		Start:  m.lastStart,
		End:    m.lastEnd,
	}}
}

// View is one lazy walk over a resolved line range.
type View struct {
	m   *Manager
	pos int
	end int
}

// Next returns the next line of the range, advancing the cursor. ok is false
// once the range is exhausted. Walking past the real end of the buffer fails
// with the shortage recorded at the cursor.
func (v *View) Next() (string, bool, error) {
	if v.pos >= v.end {
		return "", false, nil
	}
	i := v.pos
	v.pos++
	v.m.line = i
	if i >= len(v.m.data) {
		return "", false, &result.Failure{
			Desc:    "Unexpected end of buffer.",
			Context: v.m.excerpt(),
		}
	}
	return v.m.data[i], true, nil
}
