package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// blankClearCombo is the run length of blank lines that folds into a single
// synthesized clear directive.
const blankClearCombo = 3

// maxMacroDepth bounds how deep do-invocations may nest.
const maxMacroDepth = 32

var (
	macroNameRe   = regexp.MustCompile(`^\w+$`)
	placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)
)

type sourceLine struct {
	no    int
	text  string
	depth int
}

type macro struct {
	name  string
	lines []sourceLine
}

type recording struct {
	name  string
	line  int
	lines []sourceLine
}

// Stream turns raw script lines into a lazy sequence of actions. It merges
// continuations into the pending action, joins contiguous control-free
// hijack lines, folds runs of blank lines into clear directives, and records
// and expands macros. Comments and macro markers never come out of it.
type Stream struct {
	input   []sourceLine
	pos     int
	pending *Action
	held    []Action
	passRun int
	out     []Action
	macros  map[string]*macro
	rec     *recording
	err     error
	done    bool
}

// NewStream parses lines, numbered from 1.
func NewStream(lines []string) *Stream {
	input := make([]sourceLine, len(lines))
	for i, text := range lines {
		input[i] = sourceLine{no: i + 1, text: text}
	}
	return &Stream{input: input, macros: make(map[string]*macro)}
}

// Next returns the next action. ok is false once the stream is exhausted or
// broken; actions completed before a parse error are still delivered first.
func (s *Stream) Next() (Action, bool, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return Action{}, false, s.err
		}
		if s.done {
			return Action{}, false, nil
		}
		s.step()
	}
	action := s.out[0]
	s.out = s.out[1:]
	return action, true, nil
}

// step consumes one input line, or finalizes the stream at end of input.
func (s *Stream) step() {
	if s.pos >= len(s.input) {
		s.finish()
		return
	}
	line := s.input[s.pos]
	s.pos++

	if s.rec != nil {
		s.capture(line)
		return
	}

	action, err := Classify(line.text)
	if err != nil {
		s.fail(err, line.no)
		return
	}
	action.Line = line.no

	switch action.Kind {
	case KindComment:
		// Comments break blank-line runs but leave the pending action
		// alive, so a continuation may follow prose.
		s.releaseHeld()
		return

	case KindContinuation:
		if s.pending == nil {
			s.err = &ConfigError{Line: line.no, Msg: "No command to continue"}
			return
		}
		s.pending.Text += action.Text
		s.pending.Line = line.no
		return

	case KindPass:
		s.flushPending()
		s.passRun++
		if s.passRun == blankClearCombo {
			s.held = nil
			s.passRun = 0
			s.out = append(s.out, Action{Line: line.no, Kind: KindDirective, Text: DirClear})
			return
		}
		s.held = append(s.held, action)
		return
	}

	s.releaseHeld()

	if action.Kind == KindDirective {
		switch directiveWord(action.Text) {
		case DirMacro:
			s.openMacro(action, line.no)
			return
		case DirEndmacro:
			s.err = &ParseError{Line: line.no, Msg: "No macro to end"}
			return
		case DirDo:
			s.expand(action, line)
			return
		}
	}

	// Only the incoming line needs to be control-free: a bare response
	// extends the pending hijack even when that one picked a channel.
	if s.pending != nil && s.pending.Kind == KindHijack &&
		action.Kind == KindHijack && !action.Controls.Present {
		s.pending.Text = s.pending.Text + "\n" + action.Text
		s.pending.Line = line.no
		return
	}

	s.flushPending()
	s.pending = &action
}

func (s *Stream) finish() {
	if s.rec != nil {
		s.err = &ParseError{Line: s.rec.line, Msg: fmt.Sprintf("Macro %q never closed", s.rec.name)}
		s.rec = nil
	}
	s.releaseHeld()
	s.flushPending()
	s.done = true
}

func (s *Stream) fail(err error, line int) {
	switch e := err.(type) {
	case *ParseError:
		if e.Line == 0 {
			e.Line = line
		}
	case *ConfigError:
		if e.Line == 0 {
			e.Line = line
		}
	}
	s.err = err
}

func (s *Stream) flushPending() {
	if s.pending != nil {
		s.out = append(s.out, *s.pending)
		s.pending = nil
	}
}

func (s *Stream) releaseHeld() {
	s.out = append(s.out, s.held...)
	s.held = nil
	s.passRun = 0
}

// capture buffers one raw line into the open recording. Only the closing
// directive and a nested definition are recognized; everything else is kept
// verbatim with its original line number.
func (s *Stream) capture(line sourceLine) {
	text := strings.TrimSuffix(line.text, "\n")
	text = strings.TrimSuffix(text, "\r")
	if text == directivePrefix+DirEndmacro {
		s.macros[s.rec.name] = &macro{name: s.rec.name, lines: s.rec.lines}
		s.rec = nil
		return
	}
	if text == directivePrefix+DirMacro || strings.HasPrefix(text, directivePrefix+DirMacro+" ") {
		s.err = &ParseError{Line: line.no, Msg: "Macro definitions cannot nest"}
		return
	}
	s.rec.lines = append(s.rec.lines, sourceLine{no: line.no, text: text})
}

func (s *Stream) openMacro(action Action, line int) {
	name := strings.TrimSpace(strings.TrimPrefix(action.Text, DirMacro))
	if !macroNameRe.MatchString(name) {
		s.err = &ParseError{Line: line, Msg: fmt.Sprintf("Invalid macro name %q", name)}
		return
	}
	s.rec = &recording{name: name, line: line}
}

// expand splices a macro's recorded lines in front of the remaining input.
// Spliced lines keep their original recorded line numbers so diagnostics
// point into the definition, not at the call site.
func (s *Stream) expand(action Action, line sourceLine) {
	name, args, err := parseInvocation(action.Text)
	if err != nil {
		s.fail(err, line.no)
		return
	}
	m, ok := s.macros[name]
	if !ok {
		s.err = &ParseError{Line: line.no, Msg: fmt.Sprintf("Undefined macro %q", name)}
		return
	}
	depth := line.depth + 1
	if depth > maxMacroDepth {
		s.err = &ParseError{Line: line.no, Msg: "Macro expansion too deep"}
		return
	}

	spliced := make([]sourceLine, 0, len(m.lines)+len(s.input)-s.pos)
	for _, rec := range m.lines {
		spliced = append(spliced, sourceLine{no: rec.no, text: substitute(rec.text, args), depth: depth})
	}
	spliced = append(spliced, s.input[s.pos:]...)
	s.input = spliced
	s.pos = 0
}

func directiveWord(text string) string {
	if i := strings.IndexByte(text, ' '); i >= 0 {
		return text[:i]
	}
	return text
}

// parseInvocation parses "do NAME, k=v, ..." into the macro name and its
// literal argument values.
func parseInvocation(text string) (string, map[string]string, error) {
	payload := strings.TrimSpace(strings.TrimPrefix(text, DirDo))
	parts := splitArgs(payload)
	name := strings.TrimSpace(parts[0])
	if !macroNameRe.MatchString(name) {
		return "", nil, &ParseError{Msg: fmt.Sprintf("Invalid macro name %q", name)}
	}
	args := make(map[string]string)
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			return "", nil, &ParseError{Msg: fmt.Sprintf("Malformed macro argument %q", part)}
		}
		key := strings.TrimSpace(part[:eq])
		if !macroNameRe.MatchString(key) {
			return "", nil, &ParseError{Msg: fmt.Sprintf("Malformed macro argument %q", part)}
		}
		if _, dup := args[key]; dup {
			return "", nil, &ParseError{Msg: fmt.Sprintf("Duplicated macro argument %q", key)}
		}
		value, err := literalValue(strings.TrimSpace(part[eq+1:]))
		if err != nil {
			return "", nil, err
		}
		args[key] = value
	}
	return name, args, nil
}

// splitArgs splits on commas, ignoring commas inside quoted values.
func splitArgs(payload string) []string {
	var parts []string
	var b strings.Builder
	var quote byte
	escaped := false
	for i := 0; i < len(payload); i++ {
		ch := payload[i]
		switch {
		case escaped:
			b.WriteByte(ch)
			escaped = false
		case quote != 0 && ch == '\\':
			b.WriteByte(ch)
			escaped = true
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
		case ch == '"' || ch == '\'':
			quote = ch
			b.WriteByte(ch)
		case ch == ',':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteByte(ch)
		}
	}
	return append(parts, b.String())
}

// literalValue evaluates one macro argument: a quoted string, a number, or a
// boolean. Nothing else is accepted, so arguments can never smuggle code.
func literalValue(raw string) (string, error) {
	if raw == "" {
		return "", &ParseError{Msg: `Malformed macro argument value ""`}
	}
	if raw[0] == '"' || raw[0] == '\'' {
		return unquote(raw)
	}
	if raw == "true" || raw == "false" {
		return raw, nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return raw, nil
	}
	return "", &ParseError{Msg: fmt.Sprintf("Malformed macro argument value %q", raw)}
}

func unquote(raw string) (string, error) {
	quote := raw[0]
	malformed := &ParseError{Msg: fmt.Sprintf("Malformed macro argument value %s", raw)}
	if len(raw) < 2 || raw[len(raw)-1] != quote {
		return "", malformed
	}
	var b strings.Builder
	escaped := false
	for i := 1; i < len(raw)-1; i++ {
		ch := raw[i]
		switch {
		case escaped:
			switch ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(ch)
			}
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == quote:
			return "", malformed
		default:
			b.WriteByte(ch)
		}
	}
	if escaped {
		return "", malformed
	}
	return b.String(), nil
}

// substitute replaces ${key} placeholders with argument values. Unknown
// placeholders stay verbatim, so shell variables in recorded lines survive.
func substitute(text string, args map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(ph string) string {
		key := ph[2 : len(ph)-1]
		if val, ok := args[key]; ok {
			return val
		}
		return ph
	})
}
