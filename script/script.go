// Package script parses the literate test DSL: it classifies raw lines into
// typed actions, parses trailing control blocks, and expands macros, feeding
// the execution engine a lazy stream of actions.
//
// The grammar in short: lines indented by two spaces are scripted, everything
// else is prose. A fixed prefix picks the line kind ("  > " input, "  % "
// text, "  :" ex-command, "  ~ " message, "  ! " system call, "  $ " hijack
// response, "  & " buffer output, "  |" continuation, "  @" directive) and an
// optional trailing " (...)" holds whitespace-separated control words.
package script

import "fmt"

// ParseError reports a malformed script line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// ConfigError reports a structurally invalid script, syntax notwithstanding.
type ConfigError struct {
	Line int
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}
