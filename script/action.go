package script

import (
	"fmt"
	"strings"
)

// Kind classifies one script line.
type Kind string

const (
	KindComment      Kind = "comment"
	KindPass         Kind = "pass"
	KindInput        Kind = "input"
	KindCommand      Kind = "command"
	KindText         Kind = "text"
	KindContinuation Kind = "continuation"
	KindDirective    Kind = "directive"
	KindMessage      Kind = "message"
	KindSystem       Kind = "system"
	KindHijack       Kind = "hijack"
	KindOutput       Kind = "output"
)

// Directive words. A directive action's Text starts with one of these; the
// macro family is consumed by the stream and never reaches the engine.
const (
	DirClear    = "clear"
	DirEnd      = "end"
	DirMessages = "messages"
	DirSystem   = "system"
	DirMacro    = "macro"
	DirEndmacro = "endmacro"
	DirDo       = "do"
)

const (
	directivePrefix = "  @"
	emptyLineCheck  = "  &"
)

// Action is one classified script line.
type Action struct {
	Line     int
	Kind     Kind
	Text     string
	Controls Controls
}

type prefixRule struct {
	kind    Kind
	prefix  string
	options []Option
}

var prefixRules = []prefixRule{
	{KindInput, "  > ", []Option{OptionDelay}},
	{KindText, "  % ", []Option{OptionDelay}},
	{KindCommand, "  :", []Option{OptionDelay}},
	{KindMessage, "  ~ ", []Option{OptionMode}},
	{KindSystem, "  ! ", []Option{OptionMode}},
	{KindHijack, "  $ ", []Option{OptionOutputChannel}},
	{KindOutput, "  & ", []Option{OptionBuffer, OptionRange, OptionMode}},
}

var outputOptions = []Option{OptionBuffer, OptionRange, OptionMode}

// Classify parses a single raw script line into an action. The line number
// is left for the caller to fill in.
//
// Precedence: blank is a Pass, non-indented is prose, the continuation
// prefix is reserved before anything else, "@clear" is recognized before
// control splitting, then directives, then the fixed prefixes, and anything
// else indented is a buffer output check.
func Classify(line string) (Action, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	if line == "" {
		return Action{Kind: KindPass}, nil
	}
	if !strings.HasPrefix(line, "  ") {
		return Action{Kind: KindComment, Text: line}, nil
	}

	// Continuations never carry control blocks; a trailing "(...)" is kept
	// as literal text.
	if strings.HasPrefix(line, "  |") {
		return Action{Kind: KindContinuation, Text: line[3:]}, nil
	}

	if line == directivePrefix+DirClear {
		return Action{Kind: KindDirective, Text: DirClear}, nil
	}

	body, raw, present := SplitControls(line)

	parse := func(options ...Option) (Controls, error) {
		c, err := ParseControls(raw, options...)
		if err != nil {
			return Controls{}, err
		}
		c.Present = present
		return c, nil
	}

	if strings.HasPrefix(body, directivePrefix) {
		directive := body[len(directivePrefix):]
		word := directive
		if i := strings.IndexByte(directive, ' '); i >= 0 {
			word = directive[:i]
		}
		switch {
		case directive == DirEnd:
			c, err := parse(OptionBuffer)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: KindDirective, Text: directive, Controls: c}, nil
		case directive == DirMessages:
			c, err := parse(OptionMessageStrictness)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: KindDirective, Text: directive, Controls: c}, nil
		case directive == DirSystem:
			c, err := parse(OptionSystemStrictness)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: KindDirective, Text: directive, Controls: c}, nil
		case directive == DirEndmacro, word == DirMacro, word == DirDo:
			if words := strings.Fields(raw); len(words) > 0 {
				return Action{}, &ParseError{Msg: fmt.Sprintf("Unrecognized control word %q", words[0])}
			}
			return Action{Kind: KindDirective, Text: directive, Controls: Controls{Present: present}}, nil
		}
		return Action{}, &ParseError{Msg: fmt.Sprintf("Unrecognized directive %q", directive)}
	}

	for _, rule := range prefixRules {
		if strings.HasPrefix(body, rule.prefix) {
			c, err := parse(rule.options...)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: rule.kind, Text: body[len(rule.prefix):], Controls: c}, nil
		}
	}

	// Bare "  &" checks for an empty buffer line with no trailing whitespace.
	if body == emptyLineCheck {
		c, err := parse(outputOptions...)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: KindOutput, Controls: c}, nil
	}

	c, err := parse(outputOptions...)
	if err != nil {
		return Action{}, err
	}
	return Action{Kind: KindOutput, Text: body[2:], Controls: c}, nil
}
