package script

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Option names one kind of control word. The caller of ParseControls decides
// which options a line admits and in which precedence order words are tried.
type Option string

const (
	OptionBuffer            Option = "buffer"
	OptionRange             Option = "range"
	OptionMode              Option = "mode"
	OptionDelay             Option = "delay"
	OptionMessageStrictness Option = "messages"
	OptionSystemStrictness  Option = "system"
	OptionOutputChannel     Option = "channel"
)

// Mode selects how expected text is compared against observed text.
type Mode string

const (
	ModeRegex    Mode = "regex"
	ModeGlob     Mode = "glob"
	ModeVerbatim Mode = "verbatim"
)

// DefaultMode applies wherever a line admits a mode control but none is given.
const DefaultMode = ModeVerbatim

// Strictness is the configured sensitivity to unexpected messages or calls.
type Strictness string

const (
	Strict      Strictness = "STRICT"
	Relaxed     Strictness = "RELAXED"
	GuessErrors Strictness = "GUESS-ERRORS"
)

// Channel names one output stream a hijack response is delivered on.
type Channel string

const (
	ChannelCommand Channel = "command"
	ChannelStdout  Channel = "stdout"
	ChannelStderr  Channel = "stderr"
	ChannelStatus  Channel = "status"
)

// EndKind says how a Span's end is computed from its resolved start.
type EndKind int

const (
	EndDefault  EndKind = iota // exactly one line
	EndAbsolute                // through line End
	EndRelative                // End more lines past the start
	EndOfBuffer                // through the last line
)

// Span is a parsed range control word. Start is 1-based; 0 means unset, in
// which case the verifier continues one past its cursor. Cursor selects the
// editor's live cursor line instead.
type Span struct {
	Start   int
	Cursor  bool
	EndKind EndKind
	End     int
}

// Controls holds the parsed control words of one line. Zero values mean the
// option was not given; Present records whether a control block existed at
// all, which matters for hijack-line merging.
type Controls struct {
	Buffer            int
	HasBuffer         bool
	Span              Span
	Mode              Mode
	Delay             time.Duration
	MessageStrictness Strictness
	SystemStrictness  Strictness
	Channel           Channel
	Present           bool
}

var (
	bufferWordRe = regexp.MustCompile(`^(\d+)$`)
	rangeWordRe  = regexp.MustCompile(`^(\.|\d+)?(?:,(\+)?(\$|\d+)?)?$`)
	delayWordRe  = regexp.MustCompile(`^(\d+(?:\.\d+)?)s?$`)
	controlBlock = regexp.MustCompile(`^(  .*) \(\s*([%><='"\w.+,$ -]*)\s*\)$`)
	escapedBlock = regexp.MustCompile(`^(  .*) \(&([^)]+)\)$`)
)

// SplitControls splits the trailing control block off a line. An escaped
// block "(&text)" unwraps to a literal "(text)" suffix with no controls.
func SplitControls(line string) (body, raw string, present bool) {
	if m := controlBlock.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	if m := escapedBlock.FindStringSubmatch(line); m != nil {
		return fmt.Sprintf("%s (%s)", m[1], m[2]), "", false
	}
	return line, "", false
}

// ParseControls parses a control block, trying each word against the given
// options in precedence order. A word that parses under an already-set option
// falls through to the next; a word no option accepts fails with the last
// recorded error. With no options, buffer, range, mode and delay are admitted
// in that order.
func ParseControls(raw string, options ...Option) (Controls, error) {
	if len(options) == 0 {
		options = []Option{OptionBuffer, OptionRange, OptionMode, OptionDelay}
	}

	var c Controls
	seen := make(map[Option]bool)

	for _, word := range strings.Fields(raw) {
		var lastErr error
		matched := false
		for _, option := range options {
			// Probe first: a duplicate must fall through to the next
			// option without clobbering the value already set.
			var probe Controls
			ok, err := probe.apply(option, word)
			if err != nil {
				return Controls{}, err
			}
			if !ok {
				lastErr = &ParseError{Msg: fmt.Sprintf("Unrecognized control word %q", word)}
				continue
			}
			if seen[option] {
				lastErr = &ParseError{Msg: fmt.Sprintf("Duplicated %s control %q", option, word)}
				continue
			}
			c.apply(option, word)
			seen[option] = true
			matched = true
			break
		}
		if !matched {
			return Controls{}, lastErr
		}
	}
	return c, nil
}

// apply parses word under option's grammar, reporting whether it fit. The
// error return is reserved for unknown options, which is a caller bug.
func (c *Controls) apply(option Option, word string) (bool, error) {
	switch option {
	case OptionBuffer:
		m := bufferWordRe.FindStringSubmatch(word)
		if m == nil {
			return false, nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return false, nil
		}
		c.Buffer = n
		c.HasBuffer = true
		return true, nil

	case OptionRange:
		span, ok := parseSpan(word)
		if !ok {
			return false, nil
		}
		c.Span = span
		return true, nil

	case OptionMode:
		switch Mode(word) {
		case ModeRegex, ModeGlob, ModeVerbatim:
			c.Mode = Mode(word)
			return true, nil
		}
		return false, nil

	case OptionDelay:
		m := delayWordRe.FindStringSubmatch(word)
		if m == nil {
			return false, nil
		}
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return false, nil
		}
		c.Delay = time.Duration(math.Round(seconds * float64(time.Second)))
		return true, nil

	case OptionMessageStrictness:
		switch Strictness(word) {
		case Strict, Relaxed, GuessErrors:
			c.MessageStrictness = Strictness(word)
			return true, nil
		}
		return false, nil

	case OptionSystemStrictness:
		switch Strictness(word) {
		case Strict, Relaxed:
			c.SystemStrictness = Strictness(word)
			return true, nil
		}
		return false, nil

	case OptionOutputChannel:
		switch Channel(word) {
		case ChannelCommand, ChannelStdout, ChannelStderr, ChannelStatus:
			c.Channel = Channel(word)
			return true, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("can't parse unknown control word kind: %s", option)
}

func parseSpan(word string) (Span, bool) {
	m := rangeWordRe.FindStringSubmatch(word)
	if m == nil {
		return Span{}, false
	}
	var span Span
	switch {
	case m[1] == ".":
		span.Cursor = true
	case m[1] != "":
		span.Start, _ = strconv.Atoi(m[1])
	}
	switch {
	case m[3] == "" && m[2] == "":
		span.EndKind = EndDefault
	case m[3] == "$":
		span.EndKind = EndOfBuffer
	case m[2] == "+":
		if m[3] == "" {
			// ",+" names no distance at all.
			return Span{}, false
		}
		span.EndKind = EndRelative
		span.End, _ = strconv.Atoi(m[3])
	default:
		span.EndKind = EndAbsolute
		span.End, _ = strconv.Atoi(m[3])
	}
	return span, true
}
