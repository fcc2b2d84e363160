// Package shell implements both sides of the fake-shell hijack protocol. The
// engine queues Hijack records on a control file, the sibling vroomfaker
// process consumes them as the editor issues real shell commands, and the two
// meet again at verification time over a call log and an error file.
package shell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/vroom/script"
)

// Environment variable names shared with the vroomfaker process.
const (
	VroomfileEnv   = "VROOMFILE"
	VroomdirEnv    = "VROOMDIR"
	ControlFileEnv = "VROOM_SHELL_CONTROLFILE"
	LogFileEnv     = "VROOM_SHELL_LOGFILE"
	ErrorFileEnv   = "VROOM_SHELL_ERRORFILE"
)

// DefaultMode is the match mode hijack expectations use when none is given.
// Unlike everywhere else in the script grammar, shell expectations default to
// regex.
const DefaultMode = script.ModeRegex

// Hijack tells the fake shell what to do about one system call: an optional
// expectation of the call text, plus any number of scripted responses. With no
// expectation it matches any command; with no responses the matched command is
// allowed through unmodified.
//
// A hijack is open until a line break or a new expectation closes it, which is
// how consecutive response lines are told apart from responses to separate
// calls.
type Hijack struct {
	Pattern    string      `json:"pattern"`
	HasPattern bool        `json:"has_pattern"`
	Mode       script.Mode `json:"mode"`
	Commands   []string    `json:"command,omitempty"`
	Stdout     []string    `json:"stdout,omitempty"`
	Stderr     []string    `json:"stderr,omitempty"`
	Status     *int        `json:"status,omitempty"`

	closed bool
}

// Expect builds a hijack that expects a call matching pattern under mode.
func Expect(pattern string, mode script.Mode) *Hijack {
	if mode == "" {
		mode = DefaultMode
	}
	return &Hijack{Pattern: pattern, HasPattern: true, Mode: mode}
}

// Anything builds a hijack that matches whatever call comes next.
func Anything() *Hijack {
	return &Hijack{Mode: DefaultMode}
}

// Open reports whether the hijack still accepts responses.
func (h *Hijack) Open() bool {
	return !h.closed
}

// Close stops the hijack from accepting further responses.
func (h *Hijack) Close() {
	h.closed = true
}

// HasResponse reports whether any response was scripted.
func (h *Hijack) HasResponse() bool {
	return len(h.Commands) > 0 || len(h.Stdout) > 0 || len(h.Stderr) > 0 || h.Status != nil
}

// Respond queues line on the given output channel. An empty channel means
// stdout. The status channel takes a single numeric value.
func (h *Hijack) Respond(line string, channel script.Channel) error {
	switch channel {
	case script.ChannelCommand:
		h.Commands = append(h.Commands, line)
	case script.ChannelStdout, "":
		h.Stdout = append(h.Stdout, line)
	case script.ChannelStderr:
		h.Stderr = append(h.Stderr, line)
	case script.ChannelStatus:
		if h.Status != nil {
			return &script.ParseError{Msg: "A system call cannot return two statuses!"}
		}
		status, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			return &script.ParseError{Msg: "Returned status must be a number."}
		}
		h.Status = &status
		return nil
	default:
		return &script.ParseError{Msg: fmt.Sprintf("Unrecognized output channel %q", channel)}
	}
	return nil
}

// Response is what the fake shell should do in place of one real call.
type Response struct {
	Commands []string `json:"command,omitempty"`
	Stdout   []string `json:"stdout,omitempty"`
	Stderr   []string `json:"stderr,omitempty"`
	Status   *int     `json:"status,omitempty"`
}

// Empty reports whether the response changes anything about the call.
func (r *Response) Empty() bool {
	return len(r.Commands) == 0 && len(r.Stdout) == 0 && len(r.Stderr) == 0 && r.Status == nil
}

// Response binds the hijack against a real call. ok is false iff the hijack
// has a pattern and the call fails to match it. Otherwise every queued
// command, stdout and stderr line is produced by regex-substituting the call
// into the line, so match groups bind when the expectation was a regex.
//
// The substitution happens regardless of the declared match mode: this forces
// group references to be escaped consistently, so a test keeps working when
// its match mode later changes to regex.
func (h *Hijack) Response(call string) (*Response, bool, error) {
	if h.HasPattern {
		matched, err := script.Match(h.Pattern, h.Mode, call)
		if err != nil {
			return nil, false, err
		}
		if !matched {
			return nil, false, nil
		}
	}

	binder := regexp.MustCompile(`^.*$`)
	if h.HasPattern && h.Mode == script.ModeRegex && h.Pattern != "" {
		re, err := regexp.Compile(h.Pattern)
		if err != nil {
			return nil, false, &script.ParseError{Msg: fmt.Sprintf("Can't match command. Invalid regex. %v", err)}
		}
		binder = re
	}

	bind := func(lines []string) []string {
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			out = append(out, binder.ReplaceAllString(call, line))
		}
		return out
	}

	response := &Response{
		Commands: bind(h.Commands),
		Stdout:   bind(h.Stdout),
		Stderr:   bind(h.Stderr),
		Status:   h.Status,
	}
	return response, true, nil
}

// String renders the hijack the way verification failures quote it.
func (h *Hijack) String() string {
	var b strings.Builder
	rejoiner := "\n\t"
	if h.HasPattern {
		fmt.Fprintf(&b, " EXPECT:\t%s (%s mode)\n", h.Pattern, h.Mode)
	}
	if len(h.Commands) > 0 {
		fmt.Fprintf(&b, "COMMAND:\t%s\n", strings.Join(h.Commands, rejoiner))
	}
	if len(h.Stdout) > 0 {
		fmt.Fprintf(&b, " STDOUT:\t%s\n", strings.Join(h.Stdout, rejoiner))
	}
	if len(h.Stderr) > 0 {
		fmt.Fprintf(&b, " STDERR:\t%s\n", strings.Join(h.Stderr, rejoiner))
	}
	if h.Status != nil {
		fmt.Fprintf(&b, " STATUS:\t%d\n", *h.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Quote escapes a string for use as a single shell word.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// SplitCommand parses the user's command out of the editor's shell wrapper.
// The editor says things like
//
//	/path/to/$SHELL -c '(cmd args) < /tmp/in > /tmp/out'
//
// and we want just the "cmd args" part. This is a simple parser that grabs the
// first parenthesis block, avoiding nested parens, escaped parens, and parens
// inside strings. It returns the inner command and a function that rebuilds
// the full wrapper around a replacement command, preserving redirections.
func SplitCommand(s string) (string, func(string) string) {
	if strings.HasPrefix(s, "(") {
		var stack []byte
		for i := 0; i < len(s); i++ {
			ch := s[i]
			top := byte(0)
			if len(stack) > 0 {
				top = stack[len(stack)-1]
			}
			switch {
			case top == '\\':
				stack = stack[:len(stack)-1]
			case top == '"' && ch == '"':
				stack = stack[:len(stack)-1]
			case top == '\'' && ch == '\'':
				stack = stack[:len(stack)-1]
			case top == '(' && ch == ')':
				stack = stack[:len(stack)-1]
			case ch == '\\' || ch == '\'' || ch == '(' || ch == '"':
				stack = append(stack, ch)
			}
			if len(stack) == 0 {
				inner := s[1:i]
				suffix := s[i:]
				return inner, func(cmd string) string { return "(" + cmd + suffix }
			}
		}
	}
	return s, func(cmd string) string { return cmd }
}
