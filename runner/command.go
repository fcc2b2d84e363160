// Package runner turns the parsed action stream into ordered editor
// interactions and drives the message, shell and buffer verifiers at every
// synchronization point.
package runner

import (
	"time"

	"github.com/google/vroom/messages"
	"github.com/google/vroom/script"
	"github.com/google/vroom/shell"
)

// Command is one editor interaction: content to transmit (possibly nothing),
// plus the message expectations and shell hijacks that must be registered
// before and verified after it runs. Expectations are written below the
// command they belong to in the script, so they attach to the most recently
// pushed command.
type Command struct {
	content      string
	line         int
	delay        time.Duration
	expectations []messages.Expectation
	hijacks      []*shell.Hijack
}

func newCommand(content string, line int, delay time.Duration) *Command {
	return &Command{content: content, line: line, delay: delay}
}

// ExpectMessage queues a message expectation.
func (c *Command) ExpectMessage(text string, mode script.Mode) {
	c.expectations = append(c.expectations, messages.Expectation{Text: text, Mode: mode})
}

// ExpectSyscall opens a new shell expectation, closing the previous one.
func (c *Command) ExpectSyscall(pattern string, mode script.Mode) {
	if n := len(c.hijacks); n > 0 {
		c.hijacks[n-1].Close()
	}
	c.hijacks = append(c.hijacks, shell.Expect(pattern, mode))
}

// RespondToSyscall queues a response line on the trailing shell expectation,
// opening a match-anything one when none is open.
func (c *Command) RespondToSyscall(line string, channel script.Channel) error {
	n := len(c.hijacks)
	if n == 0 || !c.hijacks[n-1].Open() {
		c.hijacks = append(c.hijacks, shell.Anything())
		n++
	}
	return c.hijacks[n-1].Respond(line, channel)
}

// LineBreak closes the trailing shell expectation: a blank line in the script
// demarcates separate shell interactions.
func (c *Command) LineBreak() {
	if n := len(c.hijacks); n > 0 {
		c.hijacks[n-1].Close()
	}
}

// Empty reports whether executing the command would be a no-op. Empty
// commands are skipped with zero editor round trips.
func (c *Command) Empty() bool {
	return c.content == "" && len(c.expectations) == 0 && len(c.hijacks) == 0
}
