// Package messages reconciles the editor's message history against scripted
// expectations. The history is unreliable: the editor silently drops old
// entries once the list grows long enough, so the delta between two snapshots
// has to be guessed from their overlap.
package messages

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/google/vroom/result"
	"github.com/google/vroom/script"
	"github.com/google/vroom/trace"
)

// errorGuess spots messages that look like editor errors, used under
// GUESS-ERRORS strictness to fail only on suspicious unexpected messages.
var errorGuess = regexp.MustCompile(`^(E\d+\b|ERR(OR)?\b|Error detected while processing .*)`)

// builtinMaintainer is the second banner line the editor plants at the top of
// a fresh message history. The banner is stripped before diffing, but only
// when both snapshots carry it.
const builtinMaintainer = "Messages maintainer: Bram Moolenaar <Bram@vim.org>"

// Expectation is one scripted message check. An empty Mode means verbatim.
type Expectation struct {
	Text string
	Mode script.Mode
}

// GuessNewMessages guesses which entries of new arrived after old was taken.
// It looks for the longest suffix of old that prefixes new and returns what
// follows it. A candidate whose remainder merely replays the head of old is
// a rotation artifact, not fresh output, and is skipped. With no credible
// overlap the whole new list is returned.
func GuessNewMessages(old, new []string) []string {
	for i := range old {
		n := len(old) - i
		if n > len(new) || !slices.Equal(old[i:], new[:n]) {
			continue
		}
		rest := new[n:]
		if len(rest) > 0 && len(rest) <= len(old) && slices.Equal(old[:len(rest)], rest) {
			continue
		}
		return slices.Clone(rest)
	}
	return slices.Clone(new)
}

func startsWithBuiltin(msgs []string) bool {
	return len(msgs) >= 2 && msgs[0] == "" && msgs[1] == builtinMaintainer
}

// Reconciler matches message deltas against expectations, tracing every
// message it consumes.
type Reconciler struct {
	log *trace.Log
}

func NewReconciler(log *trace.Log) *Reconciler {
	return &Reconciler{log: log}
}

// Verify checks the messages that arrived between the old and new snapshots
// against the expectations, in order. Each unread message is logged as
// received. Expectations consume unread messages until one matches; messages
// skipped over, and messages left after the last expectation, are unexpected.
// A single trailing empty message is discarded silently, since the editor
// emits a spurious blank when leaving insert mode. How hard unexpected
// messages fail depends on strictness. All failures are aggregated; commands
// supplies recent editor commands for failure context.
func (r *Reconciler) Verify(old, new []string, expectations []Expectation, strictness script.Strictness, commands []string) error {
	if startsWithBuiltin(old) && startsWithBuiltin(new) {
		old = old[2:]
		new = new[2:]
	}
	unread := GuessNewMessages(old, new)
	for _, message := range unread {
		r.log.Add(trace.Received, message)
	}

	failures := result.NewFailures()
	for _, want := range expectations {
		mode := want.Mode
		if mode == "" {
			mode = script.DefaultMode
		}
		for {
			if len(unread) == 0 {
				expectation := fmt.Sprintf(`"%s" (%s mode)`, want.Text, mode)
				failures.Add(&result.Failure{
					Desc:    "Expected message not received:\n" + expectation,
					Context: failureContext(new, commands),
				})
				break
			}
			message := unread[0]
			unread = unread[1:]
			ok, err := script.Match(want.Text, mode, message)
			if err != nil {
				return err
			}
			if ok {
				r.log.Append(trace.NewMatched(want.Text, string(mode)))
				break
			}
			if message == "" && len(unread) == 0 {
				continue
			}
			failures.Add(r.unexpected(message, new, strictness, commands))
		}
	}

	if n := len(unread); n > 0 && unread[n-1] == "" {
		unread = unread[:n-1]
	}
	for _, message := range unread {
		failures.Add(r.unexpected(message, new, strictness, commands))
	}
	return failures.Err()
}

// unexpected records a message nobody asked for. It is a hard failure under
// STRICT, a failure under GUESS-ERRORS only when the text looks like an
// error, and a diagnostic under RELAXED.
func (r *Reconciler) unexpected(message string, new []string, strictness script.Strictness, commands []string) error {
	r.log.Add(trace.Unexpected, "")
	switch strictness {
	case script.Strict:
		return &result.Failure{
			Desc:    "Unexpected message:\n" + message,
			Context: failureContext(new, commands),
		}
	case script.Relaxed:
		return &result.Failure{
			Desc:       "Unexpected message:\n" + message,
			Diagnostic: true,
			Context:    failureContext(new, commands),
		}
	default:
		if errorGuess.MatchString(message) {
			return &result.Failure{
				Desc:    "Suspected error message:\n" + message,
				Context: failureContext(new, commands),
			}
		}
	}
	return nil
}

func failureContext(new, commands []string) result.Context {
	return result.Context{
		Messages: result.Tail(new, result.ContextSize),
		Commands: result.Tail(commands, result.ContextSize),
	}
}
