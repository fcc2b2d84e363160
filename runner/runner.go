package runner

import (
	"context"
	"strings"
	"time"

	"github.com/google/vroom/buffer"
	"github.com/google/vroom/config"
	"github.com/google/vroom/editor"
	"github.com/google/vroom/messages"
	"github.com/google/vroom/result"
	"github.com/google/vroom/script"
	"github.com/google/vroom/shell"
)

//go:generate mockgen -destination=harnessmocks_test.go -package=runner_test -source=runner.go Harness

// Harness is the engine's view of the fake-shell rendezvous: register the
// pending hijacks before a command transmits, verify the call log after it
// settles.
type Harness interface {
	Control(hijacks []*shell.Hijack) error
	Verify(strictness script.Strictness) error
}

var _ Harness = &shell.Communicator{}

// Runner executes one script file against a live editor session. Commands
// accumulate in a queue and are transmitted at flush points: a directive, an
// output assertion, or end of file.
type Runner struct {
	cfg        config.Config
	session    editor.Session
	harness    Harness
	buffer     *buffer.Manager
	reconciler *messages.Reconciler
	logs       *Logs

	messageStrictness script.Strictness
	systemStrictness  script.Strictness

	queue   []*Command
	lineno  int
	running *Command
	report  *Report
}

func New(cfg config.Config, session editor.Session, harness Harness, logs *Logs) *Runner {
	return &Runner{
		cfg:               cfg,
		session:           session,
		harness:           harness,
		buffer:            buffer.NewManager(session),
		reconciler:        messages.NewReconciler(logs.Messages),
		logs:              logs,
		messageStrictness: script.Strictness(cfg.MessageStrictness),
		systemStrictness:  script.Strictness(cfg.SystemStrictness),
	}
}

// Run executes the script and always returns a report; the session is quit
// (or killed) before returning. A failure or error on one segment aborts the
// remainder of the file, never the process.
func (r *Runner) Run(ctx context.Context, filename string, lines []string) *Report {
	r.report = &Report{Filename: filename, Logs: r.logs}

	defer func() {
		if !r.session.Quit(ctx) {
			r.session.Kill()
		}
	}()

	if err := r.session.Start(ctx); err != nil {
		r.record(result.StatusError, err)
		return r.report
	}

	if err := r.play(ctx, lines); err != nil {
		r.record(statusFor(err), err)
	} else {
		r.record(result.StatusPassed, nil)
	}
	return r.report
}

func (r *Runner) play(ctx context.Context, lines []string) error {
	stream := script.NewStream(lines)
	for {
		action, ok, err := stream.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		r.lineno = action.Line
		if err := r.apply(ctx, action); err != nil {
			return err
		}
	}
	return r.flush(ctx)
}

func (r *Runner) apply(ctx context.Context, action script.Action) error {
	switch action.Kind {
	case script.KindPass:
		// A blank line invalidates the buffer snapshot and demarcates
		// shell interactions.
		r.buffer.Unload()
		r.current().LineBreak()
		return nil

	case script.KindInput:
		r.push(action.Text, action.Controls.Delay)
		return nil

	case script.KindText:
		r.push("i"+action.Text+"<ESC>", action.Controls.Delay)
		return nil

	case script.KindCommand:
		r.push(":"+action.Text+"<CR>", action.Controls.Delay)
		return nil

	// Empty modes flow through untouched; messages default to verbatim
	// while shell expectations default to regex.
	case script.KindMessage:
		r.current().ExpectMessage(action.Text, action.Controls.Mode)
		return nil

	case script.KindSystem:
		r.current().ExpectSyscall(action.Text, action.Controls.Mode)
		return nil

	case script.KindHijack:
		cmd := r.current()
		for _, line := range strings.Split(action.Text, "\n") {
			if err := cmd.RespondToSyscall(line, action.Controls.Channel); err != nil {
				return err
			}
		}
		return nil

	case script.KindDirective:
		return r.direct(ctx, action)

	case script.KindOutput:
		if err := r.flush(ctx); err != nil {
			return err
		}
		return r.buffer.Verify(ctx, action.Text, action.Controls)
	}
	return nil
}

func (r *Runner) direct(ctx context.Context, action script.Action) error {
	if err := r.flush(ctx); err != nil {
		return err
	}

	switch action.Text {
	case script.DirClear:
		// A clear ends one self-contained test segment: tally a pass
		// and reset the editor for the next one.
		r.report.record(result.StatusPassed, r.lineno, nil)
		r.buffer.Unload()
		return r.session.Clear(ctx)

	case script.DirEnd:
		return r.buffer.EnsureAtEnd(ctx, action.Controls)

	case script.DirMessages:
		if action.Controls.MessageStrictness != "" {
			r.messageStrictness = action.Controls.MessageStrictness
		} else {
			r.messageStrictness = script.Strictness(r.cfg.MessageStrictness)
		}
		return nil

	case script.DirSystem:
		if action.Controls.SystemStrictness != "" {
			r.systemStrictness = action.Controls.SystemStrictness
		} else {
			r.systemStrictness = script.Strictness(r.cfg.SystemStrictness)
		}
		return nil
	}
	return nil
}

// flush runs every queued command in order, stopping at the first command
// whose verification fails.
func (r *Runner) flush(ctx context.Context) error {
	if len(r.queue) == 0 {
		return nil
	}
	queue := r.queue
	r.queue = nil
	r.buffer.Unload()

	for _, cmd := range queue {
		// running stays set on failure so the outcome is attributed to
		// the failing command's line.
		r.running = cmd
		if err := r.execute(ctx, cmd); err != nil {
			return err
		}
	}
	r.running = nil
	return nil
}

func (r *Runner) execute(ctx context.Context, cmd *Command) error {
	if cmd.Empty() {
		return nil
	}

	if len(cmd.hijacks) > 0 {
		if err := r.harness.Control(cmd.hijacks); err != nil {
			return err
		}
	}

	before, err := r.session.GetMessages(ctx)
	if err != nil {
		return err
	}

	if cmd.content != "" {
		delay := r.cfg.Delay() + cmd.delay
		if len(cmd.hijacks) > 0 {
			delay += r.cfg.ShellDelay()
		}
		if err := r.session.Communicate(ctx, cmd.content, delay); err != nil {
			return err
		}
	}

	after, err := r.session.GetMessages(ctx)
	if err != nil {
		return err
	}

	// Both channels are checked even when the first fails, so one flush
	// point reports everything it found.
	failures := result.NewFailures()
	commands := r.logs.Commands.Strings()
	if err := r.reconciler.Verify(before, after, cmd.expectations, r.messageStrictness, commands); err != nil {
		if !isFailure(err) {
			return err
		}
		failures.Add(err)
	}
	if err := r.harness.Verify(r.systemStrictness); err != nil {
		if !isFailure(err) {
			return err
		}
		failures.Add(err)
	}

	if failures.Empty() {
		return nil
	}
	if !failures.Significant() {
		r.report.diagnose(failures.Flattened())
		return nil
	}
	return failures.Err()
}

// current returns the command new expectations attach to, pushing an empty
// one when expectations precede any command.
func (r *Runner) current() *Command {
	if len(r.queue) == 0 {
		r.push("", 0)
	}
	return r.queue[len(r.queue)-1]
}

func (r *Runner) push(content string, delay time.Duration) {
	r.queue = append(r.queue, newCommand(content, r.lineno, delay))
}

func (r *Runner) record(status result.Status, err error) {
	line := r.lineno
	if r.running != nil {
		line = r.running.line
	}
	switch e := err.(type) {
	case *script.ParseError:
		line = e.Line
	case *script.ConfigError:
		line = e.Line
	}
	r.report.record(status, line, err)
}

func statusFor(err error) result.Status {
	if isFailure(err) {
		return result.StatusFailed
	}
	return result.StatusError
}

func isFailure(err error) bool {
	switch err.(type) {
	case *result.Failure, *result.Failures:
		return true
	}
	return false
}
