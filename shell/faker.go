package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/vroom/trace"
)

// DefaultShell is the real shell the faker delegates to.
const DefaultShell = "/bin/sh"

// Faker is the sibling-process side of the hijack protocol. The editor is
// told to use the vroomfaker binary as its shell; every command the editor
// issues lands in Handle, which consults the control list and either lets the
// call through to the real shell or swaps in a scripted response.
//
// A faker-internal fault is reported on the error file and then fails open by
// running the real command, so a broken harness never hangs the editor.
type Faker struct {
	files     Files
	responder string
	shell     string
	runner    Runner
	stdout    io.Writer
	stderr    io.Writer
}

// NewFaker builds a faker over the given IPC files. responder is the command
// used to re-enter this binary in respond mode.
func NewFaker(files Files, responder string) *Faker {
	return &Faker{
		files:     files,
		responder: responder,
		shell:     DefaultShell,
		runner:    NewExecRunner(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

func (f *Faker) WithShell(shell string) *Faker {
	f.shell = shell
	return f
}

func (f *Faker) WithRunner(runner Runner) *Faker {
	f.runner = runner
	return f
}

func (f *Faker) WithOutput(stdout, stderr io.Writer) *Faker {
	f.stdout = stdout
	f.stderr = stderr
	return f
}

// Handle processes one shell command issued by the editor and returns the
// exit status the editor should see.
func (f *Faker) Handle(ctx context.Context, command string) int {
	usercmd, rebuild := SplitCommand(command)
	final, err := f.decide(usercmd, rebuild, command)
	if err != nil {
		f.fault(err)
		final = command
	}
	return f.passthrough(ctx, final)
}

// decide consults the control list and returns the command to actually run.
func (f *Faker) decide(usercmd string, rebuild func(string) string, command string) (string, error) {
	if err := f.appendLog(trace.Entry{Kind: trace.Received, Text: usercmd}); err != nil {
		return "", err
	}

	controls, err := ReadControl(f.files.Control)
	if err != nil {
		return "", err
	}
	if len(controls) == 0 {
		if err := f.appendLog(trace.Entry{Kind: trace.Unexpected, Text: usercmd}); err != nil {
			return "", err
		}
		return command, nil
	}

	pending := controls[0]
	response, ok, err := pending.Response(usercmd)
	if err != nil {
		return "", err
	}
	if !ok {
		// The pending expectation stays; this call just falls through.
		if err := f.appendLog(trace.Entry{Kind: trace.Unexpected, Text: usercmd}); err != nil {
			return "", err
		}
		return command, nil
	}

	if err := WriteControl(f.files.Control, controls[1:]); err != nil {
		return "", err
	}
	if pending.HasPattern {
		if err := f.appendLog(trace.NewMatched(pending.Pattern, string(pending.Mode))); err != nil {
			return "", err
		}
	}
	if response.Empty() {
		return command, nil
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return "", err
	}
	if err := f.appendLog(trace.Entry{Kind: trace.Responded, Text: pending.String()}); err != nil {
		return "", err
	}
	return rebuild(fmt.Sprintf("%s -respond %s", f.responder, Quote(string(payload)))), nil
}

// Respond executes a scripted response payload: command lines run through the
// real shell first, then stdout and stderr lines are emitted, and the exit
// status is the scripted one, the last command's, or zero, in that order.
func (f *Faker) Respond(ctx context.Context, payload string) int {
	var response Response
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		f.fault(fmt.Errorf("malformed response payload: %w", err))
		return 1
	}

	status := 0
	for _, command := range response.Commands {
		status = f.passthrough(ctx, command)
	}
	if len(response.Stdout) > 0 {
		fmt.Fprintln(f.stdout, strings.Join(response.Stdout, "\n"))
	}
	if len(response.Stderr) > 0 {
		fmt.Fprintln(f.stderr, strings.Join(response.Stderr, "\n"))
	}
	if response.Status != nil {
		status = *response.Status
	}
	return status
}

// passthrough runs command through the real shell, relaying its output.
func (f *Faker) passthrough(ctx context.Context, command string) int {
	run, err := f.runner.Run(ctx, nil, f.shell, "-c", command)
	if err != nil {
		f.fault(err)
		return 1
	}
	if run.Stdout != "" {
		io.WriteString(f.stdout, run.Stdout)
	}
	if run.Stderr != "" {
		io.WriteString(f.stderr, run.Stderr)
	}
	return run.ExitCode
}

func (f *Faker) appendLog(entry trace.Entry) error {
	entries, err := ReadLog(f.files.Log)
	if err != nil {
		return err
	}
	return WriteLog(f.files.Log, append(entries, entry))
}

// fault reports a harness-internal error on the error file. Failures to
// report are swallowed: there is nobody left to tell.
func (f *Faker) fault(err error) {
	existing, readErr := ReadErrors(f.files.Error)
	if readErr != nil {
		existing = nil
	}
	_ = WriteErrors(f.files.Error, append(existing, err.Error()))
}
