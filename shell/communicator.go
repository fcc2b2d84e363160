package shell

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/vroom/internal"
	"github.com/google/vroom/result"
	"github.com/google/vroom/script"
	"github.com/google/vroom/trace"
	"go.uber.org/zap"
)

// HarnessError means the fake shell itself is broken. It is a fatal condition
// for the current file, distinct from a test failure.
type HarnessError struct {
	Errors []string
}

func (e *HarnessError) Error() string {
	return "The fake shell is not working as anticipated."
}

// Communicator is the engine's side of the hijack IPC. It owns a scratch
// directory holding the three protocol files and releases it on Close.
type Communicator struct {
	dir      string
	files    Files
	env      []string
	syscalls *trace.Log
	commands *trace.Log
	copied   int
}

// NewCommunicator creates the IPC files for one test file run and prepares
// the environment the editor process must inherit. syscalls and commands are
// the diagnostic logs new call-log entries and recent commands are reported
// through.
func NewCommunicator(filename string, syscalls, commands *trace.Log) (*Communicator, error) {
	dir, err := os.MkdirTemp("", internal.GenerateUniqueSlug("vroom-shell-"))
	if err != nil {
		return nil, err
	}
	files := InDir(dir)
	for _, setup := range []error{
		WriteControl(files.Control, nil),
		WriteLog(files.Log, nil),
		WriteErrors(files.Error, nil),
	} {
		if setup != nil {
			os.RemoveAll(dir)
			return nil, setup
		}
	}

	scriptDir := filepath.Dir(filename)
	c := &Communicator{
		dir:      dir,
		files:    files,
		syscalls: syscalls,
		commands: commands,
		env: []string{
			VroomfileEnv + "=" + filename,
			VroomdirEnv + "=" + scriptDir,
			ControlFileEnv + "=" + files.Control,
			LogFileEnv + "=" + files.Log,
			ErrorFileEnv + "=" + files.Error,
		},
	}
	zap.S().Debugf("shell hijack files created in %s", dir)
	return c, nil
}

// Env returns the environment entries the editor process needs so that the
// fake shell it spawns can find the IPC files.
func (c *Communicator) Env() []string {
	return c.env
}

// Files exposes the IPC file set, mostly for tests.
func (c *Communicator) Files() Files {
	return c.files
}

// Control appends hijacks to the pending control list.
func (c *Communicator) Control(hijacks []*Hijack) error {
	existing, err := ReadControl(c.files.Control)
	if err != nil {
		return &HarnessError{Errors: []string{err.Error()}}
	}
	return WriteControl(c.files.Control, append(existing, hijacks...))
}

// Verify checks that system calls were caught and handled satisfactorily. New
// call-log entries are copied into the syscall trace; a non-empty error list
// is a HarnessError; a still-pending control entry is an expectation that was
// never met; under STRICT strictness any new unexpected call is a failure,
// under RELAXED it is recorded as a diagnostic. Failures are aggregated, not
// short-circuited.
func (c *Communicator) Verify(strictness script.Strictness) error {
	logs, err := ReadLog(c.files.Log)
	if err != nil {
		return &HarnessError{Errors: []string{err.Error()}}
	}
	fresh := logs[c.copied:]
	for _, entry := range fresh {
		c.syscalls.Append(entry)
	}
	c.copied = len(logs)

	shellErrors, err := ReadErrors(c.files.Error)
	if err != nil {
		return &HarnessError{Errors: []string{err.Error()}}
	}
	if len(shellErrors) > 0 {
		return &HarnessError{Errors: shellErrors}
	}

	failures := result.NewFailures()

	controls, err := ReadControl(c.files.Control)
	if err != nil {
		return &HarnessError{Errors: []string{err.Error()}}
	}
	if len(controls) > 0 {
		if err := WriteControl(c.files.Control, nil); err != nil {
			return &HarnessError{Errors: []string{err.Error()}}
		}
		missed := controls[0]
		if missed.HasPattern {
			failures.Add(&result.Failure{
				Desc:    "Expected system call not received.",
				Context: c.failureContext(),
			})
		}
		if missed.HasResponse() {
			failures.Add(&result.Failure{
				Desc:    fmt.Sprintf("Got no chance to inject response: \n%s", missed),
				Context: c.failureContext(),
			})
		}
	}

	for _, entry := range fresh {
		if entry.Kind != trace.Unexpected {
			continue
		}
		switch strictness {
		case script.Strict:
			failures.Add(&result.Failure{
				Desc:    "Unexpected system call.",
				Context: c.failureContext(),
			})
		case script.Relaxed:
			failures.Add(&result.Failure{
				Desc:       "Unexpected system call.",
				Diagnostic: true,
				Context:    c.failureContext(),
			})
		}
	}

	return failures.Err()
}

func (c *Communicator) failureContext() result.Context {
	return result.Context{
		Syscalls: c.syscalls.Tail(result.ContextSize),
		Commands: c.commands.Tail(result.ContextSize),
	}
}

// Close releases the IPC files. It is safe to call more than once.
func (c *Communicator) Close() error {
	if c.dir == "" {
		return nil
	}
	dir := c.dir
	c.dir = ""
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
