package shell

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

//go:generate mockgen -destination=runnermocks_test.go -package=shell_test github.com/google/vroom/shell Runner

// Runner executes one external command and captures its outcome.
type Runner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (RunResult, error)
}

// RunResult is the captured outcome of one command.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Ensure ExecRunner implements the Runner interface
var _ Runner = &ExecRunner{}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, env []string, name string, args ...string) (RunResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	if env != nil {
		cmd.Env = env
	}

	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	err := cmd.Run()

	exit := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			exit = ee.ExitCode()
		} else {
			return RunResult{}, err
		}
	}

	return RunResult{
		Stdout:   outb.String(),
		Stderr:   errb.String(),
		ExitCode: exit,
		Duration: time.Since(start),
	}, nil
}
