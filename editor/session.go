// Package editor holds the contract for a live editor session and a lean
// client-server adapter for vim. Every call is a blocking synchronous round
// trip; completion is approximated by configured settle delays, never by a
// completion signal.
package editor

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockgen -destination=../runner/sessionmocks_test.go -package=runner_test github.com/google/vroom/editor Session

// Session drives one externally-running editor process. A buffer number of 0
// means whichever buffer is currently on screen.
type Session interface {
	Start(ctx context.Context) error
	Communicate(ctx context.Context, content string, delay time.Duration) error
	Ask(ctx context.Context, expr string) (string, error)
	GetBufferLines(ctx context.Context, buffer int) ([]string, error)
	GetCurrentLine(ctx context.Context) (int, error)
	GetMessages(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Quit(ctx context.Context) bool
	Kill()
}

// QuitError means the editor session died or stopped responding. It aborts
// the remaining actions of the current file, never the whole run.
type QuitError struct {
	Reason string
}

func (e *QuitError) Error() string {
	return e.Reason
}

func serverQuit() *QuitError {
	return &QuitError{Reason: "Editor server process quit unexpectedly"}
}

func errorOnExit(text string) *QuitError {
	return &QuitError{Reason: fmt.Sprintf("Editor quit unexpectedly, saying %q", text)}
}

func invalidExpression(expr string) *QuitError {
	return &QuitError{Reason: fmt.Sprintf("Editor failed to evaluate expression %q", expr)}
}

func noDisplay() *QuitError {
	return &QuitError{Reason: "Editor failed to access the display"}
}
