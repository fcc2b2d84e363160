package integration_test

import (
	"context"
	"strings"
	"time"

	"github.com/google/vroom/editor"
	"github.com/google/vroom/shell"
)

// fakeEditor is a scripted in-memory Session: buffers and messages are plain
// slices, and onSend lets a test react to transmitted content the way a real
// editor would (append messages, rewrite buffers, spawn the fake shell).
type fakeEditor struct {
	started  bool
	quit     bool
	killed   bool
	buffers  map[int][]string
	messages []string
	sent     []string
	onSend   func(content string)
}

var _ editor.Session = &fakeEditor{}

func newFakeEditor() *fakeEditor {
	return &fakeEditor{buffers: map[int][]string{}}
}

func (f *fakeEditor) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func (f *fakeEditor) Communicate(ctx context.Context, content string, delay time.Duration) error {
	f.sent = append(f.sent, content)
	if f.onSend != nil {
		f.onSend(content)
	}
	return nil
}

func (f *fakeEditor) Ask(ctx context.Context, expr string) (string, error) {
	return "", nil
}

func (f *fakeEditor) GetBufferLines(ctx context.Context, buffer int) ([]string, error) {
	return append([]string(nil), f.buffers[buffer]...), nil
}

func (f *fakeEditor) GetCurrentLine(ctx context.Context) (int, error) {
	return 1, nil
}

func (f *fakeEditor) GetMessages(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.messages...), nil
}

func (f *fakeEditor) Clear(ctx context.Context) error {
	f.messages = nil
	return nil
}

func (f *fakeEditor) Quit(ctx context.Context) bool {
	f.quit = true
	return true
}

func (f *fakeEditor) Kill() {
	f.killed = true
}

// recordingRunner captures what the faker would have executed instead of
// spawning real processes.
type recordingRunner struct {
	commands []string
}

var _ shell.Runner = &recordingRunner{}

func (r *recordingRunner) Run(ctx context.Context, env []string, name string, args ...string) (shell.RunResult, error) {
	r.commands = append(r.commands, strings.Join(append([]string{name}, args...), " "))
	return shell.RunResult{}, nil
}
