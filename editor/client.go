package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/vroom/shell"
	"github.com/google/vroom/trace"
	"go.uber.org/zap"
)

// Ensure Client implements the Session interface
var _ Session = &Client{}

// Client drives a vim server over its client-server protocol. One process
// serves one test file; every query spawns a short-lived vim client that
// talks to the long-lived server by name.
//
// Query results are cached per settle window and the cache is dropped on any
// Communicate or Clear, since those are the only calls that change editor
// state.
type Client struct {
	vimCmd    string
	vimrc     string
	name      string
	shellCmd  string
	bootstrap string
	startup   time.Duration
	clean     bool
	env       []string
	runner    shell.Runner
	clock     Clock
	commands  *trace.Log

	proc  *exec.Cmd
	done  chan struct{}
	cache map[string]string
}

// NewClient builds a session adapter for a vim server called name. shellCmd
// is what the server's 'shell' option is pointed at (the fake shell), and
// bootstrap is the helper script sourced at startup.
func NewClient(name, shellCmd, bootstrap string) *Client {
	return &Client{
		vimCmd:    "vim",
		vimrc:     "NONE",
		name:      name,
		shellCmd:  shellCmd,
		bootstrap: bootstrap,
		clean:     true,
		runner:    shell.NewExecRunner(),
		clock:     NewRealClock(),
		commands:  trace.NewLog(),
		cache:     make(map[string]string),
	}
}

// WithVimCommand overrides the editor executable, e.g. for neovim.
func (c *Client) WithVimCommand(cmd string) *Client {
	c.vimCmd = cmd
	return c
}

func (c *Client) WithVimrc(vimrc string) *Client {
	c.vimrc = vimrc
	return c
}

// WithStartup sets how long to wait for the server to come up.
func (c *Client) WithStartup(d time.Duration) *Client {
	c.startup = d
	return c
}

// WithEnv appends entries to the server's environment, on top of the parent
// process environment.
func (c *Client) WithEnv(env []string) *Client {
	c.env = append(c.env, env...)
	return c
}

func (c *Client) WithRunner(runner shell.Runner) *Client {
	c.runner = runner
	return c
}

func (c *Client) WithClock(clock Clock) *Client {
	c.clock = clock
	return c
}

// WithCommandLog routes every transmitted command into log for diagnostics.
func (c *Client) WithCommandLog(log *trace.Log) *Client {
	c.commands = log
	return c
}

func (c *Client) startArgs() []string {
	args := []string{}
	// '--clean' keeps vim from loading plugins but also resets '-u'; our '-u'
	// comes after so it wins while plugins stay off.
	if c.clean {
		args = append(args, "--clean")
	}
	return append(args,
		"-u", c.vimrc,
		"--servername", c.name,
		"-c", "set shell="+c.shellCmd,
		"-c", "source "+c.bootstrap)
}

// Start launches the server process and waits out the configured startup
// delay. A server that dies immediately is retried once without '--clean',
// which older vims do not recognize.
func (c *Client) Start(ctx context.Context) error {
	if err := c.spawn(); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, c.startup); err != nil {
		return err
	}
	if !c.alive() && c.clean {
		zap.S().Debug("editor rejected --clean, retrying without it")
		c.clean = false
		if err := c.spawn(); err != nil {
			return err
		}
		if err := c.clock.Sleep(ctx, c.startup); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) spawn() error {
	cmd := exec.Command(c.vimCmd, c.startArgs()...)
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start editor: %w", err)
	}
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	c.proc = cmd
	c.done = done
	return nil
}

func (c *Client) alive() bool {
	if c.proc == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// say runs one short-lived vim client command against the server.
func (c *Client) say(ctx context.Context, args ...string) (string, error) {
	if c.proc != nil && !c.alive() {
		return "", serverQuit()
	}

	// Client-process messages are forced to English so they can be
	// recognized. The server's own messages are unaffected and should be
	// matched by error code as usual.
	env := append(os.Environ(), c.env...)
	env = append(env, "LANGUAGE=en_US.UTF-8", "LC_ALL=en_US.UTF-8")

	run, err := c.runner.Run(ctx, env, c.vimCmd, args...)
	if err != nil {
		return "", &QuitError{Reason: fmt.Sprintf("Editor could not be queried: %v", err)}
	}
	if run.Stderr != "" {
		text := strings.TrimRight(run.Stderr, "\n")
		if text == "No display: Send expression failed." {
			return "", noDisplay()
		}
		return "", errorOnExit(text)
	}
	return run.Stdout, nil
}

// Communicate sends input to the server and blocks for delay, the session's
// only approximation of command completion.
func (c *Client) Communicate(ctx context.Context, content string, delay time.Duration) error {
	c.commands.Add(trace.Received, content)
	if _, err := c.say(ctx, "--servername", c.name, "--remote-send", content); err != nil {
		return err
	}
	c.cache = make(map[string]string)
	return c.clock.Sleep(ctx, delay)
}

// Ask evaluates expr on the server and returns its serialized value.
func (c *Client) Ask(ctx context.Context, expr string) (string, error) {
	out, err := c.say(ctx, "--servername", c.name, "--remote-expr", fmt.Sprintf("string(%s)", expr))
	if err != nil {
		if qe, ok := err.(*QuitError); ok && strings.Contains(qe.Reason, "E449:") {
			return "", invalidExpression(expr)
		}
		return "", err
	}
	// The client appends a newline to the output if there isn't one already.
	return strings.TrimSuffix(out, "\n"), nil
}

// cached asks for expr at most once per settle window.
func (c *Client) cached(ctx context.Context, key, expr string) (string, error) {
	if value, ok := c.cache[key]; ok {
		return value, nil
	}
	value, err := c.Ask(ctx, expr)
	if err != nil {
		return "", err
	}
	c.cache[key] = value
	return value, nil
}

// GetBufferLines returns the lines of the requested buffer, 0 meaning the
// buffer currently on screen.
func (c *Client) GetBufferLines(ctx context.Context, buffer int) ([]string, error) {
	num := "'%'"
	if buffer != 0 {
		num = fmt.Sprintf("%d", buffer)
	}
	raw, err := c.cached(ctx, fmt.Sprintf("buf:%d", buffer), fmt.Sprintf("getbufline(%s, 1, '$')", num))
	if err != nil {
		return nil, err
	}
	return decodeStringList(raw)
}

// GetCurrentLine returns the 1-based cursor line.
func (c *Client) GetCurrentLine(ctx context.Context) (int, error) {
	raw, err := c.cached(ctx, "line", "line('.')")
	if err != nil {
		return 0, err
	}
	return decodeNumber(raw)
}

// GetMessages returns the full message history, oldest first.
func (c *Client) GetMessages(ctx context.Context) ([]string, error) {
	raw, err := c.cached(ctx, "msg", "VroomExecute('silent! messages')")
	if err != nil {
		return nil, err
	}
	text, err := decodeString(raw)
	if err != nil {
		return nil, err
	}
	return strings.Split(text, "\n"), nil
}

// Clear resets the editor between tests.
func (c *Client) Clear(ctx context.Context) error {
	if _, err := c.Ask(ctx, "VroomClear()"); err != nil {
		return err
	}
	c.cache = make(map[string]string)
	return nil
}

// Quit asks the server to shut down cleanly and reports whether it did. The
// shutdown goes through an expression so it works outside normal mode.
func (c *Client) Quit(ctx context.Context) bool {
	if c.proc == nil {
		return true
	}
	if c.alive() {
		c.Ask(ctx, "VroomEnd()")
		c.clock.Sleep(ctx, 100*time.Millisecond)
	}
	if c.alive() {
		return false
	}
	c.proc = nil
	return true
}

// Kill forces the server down.
func (c *Client) Kill() {
	if c.proc == nil {
		return
	}
	if c.alive() {
		c.proc.Process.Kill()
	}
	c.proc = nil
}
