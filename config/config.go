// Package config holds the run configuration: which editor to drive, where
// the fake shell lives, and the settle delays that stand in for completion
// signals. Delay values are correctness parameters here, not performance
// knobs.
package config

import (
	"math"
	"time"
)

type Config struct {
	EditorCommand     string  `yaml:"editor_command"`
	Neovim            bool    `yaml:"neovim"`
	Vimrc             string  `yaml:"vimrc"`
	ServerName        string  `yaml:"server_name"`
	Shell             string  `yaml:"shell"`
	DelaySeconds      float64 `yaml:"delay_seconds"`
	ShellDelaySeconds float64 `yaml:"shell_delay_seconds"`
	StartupSeconds    float64 `yaml:"startup_seconds"`
	MessageStrictness string  `yaml:"message_strictness"`
	SystemStrictness  string  `yaml:"system_strictness"`
	Verbose           bool    `yaml:"verbose"`
}

// Delay is the base settle delay after every editor command.
func (c Config) Delay() time.Duration {
	return seconds(c.DelaySeconds)
}

// ShellDelay is the extra settle delay after a command expected to trigger a
// shell call.
func (c Config) ShellDelay() time.Duration {
	return seconds(c.ShellDelaySeconds)
}

// Startup is how long to wait for the editor server to come up.
func (c Config) Startup() time.Duration {
	return seconds(c.StartupSeconds)
}

// seconds rounds rather than truncates: values like 4.02 are not exactly
// representable and would otherwise come out a nanosecond short.
func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
