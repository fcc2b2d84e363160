package config

import (
	"os"
	"path/filepath"

	"github.com/google/vroom/internal"
	"gopkg.in/yaml.v3"
)

const (
	defaultEditorCommand     = "vim"
	defaultVimrc             = "NONE"
	defaultServerName        = "VROOM"
	defaultShell             = "vroomfaker"
	defaultDelaySeconds      = 0.09
	defaultShellDelaySeconds = 0.25
	defaultStartupSeconds    = 0.5
	defaultMessageStrictness = "GUESS-ERRORS"
	defaultSystemStrictness  = "STRICT"
)

type Store interface {
	Read() (Config, error)
	ReadDefaults() Config
	Write(Config) error
}

// Ensure FileIO implements the Store interface
var _ Store = &FileIO{}

type FileIO struct {
	configFilePath string
}

func New() *FileIO {
	path, _ := getPath()
	return &FileIO{
		configFilePath: path,
	}
}

func (f *FileIO) WithFilePath(configFilePath string) *FileIO {
	f.configFilePath = configFilePath
	return f
}

func (f *FileIO) Read() (Config, error) {
	var result Config

	buf, err := os.ReadFile(f.configFilePath)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(buf, &result); err != nil {
		return Config{}, err
	}

	return result, nil
}

// ReadDefaults returns the built-in configuration for driving vanilla vim.
// Neovim-sensitive delay defaults are resolved by the Manager, once it knows
// which editor is in play.
func (f *FileIO) ReadDefaults() Config {
	return Config{
		EditorCommand:     defaultEditorCommand,
		Vimrc:             defaultVimrc,
		ServerName:        defaultServerName,
		Shell:             defaultShell,
		DelaySeconds:      defaultDelaySeconds,
		ShellDelaySeconds: defaultShellDelaySeconds,
		StartupSeconds:    defaultStartupSeconds,
		MessageStrictness: defaultMessageStrictness,
		SystemStrictness:  defaultSystemStrictness,
	}
}

func (f *FileIO) Write(config Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.configFilePath), 0755); err != nil {
		return err
	}

	return os.WriteFile(f.configFilePath, data, 0644)
}

func getPath() (string, error) {
	configHome, err := internal.GetConfigHome()
	if err != nil {
		return "", err
	}

	return filepath.Join(configHome, "config.yaml"), nil
}
