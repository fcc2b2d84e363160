package config

// Manager resolves the effective configuration: built-in defaults, explicitly
// overlaid with whatever the config file sets. Flag and environment overrides
// happen above this layer, in the CLI.
type Manager struct {
	configStore Store
	Config      Config
}

func NewManager(cs Store) *Manager {
	c := cs.ReadDefaults()

	delaySet := false
	shellDelaySet := false

	configured, err := cs.Read()
	if err == nil {
		if configured.EditorCommand != "" {
			c.EditorCommand = configured.EditorCommand
		}
		if configured.Neovim {
			c.Neovim = true
		}
		if configured.Vimrc != "" {
			c.Vimrc = configured.Vimrc
		}
		if configured.ServerName != "" {
			c.ServerName = configured.ServerName
		}
		if configured.Shell != "" {
			c.Shell = configured.Shell
		}
		if configured.DelaySeconds != 0 {
			c.DelaySeconds = configured.DelaySeconds
			delaySet = true
		}
		if configured.ShellDelaySeconds != 0 {
			c.ShellDelaySeconds = configured.ShellDelaySeconds
			shellDelaySet = true
		}
		if configured.StartupSeconds != 0 {
			c.StartupSeconds = configured.StartupSeconds
		}
		if configured.MessageStrictness != "" {
			c.MessageStrictness = configured.MessageStrictness
		}
		if configured.SystemStrictness != "" {
			c.SystemStrictness = configured.SystemStrictness
		}
		if configured.Verbose {
			c.Verbose = true
		}
	}

	// Neovim needs no settle delays; the vim defaults only apply when nothing
	// overrode them.
	if c.Neovim {
		if !delaySet {
			c.DelaySeconds = 0
		}
		if !shellDelaySet {
			c.ShellDelaySeconds = 0
		}
	}

	return &Manager{configStore: cs, Config: c}
}

// WriteConfig persists the current effective configuration.
func (m *Manager) WriteConfig() error {
	return m.configStore.Write(m.Config)
}
