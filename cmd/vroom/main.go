package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/vroom/config"
	"github.com/google/vroom/editor"
	"github.com/google/vroom/internal"
	"github.com/google/vroom/result"
	"github.com/google/vroom/runner"
	"github.com/google/vroom/shell"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	exitFailed  = 1
	exitErrored = 3
)

var (
	editorCommand     string
	neovim            bool
	vimrc             string
	servername        string
	shellCommand      string
	delay             float64
	shellDelay        float64
	startuptime       float64
	messageStrictness string
	systemStrictness  string
	verbose           bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "vroom FILE...",
		Short: "Launch a vim process and test it against literate scripts",
		Long: "Vroom runs each FILE against a fresh editor server, driving it with the\n" +
			"scripted keystrokes and checking buffer contents, messages and shell\n" +
			"calls against the script's expectations.",
		Args: cobra.MinimumNArgs(1),
		RunE: run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&editorCommand, "editor", "", "the editor command to launch")
	flags.BoolVar(&neovim, "neovim", false, "target neovim instead of vim")
	flags.StringVarP(&vimrc, "vimrc", "u", "", "vimrc file to use")
	flags.StringVar(&servername, "servername", "", "editor server name prefix")
	flags.StringVar(&shellCommand, "shell", "", "shell the editor is pointed at")
	flags.Float64VarP(&delay, "delay", "d", 0, "delay after each command, in seconds")
	flags.Float64Var(&shellDelay, "shell-delay", 0, "extra delay after commands with shell expectations, in seconds")
	flags.Float64Var(&startuptime, "startuptime", 0, "how long to wait for the editor server, in seconds")
	flags.StringVar(&messageStrictness, "messages", "", "unexpected message handling (STRICT, RELAXED or GUESS-ERRORS)")
	flags.StringVar(&systemStrictness, "system", "", "unexpected system call handling (STRICT or RELAXED)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	viper.SetEnvPrefix("VROOM")
	viper.AutomaticEnv()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(exitErrored)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := resolve(cmd)

	if cfg.Verbose {
		internal.SetAllowedLogLevels(zapcore.DebugLevel, zapcore.InfoLevel)
	} else {
		internal.InitLogger()
	}

	bootstrap, err := editor.NewBootstrap()
	if err != nil {
		return err
	}
	defer bootstrap.Close()

	worst := result.StatusPassed
	for _, filename := range args {
		worst = result.Reduce(worst, runFile(cfg, bootstrap.Path(), filename))
	}

	switch worst {
	case result.StatusFailed:
		os.Exit(exitFailed)
	case result.StatusError:
		os.Exit(exitErrored)
	}
	return nil
}

// resolve layers the effective configuration: stored config, then VROOM_*
// environment variables, then flags.
func resolve(cmd *cobra.Command) config.Config {
	cfg := config.NewManager(config.New()).Config
	flags := cmd.Flags()

	if s := viper.GetString("editor_command"); s != "" {
		cfg.EditorCommand = s
	}
	if flags.Changed("editor") {
		cfg.EditorCommand = editorCommand
	}
	if viper.GetBool("neovim") || neovim {
		cfg.Neovim = true
		if !flags.Changed("delay") {
			cfg.DelaySeconds = 0
		}
		if !flags.Changed("shell-delay") {
			cfg.ShellDelaySeconds = 0
		}
	}
	if s := viper.GetString("vimrc"); s != "" {
		cfg.Vimrc = s
	}
	if flags.Changed("vimrc") {
		cfg.Vimrc = vimrc
	}
	if s := viper.GetString("server_name"); s != "" {
		cfg.ServerName = s
	}
	if flags.Changed("servername") {
		cfg.ServerName = servername
	}
	if s := viper.GetString("shell"); s != "" {
		cfg.Shell = s
	}
	if flags.Changed("shell") {
		cfg.Shell = shellCommand
	}
	if flags.Changed("delay") {
		cfg.DelaySeconds = delay
	}
	if flags.Changed("shell-delay") {
		cfg.ShellDelaySeconds = shellDelay
	}
	if flags.Changed("startuptime") {
		cfg.StartupSeconds = startuptime
	}
	if s := viper.GetString("message_strictness"); s != "" {
		cfg.MessageStrictness = s
	}
	if flags.Changed("messages") {
		cfg.MessageStrictness = messageStrictness
	}
	if s := viper.GetString("system_strictness"); s != "" {
		cfg.SystemStrictness = s
	}
	if flags.Changed("system") {
		cfg.SystemStrictness = systemStrictness
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg
}

func runFile(cfg config.Config, bootstrap, filename string) result.Status {
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("%s: %v\n", filename, err)
		return result.StatusError
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")

	logs := runner.NewLogs()
	comm, err := shell.NewCommunicator(filename, logs.Syscalls, logs.Commands)
	if err != nil {
		fmt.Printf("%s: %v\n", filename, err)
		return result.StatusError
	}
	defer comm.Close()

	session := editor.NewClient(internal.GenerateUniqueSlug(cfg.ServerName), cfg.Shell, bootstrap).
		WithVimCommand(cfg.EditorCommand).
		WithVimrc(cfg.Vimrc).
		WithStartup(cfg.Startup()).
		WithEnv(comm.Env()).
		WithCommandLog(logs.Commands)

	report := runner.New(cfg, session, comm, logs).Run(context.Background(), filename, lines)
	render(report)
	return report.Status()
}

func render(report *runner.Report) {
	stats := report.Stats()
	fmt.Printf("%s: %d passed, %d failed, %d errored\n",
		report.Filename, stats.Passed, stats.Failed, stats.Errored)

	for _, outcome := range report.Outcomes {
		if outcome.Status == result.StatusPassed {
			continue
		}
		failures := outcome.Failures()
		if len(failures) == 0 {
			fmt.Printf("Error on line %d: %v\n", outcome.Line, outcome.Err)
			continue
		}
		for _, failure := range failures {
			fmt.Printf("Failure on line %d: %s\n", outcome.Line, failure.Desc)
			renderContext(failure.Context)
		}
	}
	for _, diagnostic := range report.Diagnostics {
		fmt.Printf("Warning: %s\n", diagnostic.Desc)
	}
}

func renderContext(c result.Context) {
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Println(title + ":")
		for _, line := range lines {
			fmt.Println("  " + line)
		}
	}

	if c.Buffer != nil {
		title := "Found"
		if c.Buffer.Buffer != 0 {
			title = fmt.Sprintf("Found in buffer %d", c.Buffer.Buffer)
		}
		excerpt := make([]string, 0, len(c.Buffer.Lines))
		for i, line := range c.Buffer.Lines {
			marker := "  "
			if i == c.Buffer.Line {
				marker = "> "
			}
			excerpt = append(excerpt, marker+line)
		}
		section(title, excerpt)
	}
	section("Recent messages", c.Messages)
	section("Recent commands", c.Commands)
	section("Recent syscalls", c.Syscalls)
}
