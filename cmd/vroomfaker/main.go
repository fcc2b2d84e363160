// vroomfaker is the shell the editor under test is pointed at. The editor
// invokes it as `vroomfaker -c <command>`; it intercepts the command per the
// control file the test harness maintains and reports back over the log and
// error files named in the environment.
//
// The argv contract is fixed by how editors invoke their shell, so flags are
// parsed by hand instead of through a framework.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/google/vroom/shell"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s -c <command> | -respond <payload>\n", args[0])
		return 2
	}

	files, err := shell.FromEnv()
	if err != nil {
		// Outside a harness run there is nothing to fake; behave like the
		// real shell so an editor configured with this binary keeps working.
		if args[1] == "-c" {
			return realShell(args[2])
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	faker := shell.NewFaker(files, args[0])

	switch args[1] {
	case "-c":
		return faker.Handle(context.Background(), args[2])
	case "-respond":
		return faker.Respond(context.Background(), args[2])
	}

	fmt.Fprintf(os.Stderr, "%s: unknown mode %q\n", args[0], args[1])
	return 2
}

func realShell(command string) int {
	cmd := exec.Command(shell.DefaultShell, "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
