// Package help prints the fengined usage.
package help

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Command displays help for command-line sub-commands.
type Command struct {
	Stdout io.Writer
}

// NewCommand returns a new instance of Command.
func NewCommand() *Command {
	return &Command{Stdout: os.Stdout}
}

// Run writes the usage, args are ignored.
func (cmd *Command) Run(...string) error {
	_, err := fmt.Fprintln(cmd.Stdout, strings.TrimSpace(usage))
	return err
}

const usage = `
Serve, evaluate and sample functions of one and two variables.

Usage:

	fengined [[command] [arguments]]

The commands are:

    config               print the effective configuration
    run                  start the server, the default command
    version              print the build version

Function definitions found in the functions directory under the [load] dir
are defined on start and again on SIGHUP.

Use "fengined help [command]" for more information about a command.
`
