package run

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// PrintConfigCommand prints the effective configuration as TOML.
type PrintConfigCommand struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewPrintConfigCommand return a new instance of PrintConfigCommand.
func NewPrintConfigCommand() *PrintConfigCommand {
	return &PrintConfigCommand{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run loads, validates and prints the configuration.
func (cmd *PrintConfigCommand) Run(args ...string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(cmd.Stderr)
	configPath := fs.String("config", "", "")
	hostname := fs.String("hostname", "", "")
	fs.Usage = func() { fmt.Fprint(cmd.Stderr, printConfigUsage, "\n") }
	if err := fs.Parse(args); err != nil {
		return err
	}

	config, err := loadConfig(FindConfigPath(*configPath))
	if err != nil {
		return err
	}
	if *hostname != "" {
		config.Hostname = *hostname
	}
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if err := toml.NewEncoder(cmd.Stdout).Encode(config); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Stdout)
	return err
}

const printConfigUsage = `usage: config [flags]

	config prints the default configuration merged with the configuration
	file and the FENGINE_* environment variables.

	-config <path>
	          Set the path to the configuration file.

	-hostname <name>
	          Override the hostname.
`
