// Command fengined runs the function engine server.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/datamelt/fengine/cmd/fengined/help"
	"github.com/datamelt/fengine/cmd/fengined/run"
	"github.com/datamelt/fengine/services/diagnostic"
)

// hardShutdownTimeout bounds the wait for a clean shutdown after a signal.
const hardShutdownTimeout = 30 * time.Second

// These variables are populated via the Go linker.
var (
	version = "unknown"
	commit  = "unknown"
	branch  = "unknown"
)

func main() {
	m := NewMain()
	if err := m.Run(os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main dispatches the fengined sub-commands.
type Main struct {
	Diag run.Diagnostic

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewMain return a new instance of Main.
func NewMain() *Main {
	return &Main{
		Diag:   diagnostic.BootstrapMainHandler(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run determines and runs the command specified by the CLI args.
func (m *Main) Run(args ...string) error {
	name, args := ParseCommandName(args)

	var err error
	switch name {
	case "", "run":
		err = m.runServer(args)
	case "config":
		cmd := run.NewPrintConfigCommand()
		cmd.Stdout, cmd.Stderr = m.Stdout, m.Stderr
		err = cmd.Run(args...)
	case "version":
		err = m.printVersion(args)
	case "help":
		cmd := help.NewCommand()
		cmd.Stdout = m.Stdout
		err = cmd.Run(args...)
	default:
		return fmt.Errorf("unknown command %q\nRun 'fengined help' for usage\n", name)
	}
	if err != nil {
		return fmt.Errorf("%s: %s", commandName(name), err)
	}
	return nil
}

func commandName(name string) string {
	if name == "" {
		return "run"
	}
	return name
}

// runServer starts the server and blocks until it is shut down by a signal.
func (m *Main) runServer(args []string) error {
	cmd := run.NewCommand()
	cmd.Version = version
	cmd.Commit = commit
	cmd.Branch = branch
	cmd.Stdout, cmd.Stderr = m.Stdout, m.Stderr

	err := cmd.Run(args...)
	// The command owns the configured logger once it started.
	if cmd.Diag != nil {
		m.Diag = cmd.Diag
	}
	if err != nil {
		m.Diag.Error("encountered error", err)
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)
	m.Diag.Info("listening for signals")

	for sig := range signals {
		if sig == syscall.SIGHUP {
			m.Diag.Info("SIGHUP received, reloading function definitions")
			cmd.Server.Reload()
			continue
		}
		m.Diag.Info(fmt.Sprintf("%s received, initializing clean shutdown", sig))
		go cmd.Close()
		break
	}

	m.Diag.Info("waiting for clean shutdown")
	select {
	case <-signals:
		m.Diag.Info("second signal received, initializing hard shutdown")
	case <-time.After(hardShutdownTimeout):
		m.Diag.Info("time limit reached, initializing hard shutdown")
	case <-cmd.Closed:
		m.Diag.Info("server shutdown completed")
	}
	return nil
}

func (m *Main) printVersion(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(m.Stderr)
	fs.Usage = func() { fmt.Fprintln(m.Stderr, "usage: fengined version\n\n\tversion prints the build version, branch and commit") }
	if err := fs.Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(m.Stdout, "fengined %s (git: %s %s)\n", version, branch, commit)
	return nil
}

// ParseCommandName splits the sub-command name from its arguments.
// "help <command>" is rewritten to "<command> -h".
func ParseCommandName(args []string) (string, []string) {
	if len(args) == 0 {
		return "", args
	}
	switch {
	case args[0] == "-h" || args[0] == "--help":
		return "help", args[1:]
	case strings.HasPrefix(args[0], "-"):
		return "", args
	case args[0] == "help" && len(args) > 1:
		return args[1], append([]string{"-h"}, args[2:]...)
	}
	return args[0], args[1:]
}
