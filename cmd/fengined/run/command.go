// Package run implements the run and config sub-commands of fengined.
package run

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/datamelt/fengine/server"
	"github.com/datamelt/fengine/services/diagnostic"
	"github.com/datamelt/fengine/services/logging"
	"github.com/pkg/errors"
)

const banner = `
  __                   _
 / _| ___ _ __   __ _ (_)_ __   ___
| |_ / _ \ '_ \ / _' || | '_ \ / _ \
|  _|  __/ | | | (_| || | | | |  __/
|_|  \___|_| |_|\__, ||_|_| |_|\___|
                |___/
`

type Diagnostic interface {
	Error(msg string, err error)
	FengineStarting(version, branch, commit string)
	GoVersion()
	Info(msg string)
}

// Options holds the command line flags of the run command.
type Options struct {
	ConfigPath string
	PIDFile    string
	Hostname   string
	CPUProfile string
	MemProfile string
	LogFile    string
	LogLevel   string
}

// Command starts a server, see Run and Close.
type Command struct {
	Version string
	Branch  string
	Commit  string

	Stdout io.Writer
	Stderr io.Writer

	// Closed is closed once Close returns.
	Closed    chan struct{}
	closeOnce sync.Once
	stop      chan struct{}

	Server *server.Server
	Diag   Diagnostic

	pidFile    string
	logService *logging.Service
}

// NewCommand return a new instance of Command.
func NewCommand() *Command {
	return &Command{
		Closed: make(chan struct{}),
		stop:   make(chan struct{}),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run loads the configuration, opens logging and starts the server.
// It returns once the server is serving.
func (cmd *Command) Run(args ...string) error {
	opts, err := cmd.ParseFlags(args...)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.Stdout, banner)

	config, err := loadConfig(FindConfigPath(opts.ConfigPath))
	if err != nil {
		return err
	}
	opts.apply(config)

	cmd.logService = logging.NewService(config.Logging, cmd.Stdout, cmd.Stderr)
	if err := cmd.logService.Open(); err != nil {
		return errors.Wrap(err, "init logging")
	}
	diagService := diagnostic.NewService(cmd.logService.Root())
	cmd.Diag = diagService.NewCmdHandler()
	cmd.Diag.FengineStarting(cmd.Version, cmd.Branch, cmd.Commit)
	cmd.Diag.GoVersion()

	if err := writePIDFile(opts.PIDFile); err != nil {
		return errors.Wrap(err, "write pid file")
	}
	cmd.pidFile = opts.PIDFile

	s, err := server.New(config, server.BuildInfo{
		Version: cmd.Version,
		Commit:  cmd.Commit,
		Branch:  cmd.Branch,
	}, diagService)
	if err != nil {
		return errors.Wrap(err, "create server")
	}
	s.CPUProfile = opts.CPUProfile
	s.MemProfile = opts.MemProfile
	if err := s.Open(); err != nil {
		return errors.Wrap(err, "open server")
	}
	cmd.Server = s

	go cmd.monitorServerErrors()
	return nil
}

// Close stops the server and releases the pid file and log output.
// It is safe to call more than once.
func (cmd *Command) Close() error {
	var err error
	cmd.closeOnce.Do(func() {
		defer close(cmd.Closed)
		close(cmd.stop)
		if cmd.Server != nil {
			err = cmd.Server.Close()
		}
		if cmd.pidFile != "" {
			os.Remove(cmd.pidFile)
		}
		if cmd.logService != nil {
			cmd.logService.Close()
		}
	})
	return err
}

func (cmd *Command) monitorServerErrors() {
	for {
		select {
		case err := <-cmd.Server.Err():
			if err != nil {
				cmd.Diag.Error("server error", err)
			}
		case <-cmd.stop:
			return
		}
	}
}

// ParseFlags parses the run flags.
func (cmd *Command) ParseFlags(args ...string) (Options, error) {
	var o Options
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(cmd.Stderr)
	fs.StringVar(&o.ConfigPath, "config", "", "")
	fs.StringVar(&o.PIDFile, "pidfile", "", "")
	fs.StringVar(&o.Hostname, "hostname", "", "")
	fs.StringVar(&o.CPUProfile, "cpuprofile", "", "")
	fs.StringVar(&o.MemProfile, "memprofile", "", "")
	fs.StringVar(&o.LogFile, "log-file", "", "")
	fs.StringVar(&o.LogLevel, "log-level", "", "")
	fs.Usage = func() { fmt.Fprint(cmd.Stderr, usage, "\n") }
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	return o, nil
}

// apply overrides configuration values set on the command line.
func (o Options) apply(c *server.Config) {
	if o.Hostname != "" {
		c.Hostname = o.Hostname
	}
	if o.LogFile != "" {
		c.Logging.File = o.LogFile
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return err
	}
	return ioutil.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0666)
}

const usage = `usage: run [flags]

run starts the fengine server.

        -config <path>
                          Set the path to the configuration file.

        -hostname <name>
                          Override the hostname configuration option.

        -pidfile <path>
                          Write process ID to a file.

        -cpuprofile <path>
                          Write a CPU profile until the server closes.

        -memprofile <path>
                          Write a heap profile when the server closes.

        -log-file <path>
                          Write logs to a file.

        -log-level <level>
                          Sets the log level. One of debug,info,warn,error.
`
