// The fengine command evaluates, samples and integrates functions locally.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datamelt/fengine/expr"
	"github.com/urfave/cli/v2"
)

// These variables are populated via the Go linker.
var (
	version string
	commit  string
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:                 "fengine",
		Usage:                "evaluate functions of one and two variables",
		UsageText:            "fengine [command] [flags] expression",
		Description:          "Expressions use x (and y), numbers, + - * / % ^ and the functions\n" + strings.Join(expr.Functions(), ", ") + ".",
		Version:              fmt.Sprintf("%s (git: %s)", version, commit),
		EnableBashCompletion: true,
		HideHelpCommand:      true,
		Writer:               stdout,
		ErrWriter:            stderr,
		Commands: []*cli.Command{
			newEvalCmd(),
			newSampleCmd(),
			newIntegrateCmd(),
			newDiffCmd(),
			newVolumeCmd(),
			newRenderCmd(),
		},
	}
}
