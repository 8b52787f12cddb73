package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/datamelt/fengine"
	"github.com/datamelt/fengine/numeric"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "param",
			Usage:   "substitute a parameter before parsing, `NAME=VALUE`",
			Aliases: []string{"p"},
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output data as JSON",
		},
	}
}

func rangeFlags(prefix string, min, max float64) []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: prefix + "min", Value: min, Usage: "lower bound"},
		&cli.Float64Flag{Name: prefix + "max", Value: max, Usage: "upper bound"},
	}
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var fs []cli.Flag
	for _, g := range groups {
		fs = append(fs, g...)
	}
	return fs
}

// expression returns the single positional argument.
func expression(ctx *cli.Context) (string, error) {
	if ctx.Args().Len() != 1 {
		return "", errors.New("expected exactly one expression argument")
	}
	return ctx.Args().First(), nil
}

func parseParams(values []string) (map[string]float64, error) {
	params := make(map[string]float64, len(values))
	for _, v := range values {
		i := strings.IndexByte(v, '=')
		if i <= 0 {
			return nil, fmt.Errorf("invalid parameter %q, expected NAME=VALUE", v)
		}
		f, err := strconv.ParseFloat(v[i+1:], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid value for parameter %s", v[:i])
		}
		params[v[:i]] = f
	}
	return params, nil
}

// prepare substitutes the parameters and parses the function.
func prepare(ctx *cli.Context, e interface {
	SetParameters(map[string]float64) error
	Parse() error
}) error {
	params, err := parseParams(ctx.StringSlice("param"))
	if err != nil {
		return err
	}
	if len(params) > 0 {
		if err := e.SetParameters(params); err != nil {
			return err
		}
	}
	return kindError(e.Parse())
}

func new1D(ctx *cli.Context) (*fengine.Function1D, error) {
	text, err := expression(ctx)
	if err != nil {
		return nil, err
	}
	f := fengine.New1D(text, text, ctx.Float64("min"), ctx.Float64("max"), false)
	return f, prepare(ctx, f)
}

func new2D(ctx *cli.Context) (*fengine.Function2D, error) {
	text, err := expression(ctx)
	if err != nil {
		return nil, err
	}
	f := fengine.New2D(text, text, ctx.Float64("x-min"), ctx.Float64("x-max"), ctx.Float64("y-min"), ctx.Float64("y-max"), false)
	return f, prepare(ctx, f)
}

// kindError prefixes err with its kind.
func kindError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s error: %v", fengine.KindOf(err), err)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func newEvalCmd() *cli.Command {
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate an expression of x, or of x and y when -y is given",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), []cli.Flag{
			&cli.Float64Flag{Name: "x", Usage: "value of x"},
			&cli.Float64Flag{Name: "y", Usage: "value of y"},
		}),
		Action: func(ctx *cli.Context) error {
			var (
				v   float64
				err error
			)
			if ctx.IsSet("y") {
				var f *fengine.Function2D
				if f, err = new2D(ctx); err != nil {
					return err
				}
				v, err = f.Evaluate(ctx.Float64("x"), ctx.Float64("y"))
			} else {
				var f *fengine.Function1D
				if f, err = new1D(ctx); err != nil {
					return err
				}
				v, err = f.Evaluate(ctx.Float64("x"))
			}
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, map[string]float64{"value": v})
			}
			fmt.Fprintln(ctx.App.Writer, formatValue(v))
			return nil
		},
	}
}

func newSampleCmd() *cli.Command {
	return &cli.Command{
		Name:      "sample",
		Usage:     "Sample an expression of x over a range",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), rangeFlags("", -10, 10), []cli.Flag{
			&cli.IntFlag{Name: "points", Aliases: []string{"n"}, Value: fengine.DefaultPoints, Usage: "number of points"},
			&cli.IntFlag{Name: "workers", Usage: "sampling goroutines, zero uses GOMAXPROCS"},
		}),
		Action: func(ctx *cli.Context) error {
			f, err := new1D(ctx)
			if err != nil {
				return err
			}
			grid, err := f.SampleGridParallel(ctx.Context, ctx.Float64("min"), ctx.Float64("max"), ctx.Int("points"), ctx.Int("workers"))
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, grid)
			}
			tw := tabwriter.NewWriter(ctx.App.Writer, 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "x\ty")
			for i := range grid.X {
				fmt.Fprintf(tw, "%s\t%s\n", formatValue(grid.X[i]), formatValue(grid.Y[i]))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(ctx.App.ErrWriter, "sampled %s points\n", humanize.Comma(int64(grid.Len())))
			return nil
		},
	}
}

func newIntegrateCmd() *cli.Command {
	return &cli.Command{
		Name:      "integrate",
		Usage:     "Integrate an expression of x over a range",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), rangeFlags("", 0, 1), []cli.Flag{
			&cli.IntFlag{Name: "intervals", Aliases: []string{"n"}, Value: 100, Usage: "number of sub-intervals"},
			&cli.StringFlag{
				Name:  "method",
				Value: numeric.DefaultMethod.String(),
				Usage: "one of " + strings.Join(numeric.Methods(), ", "),
			},
		}),
		Action: func(ctx *cli.Context) error {
			if _, ok := numeric.LookupMethod(ctx.String("method")); !ok {
				return fmt.Errorf("unknown integration method %q", ctx.String("method"))
			}
			f, err := new1D(ctx)
			if err != nil {
				return err
			}
			v, err := f.Integral(ctx.String("method"), ctx.Int("intervals"), ctx.Float64("min"), ctx.Float64("max"))
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, map[string]float64{"value": v})
			}
			fmt.Fprintln(ctx.App.Writer, formatValue(v))
			return nil
		},
	}
}

func newDiffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Estimate the derivative of an expression of x at evenly spaced points",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), rangeFlags("", 0, 1), []cli.Flag{
			&cli.IntFlag{Name: "points", Aliases: []string{"n"}, Value: 11, Usage: "number of points"},
		}),
		Action: func(ctx *cli.Context) error {
			f, err := new1D(ctx)
			if err != nil {
				return err
			}
			vs, err := f.Differentiate(ctx.Int("points"), ctx.Float64("min"), ctx.Float64("max"))
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, map[string][]float64{"values": vs})
			}
			for _, v := range vs {
				fmt.Fprintln(ctx.App.Writer, formatValue(v))
			}
			return nil
		},
	}
}

func newVolumeCmd() *cli.Command {
	return &cli.Command{
		Name:      "volume",
		Usage:     "Integrate an expression of x and y over a rectangle",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), rangeFlags("x-", 0, 1), rangeFlags("y-", 0, 1), []cli.Flag{
			&cli.IntFlag{Name: "intervals", Aliases: []string{"n"}, Value: 100, Usage: "cells per axis"},
		}),
		Action: func(ctx *cli.Context) error {
			f, err := new2D(ctx)
			if err != nil {
				return err
			}
			xmin, xmax, ymin, ymax := f.Range()
			v, err := f.Volume(ctx.Int("intervals"), xmin, xmax, ymin, ymax)
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, map[string]float64{"value": v})
			}
			fmt.Fprintln(ctx.App.Writer, formatValue(v))
			return nil
		},
	}
}

var renderOps = []string{
	fengine.OpMathML,
	fengine.OpSource,
	fengine.OpSimplify,
	fengine.OpExpand,
	fengine.OpFactorize,
	fengine.OpElementary,
	fengine.OpNumeric,
}

func newRenderCmd() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render an expression of x and y as MathML, Go source or a rewritten expression",
		ArgsUsage: "expression",
		Flags: flags(commonFlags(), []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   fengine.OpSimplify,
				Usage:   "one of " + strings.Join(renderOps, ", "),
			},
		}),
		Action: func(ctx *cli.Context) error {
			f, err := new2D(ctx)
			if err != nil {
				return err
			}
			var out string
			switch op := ctx.String("format"); op {
			case fengine.OpMathML:
				out, err = f.MathML()
			case fengine.OpSource:
				out, err = f.Source()
			default:
				if err = f.Transform(op); err == nil {
					out = f.Expression()
				}
			}
			if err != nil {
				return kindError(err)
			}
			if ctx.Bool("json") {
				return writeJSON(ctx.App.Writer, map[string]string{"output": out})
			}
			fmt.Fprintln(ctx.App.Writer, out)
			return nil
		},
	}
}
