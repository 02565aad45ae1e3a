package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/copyleftdev/gridsearch/internal/harness"
	"github.com/copyleftdev/gridsearch/internal/logging"
	"github.com/copyleftdev/gridsearch/internal/optimization"
	"github.com/copyleftdev/gridsearch/internal/optimization/gridsearch"
	"github.com/copyleftdev/gridsearch/internal/problem"
	"github.com/copyleftdev/gridsearch/internal/registry"
	"github.com/copyleftdev/gridsearch/internal/scenario"
)

// exitError carries the process exit code for a failed run.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

type options struct {
	scenario  string
	logLevel  string
	logFormat string
	logFile   string
	output    string
	tolerance float64
	history   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitErr, ok := err.(*exitError); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func parse(args []string, output io.Writer) (*options, bool, error) {
	fs := flag.NewFlagSet("gridsearch", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprint(output, `
gridsearch - exhaustive lattice search over a box.

Usage:
  gridsearch [options] SCENARIO

Arguments:
  SCENARIO
    Path to an HCL scenario file.

Options:
`)
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVar(&o.scenario, "scenario", "", "Path to the scenario file.")
	fs.StringVar(&o.logLevel, "log-level", "error", "Minimum level of log entries. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&o.logFormat, "log-format", "json", "Log entry format. Options: 'text' or 'json'.")
	fs.StringVar(&o.logFile, "log-file", "", "Append log entries to this file instead of stderr. Overrides log_file in the scenario.")
	fs.StringVar(&o.output, "output", "text", "Result format. Options: 'text' or 'json'.")
	fs.Float64Var(&o.tolerance, "tolerance", 1e-6, "Region tolerance used when the scenario sets none.")
	fs.BoolVar(&o.history, "history", false, "Print every evaluated point.")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &exitError{code: 2, msg: err.Error()}
	}

	if o.scenario == "" && fs.NArg() > 0 {
		o.scenario = fs.Arg(0)
	}
	if o.scenario == "" {
		fs.Usage()
		return nil, true, nil
	}

	switch strings.ToLower(o.logLevel) {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &exitError{code: 2, msg: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	switch o.logFormat {
	case "text", "json":
	default:
		return nil, false, &exitError{code: 2, msg: "invalid log-format: must be 'text' or 'json'"}
	}
	switch o.output {
	case "text", "json":
	default:
		return nil, false, &exitError{code: 2, msg: "invalid output: must be 'text' or 'json'"}
	}
	return o, false, nil
}

// run loads the scenario named in args, searches it and writes the result to
// outW. Log entries go to errW until the scenario or -log-file names a file.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	o, shouldExit, err := parse(args, outW)
	if err != nil || shouldExit {
		return err
	}

	sc, err := scenario.Load(o.scenario)
	if err != nil {
		return err
	}
	if o.logFile != "" {
		sc.LogFile = o.logFile
	}
	if o.history {
		sc.Search.History = true
	}

	sink := logging.NewSink(
		logging.WithFallback(errW),
		logging.WithSinkLevel(logging.LogLevel(strings.ToUpper(o.logLevel))),
		logging.WithSinkFormat(logging.Format(o.logFormat)),
	)
	logger := logging.NewZapLogger(sink.Acquire("gridsearch"))
	defer func() {
		_ = logger.Sync()
		_ = sink.Release("gridsearch")
	}()

	reg := registry.New(registry.WithLogger(logger))
	if err := reg.Install(
		problem.Module{Options: []problem.Option{problem.WithLogger(logger)}},
		gridsearch.Module{Options: []gridsearch.Option{gridsearch.WithLogger(logger)}},
	); err != nil {
		return err
	}

	h := harness.New(reg,
		harness.WithLogger(logger),
		harness.WithSink(sink),
		harness.WithTolerance(o.tolerance),
	)
	res, err := h.Run(ctx, sc, nil)
	if err != nil {
		return err
	}

	if o.output == "json" {
		return writeJSON(outW, res)
	}
	writeText(outW, res)
	return nil
}

func writeJSON(w io.Writer, res *harness.Result) error {
	out := struct {
		Problem     string                    `json:"problem"`
		Solver      string                    `json:"solver"`
		Solution    []float64                 `json:"solution"`
		Value       any                       `json:"value"`
		Evaluations int                       `json:"evaluations"`
		Duration    time.Duration             `json:"duration"`
		History     []optimization.Evaluation `json:"history,omitempty"`
	}{
		Problem:     res.Problem,
		Solver:      res.Solver,
		Solution:    res.Solution,
		Value:       optimization.JSONValue(res.Value),
		Evaluations: res.Evaluations,
		Duration:    res.Duration,
		History:     res.History,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeText(w io.Writer, res *harness.Result) {
	for _, e := range res.History {
		fmt.Fprintf(w, "%6d  %v  %g\n", e.Iteration, e.Solution.Parameters, e.Solution.Value)
	}
	fmt.Fprintf(w, "problem:     %s\n", res.Problem)
	fmt.Fprintf(w, "solver:      %s\n", res.Solver)
	fmt.Fprintf(w, "solution:    %v\n", res.Solution)
	fmt.Fprintf(w, "value:       %g\n", res.Value)
	fmt.Fprintf(w, "evaluations: %d\n", res.Evaluations)
	fmt.Fprintf(w, "duration:    %s\n", res.Duration)
}
