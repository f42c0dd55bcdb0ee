// Command pdpeval loads a vessel PDP instance, evaluates a solution for it
// and prints the feasibility verdict and cost.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"vesselpdp/internal/buildinfo"
	"vesselpdp/internal/config"
	"vesselpdp/internal/logging"
	"vesselpdp/internal/model"
	"vesselpdp/internal/opt"
	"vesselpdp/internal/problem"
	"vesselpdp/internal/store"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

// ExitError carries the process exit code for a failure.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func usageErr(format string, args ...any) error {
	return &ExitError{Code: exitUsage, Message: fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes the command and returns its exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	err := execute(ctx, args, stdout, stderr, getenv)
	if err == nil {
		return exitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(stderr, "pdpeval:", exitErr.Message)
		return exitErr.Code
	}
	fmt.Fprintln(stderr, "pdpeval:", err)
	return exitRuntime
}

type options struct {
	instancePath string
	solution     string
	seed         string
	format       string
	logLevel     string
	logFormat    string
	configPath   string
	sqlitePath   string
}

// parseArgs returns nil options when the command should exit cleanly.
func parseArgs(args []string, stdout, stderr io.Writer, getenv func(string) string) (*options, error) {
	fs := flag.NewFlagSet("pdpeval", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `pdpeval - evaluate a pickup-and-delivery solution for a vessel fleet.

Usage:
  pdpeval [options] INSTANCE_FILE

Options:
`)
		fs.PrintDefaults()
	}

	var o options
	fs.StringVar(&o.solution, "solution", "", "Solution encoding, e.g. \"1,1,0,2,2,0,3,3\". Overrides -seed.")
	fs.StringVar(&o.seed, "seed", "outsource", "Seed strategy when no solution is given: 'outsource' or 'greedy'.")
	fs.StringVar(&o.format, "format", "text", "Output format: 'text' or 'json'.")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: 'debug', 'info', 'warn' or 'error'. Defaults to the config value.")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format: 'text' or 'json'. Defaults to the config value.")
	fs.StringVar(&o.configPath, "config", getenv("CONFIG_FILE"), "Path to a YAML config file.")
	fs.StringVar(&o.sqlitePath, "sqlite", "", "Persist the instance and evaluation to this SQLite file.")
	version := fs.Bool("version", false, "Print version information and exit.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil
		}
		return nil, &ExitError{Code: exitUsage, Message: err.Error()}
	}
	if *version {
		fmt.Fprintln(stdout, "pdpeval", buildinfo.String())
		return nil, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, usageErr("expected exactly one INSTANCE_FILE, got %d arguments", fs.NArg())
	}
	o.instancePath = fs.Arg(0)

	o.format = strings.ToLower(o.format)
	if o.format != "text" && o.format != "json" {
		return nil, usageErr("invalid format %q: must be 'text' or 'json'", o.format)
	}
	return &o, nil
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	o, err := parseArgs(args, stdout, stderr, getenv)
	if err != nil || o == nil {
		return err
	}

	cfg, err := config.Load(o.configPath, getenv)
	if err != nil {
		return usageErr("%v", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
	logger, err := logging.New(stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return usageErr("%v", err)
	}
	ctx = logging.WithLogger(ctx, logger)

	src, err := os.ReadFile(o.instancePath)
	if err != nil {
		return fmt.Errorf("read instance: %w", err)
	}
	in, err := problem.ParseBytes(src)
	if err != nil {
		return usageErr("%s: %v", o.instancePath, err)
	}
	logger.Debug("instance loaded", "path", o.instancePath,
		"nodes", in.Nodes, "vehicles", in.NumVehicles(), "calls", in.NumCalls())

	sol, strategy, err := solutionFor(in, o)
	if err != nil {
		return err
	}
	res, err := opt.Evaluate(in, sol)
	if err != nil {
		return usageErr("solution: %v", err)
	}
	logger.Debug("solution evaluated", "feasible", res.Feasible, "penalty", res.Penalty, "cost", res.Cost)

	rep := report{
		Instance:      o.instancePath,
		Nodes:         in.Nodes,
		Vehicles:      in.NumVehicles(),
		Calls:         in.NumCalls(),
		Compatibility: in.CompatibilityTable(),
		Solution:      sol,
		Strategy:      string(strategy),
		Result:        res,
	}
	if cfg.SQLitePath != "" {
		ev, err := persist(ctx, cfg.SQLitePath, o.instancePath, src, in, sol, strategy, res)
		if err != nil {
			return err
		}
		rep.InstanceID = ev.InstanceID
		rep.EvaluationID = ev.ID
	}

	if o.format == "json" {
		return writeJSON(stdout, rep)
	}
	return writeText(stdout, rep)
}

// solutionFor parses -solution or builds a seed. strategy is empty for an
// explicit solution.
func solutionFor(in *problem.Instance, o *options) (opt.Solution, opt.Strategy, error) {
	if o.solution != "" {
		sol, err := opt.ParseSolution(o.solution)
		if err != nil {
			return nil, "", usageErr("solution: %v", err)
		}
		return sol, "", nil
	}
	strategy, err := opt.ParseStrategy(o.seed)
	if err != nil {
		return nil, "", usageErr("%v", err)
	}
	sol, err := opt.Seed(in, strategy)
	if err != nil {
		return nil, "", err
	}
	return sol, strategy, nil
}

func persist(ctx context.Context, path, name string, src []byte, in *problem.Instance,
	sol opt.Solution, strategy opt.Strategy, res opt.Result) (model.Evaluation, error) {
	logger := logging.FromContext(ctx)
	st, err := store.NewSQLite(ctx, path)
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("close store", "path", path, "err", err)
		}
	}()

	rec, err := st.SaveInstance(ctx, model.Instance{
		Name:     name,
		Nodes:    in.Nodes,
		Vehicles: in.NumVehicles(),
		Calls:    in.NumCalls(),
		Checksum: problem.Checksum(src),
		Source:   string(src),
	})
	if err != nil {
		return model.Evaluation{}, err
	}
	ev := model.NewEvaluation(rec.ID, sol, res)
	ev.Strategy = string(strategy)
	ev, err = st.SaveEvaluation(ctx, ev)
	if err != nil {
		return model.Evaluation{}, err
	}
	logger.Info("evaluation stored", "path", path, "instanceId", rec.ID, "evaluationId", ev.ID)
	return ev, nil
}
