package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/argus-api/argus/internal/config"
	"github.com/argus-api/argus/internal/httpclient"
	"github.com/argus-api/argus/internal/logging"
	"github.com/argus-api/argus/internal/report"
	"github.com/argus-api/argus/internal/runner"
	"github.com/argus-api/argus/internal/suite"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

var (
	errTestsFailed = errors.New("one or more tests failed")
	errNoSuites    = errors.New("no test suites found")
)

// reportError marks a failure to write a report after the suites ran.
type reportError struct{ err error }

func (e *reportError) Error() string { return e.err.Error() }
func (e *reportError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errTestsFailed), errors.Is(err, errNoSuites):
		return exitFailed
	case errors.As(err, new(*reportError)):
		fmt.Fprintf(stderr, "argus: %v\n", err)
		return exitFailed
	default:
		fmt.Fprintf(stderr, "argus: %v\n", err)
		return exitUsage
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "argus [suite.yml...]",
		Short:         "Run declarative API test suites",
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configPath)
			if err != nil {
				return err
			}
			return runSuites(cmd.Context(), cfg, args, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default ./argus.yaml if present)")
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "argus %s\n", version)
		},
	})
	return cmd
}

func runSuites(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer) error {
	logs, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		NoColor: cfg.NoColor,
		Output:  zapcore.AddSync(stderr),
	})
	if err != nil {
		return err
	}
	defer logs.Sync()
	log := logs.Logger()
	if cfg.File != "" {
		log.Debug("loaded config", zap.String("file", cfg.File))
	}

	paths, err := suitePaths(args, cfg.File)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Warn("no test suites found in the working directory")
		return errNoSuites
	}

	sched := runner.New(runner.Options{
		HTTP:    httpclient.New(httpclient.Options{Timeout: cfg.Timeout, UserAgent: "argus/" + version}),
		Logs:    logs,
		Workers: cfg.Workers,
	})

	var suites []report.Suite
	for _, path := range paths {
		s := runOne(ctx, sched, log, path, cfg.Ordered)
		suites = append(suites, s)
		if cfg.Format == config.FormatTable {
			if err := report.Table(stdout, s, report.Options{NoColor: cfg.NoColor}); err != nil {
				return &reportError{fmt.Errorf("writing table report: %w", err)}
			}
		}
	}

	if cfg.Format == config.FormatJSON {
		if err := report.JSON(stdout, suites); err != nil {
			return &reportError{fmt.Errorf("writing JSON report: %w", err)}
		}
	}
	if cfg.XLSX != "" {
		if err := report.WriteXLSX(cfg.XLSX, suites); err != nil {
			return &reportError{fmt.Errorf("writing spreadsheet report: %w", err)}
		}
		log.Info("wrote spreadsheet report", zap.String("path", cfg.XLSX))
	}

	for _, s := range suites {
		if s.Failed() {
			return errTestsFailed
		}
	}
	return nil
}

// runOne loads and runs a single suite. A suite that fails to load is
// reported and the remaining suites still run.
func runOne(ctx context.Context, sched *runner.Scheduler, log *zap.Logger, path string, ordered bool) report.Suite {
	start := time.Now()
	su, err := suite.Load(path)
	if err != nil {
		log.Error("failed to load suite", zap.String("suite", path), zap.Error(err))
		return report.Suite{Source: path, LoadError: err.Error(), Duration: time.Since(start)}
	}
	log.Info("running suite", zap.String("suite", path), zap.Int("tests", len(su.Tests)))

	st := sched.Run(ctx, su)
	return report.FromStore(path, st, time.Since(start), ordered)
}

// suitePaths returns the explicit paths after checking they all exist, or
// the suites discovered in the working directory when none are given.
// Discovery skips the config file.
func suitePaths(args []string, configFile string) ([]string, error) {
	if len(args) == 0 {
		found, err := suite.Discover(".")
		if err != nil {
			return nil, err
		}
		paths := found[:0]
		for _, p := range found {
			if isConfigFile(p, configFile) {
				continue
			}
			paths = append(paths, p)
		}
		return paths, nil
	}
	for _, p := range args {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("suite %s is a directory", p)
		}
	}
	return args, nil
}

func isConfigFile(path, configFile string) bool {
	base := filepath.Base(path)
	if base == config.DefaultConfigName+".yaml" || base == config.DefaultConfigName+".yml" {
		return true
	}
	if configFile == "" {
		return false
	}
	a, errA := filepath.Abs(path)
	b, errB := filepath.Abs(configFile)
	return errA == nil && errB == nil && a == b
}
