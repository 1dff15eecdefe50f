// Package runner executes suites. Tests without back-references run
// concurrently on a bounded pool; once all of them have finished, tests with
// back-references run one at a time in declaration order.
package runner

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/argus-api/argus/internal/httpclient"
	"github.com/argus-api/argus/internal/logging"
	"github.com/argus-api/argus/internal/store"
	"github.com/argus-api/argus/internal/suite"
)

// Doer performs HTTP exchanges. *httpclient.Client satisfies it.
type Doer interface {
	Do(ctx context.Context, r httpclient.Request) (*httpclient.Response, error)
}

// Options configures a Scheduler.
type Options struct {
	// HTTP performs requests; a default httpclient.Client when nil.
	HTTP Doer
	// Logs supplies loggers; output is discarded when nil.
	Logs *logging.Factory
	// Workers bounds concurrent independent tests. Zero means GOMAXPROCS.
	Workers int
}

// Scheduler runs suites. It holds no per-run state, so one Scheduler can run
// several suites, sequentially or concurrently.
type Scheduler struct {
	http    Doer
	logs    *logging.Factory
	workers int
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	s := &Scheduler{
		http:    opts.HTTP,
		logs:    opts.Logs,
		workers: opts.Workers,
	}
	if s.http == nil {
		s.http = httpclient.New(httpclient.Options{})
	}
	if s.logs == nil {
		s.logs = logging.Nop()
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Plan splits a suite's test indexes into independent and dependent tests,
// each in declaration order.
func Plan(su *suite.Suite) (independent, dependent []int) {
	for i, raw := range su.Tests {
		if suite.HasBackReference(raw) {
			dependent = append(dependent, i)
		} else {
			independent = append(independent, i)
		}
	}
	return independent, dependent
}

// Run executes every test in su and returns the populated store. A failing
// test never stops the others.
func (s *Scheduler) Run(ctx context.Context, su *suite.Suite) *store.Store {
	start := time.Now()
	st := store.New()
	log := s.logs.Logger().With(zap.String("suite", su.Source))

	independent, dependent := Plan(su)
	log.Debug("planned suite",
		zap.Int("independent", len(independent)),
		zap.Int("dependent", len(dependent)),
		zap.Int("workers", s.workers),
		zap.Stringer("level", s.logs.Level()),
	)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, idx := range independent {
		idx := idx
		g.Go(func() error {
			st.Append(s.Execute(ctx, su, idx, st))
			return nil
		})
	}
	_ = g.Wait()
	if len(dependent) > 0 {
		log.Debug("running dependent tests", zap.Strings("captured", st.Names()))
	}

	for _, idx := range dependent {
		st.Append(s.Execute(ctx, su, idx, st))
	}

	passed, failed := st.Summary()
	log.Info("suite finished",
		zap.Int("passed", passed),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return st
}
