package service

import (
	"context"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/platform/execution"
	"roundjudge/internal/platform/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultTestRunWorkers = 4

// TestRunService runs a piece of code against every test case of a challenge.
type TestRunService struct {
	executor execution.Executor
	workers  int
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// NewTestRunService bounds in-flight executions by workers; timeout is the
// per-case budget handed to the executor as a deadline.
func NewTestRunService(executor execution.Executor, workers int, timeout time.Duration) *TestRunService {
	if workers <= 0 {
		workers = defaultTestRunWorkers
	}
	return &TestRunService{
		executor: executor,
		workers:  workers,
		timeout:  timeout,
		logger:   logger.NewNamedLogger("testrun_service"),
	}
}

// RunAll executes code once per case and attributes every verdict to the
// index of the case it came from. A case passes when its trimmed stdout
// equals the expected output, whatever status the execution ended with, so
// a runtime error that printed the right answer still counts. Service
// failures never pass. A failing case never aborts the rest of the run.
func (s *TestRunService) RunAll(ctx context.Context, code string, language model.Language, cases []model.TestCase) (*model.TestRunReport, error) {
	if len(cases) == 0 {
		return nil, common.Errorf("challenge has no test cases: %w", common.ErrConfiguration)
	}

	results := make([]model.CaseResult, len(cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, tc := range cases {
		g.Go(func() error {
			deadline := s.executor.Now().Add(s.timeout)
			verdict := s.executor.Execute(gctx, code, language, tc.Input, deadline)
			passed := !verdict.IsServiceFailure() && tc.Matches(verdict.Stdout)
			results[i] = model.CaseResult{
				Index:  i,
				Passed: passed,
				Status: verdict.StatusDescription,
				Kind:   verdict.Kind,
			}
			if verdict.IsServiceFailure() {
				s.logger.Warnf("Test case %d not evaluated: %s", i, verdict.StatusDescription)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &model.TestRunReport{TotalTests: len(cases), Results: results}
	for _, r := range results {
		if r.Passed {
			report.TestsPassed++
		}
	}
	s.logger.Debugf("Test run finished: %d/%d passed", report.TestsPassed, report.TotalTests)
	return report, nil
}
