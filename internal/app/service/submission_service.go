package service

import (
	"context"
	"strings"
	"time"

	"roundjudge/internal/app/scoring"
	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
	"roundjudge/internal/platform/execution"
	"roundjudge/internal/platform/logger"

	"go.uber.org/zap"
)

// SubmissionService is the evaluation pipeline: validate, run every test
// case, score, then commit to the participant's progression.
type SubmissionService struct {
	challengeRepo repository.ChallengeRepository
	testRuns      *TestRunService
	progression   *ProgressionService
	executor      execution.Executor
	guard         *SubmissionGuard // optional
	runTimeout    time.Duration
	logger        *zap.SugaredLogger
}

func NewSubmissionService(
	challengeRepo repository.ChallengeRepository,
	testRuns *TestRunService,
	progression *ProgressionService,
	executor execution.Executor,
	guard *SubmissionGuard,
	runTimeout time.Duration,
) *SubmissionService {
	return &SubmissionService{
		challengeRepo: challengeRepo,
		testRuns:      testRuns,
		progression:   progression,
		executor:      executor,
		guard:         guard,
		runTimeout:    runTimeout,
		logger:        logger.NewNamedLogger("submission_service"),
	}
}

// Submit evaluates a scored submission. Every precondition is checked before
// the first execution so a rejected request never touches the record.
func (s *SubmissionService) Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.Errorf("code is required: %w", common.ErrBadRequest)
	}
	if req.RoundID <= 0 {
		return nil, common.Errorf("invalid round %d: %w", req.RoundID, common.ErrBadRequest)
	}

	if s.guard != nil && req.IdempotencyKey != "" {
		release, err := s.guard.Acquire(ctx, GuardKey(req.UserID, req.IdempotencyKey))
		if err != nil {
			return nil, err
		}
		defer release()
	}

	challenge, err := s.challengeRepo.FindByRound(ctx, req.RoundID)
	if err != nil {
		return nil, common.Errorf("challenge for round %d: %w", req.RoundID, err)
	}
	if len(challenge.TestCases) == 0 {
		s.logger.Errorf("Challenge of round %d has no test cases", req.RoundID)
		return nil, common.Errorf("round %d has no test cases: %w", req.RoundID, common.ErrConfiguration)
	}

	user, err := s.progression.Get(ctx, req.UserID)
	if err != nil {
		return nil, common.Errorf("user %s: %w", req.UserID, err)
	}
	if req.RoundID > user.CurrentRound {
		return nil, common.Errorf("round %d is locked for user %s: %w", req.RoundID, req.UserID, common.ErrForbidden)
	}

	report, err := s.testRuns.RunAll(ctx, req.Code, challenge.Language, challenge.TestCases)
	if err != nil {
		return nil, err
	}
	// Cases cut short by a cancelled request would score as failures.
	if err := ctx.Err(); err != nil {
		s.logger.Warnf("Evaluation of round %d for %s interrupted: %v", req.RoundID, req.UserID, err)
		return nil, common.Errorf("evaluation interrupted before all test cases finished: %v: %w", err, common.ErrServiceUnavailable)
	}

	score := scoring.Calculate(report.TestsPassed, report.TotalTests, req.TimeLeftSeconds, challenge.AllottedSeconds())

	progression, err := s.progression.Apply(ctx, req.UserID, req.RoundID, score, report.AllPassed())
	if err != nil {
		return nil, err
	}

	s.logger.Infof("User %s scored %d on round %d (%d/%d tests)",
		req.UserID, score, req.RoundID, report.TestsPassed, report.TotalTests)

	return &model.SubmitResult{
		Score:       score,
		TestsPassed: report.TestsPassed,
		TotalTests:  report.TotalTests,
		NextRound:   progression.CurrentRound,
	}, nil
}

// Run executes code once against stdin with no scoring side effects.
func (s *SubmissionService) Run(ctx context.Context, req model.RunRequest) (*model.RunResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.Errorf("code is required: %w", common.ErrBadRequest)
	}
	language := model.ParseLanguage(req.Language)
	deadline := s.executor.Now().Add(s.runTimeout)
	verdict := s.executor.Execute(ctx, req.Code, language, req.Stdin, deadline)
	return &model.RunResult{Output: verdict.Output(), Status: verdict.StatusDescription}, nil
}
