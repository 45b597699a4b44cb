package service

import (
	"context"
	"errors"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
	"roundjudge/internal/platform/logger"

	"go.uber.org/zap"
)

const defaultProgressionAttempts = 5

// ProgressionService commits scored submissions to a participant's record
// using optimistic concurrency on the record version.
type ProgressionService struct {
	userRepo    repository.UserRepository
	policy      model.ScorePolicy
	maxAttempts int
	logger      *zap.SugaredLogger
}

func NewProgressionService(userRepo repository.UserRepository, policy model.ScorePolicy, maxAttempts int) *ProgressionService {
	if maxAttempts <= 0 {
		maxAttempts = defaultProgressionAttempts
	}
	return &ProgressionService{
		userRepo:    userRepo,
		policy:      policy,
		maxAttempts: maxAttempts,
		logger:      logger.NewNamedLogger("progression_service"),
	}
}

// Apply records score for roundID and advances the participant when every
// test passed on their current round. The whole read-modify-write is retried
// when another writer commits first.
func (s *ProgressionService) Apply(ctx context.Context, userID string, roundID, score int, allPassed bool) (*model.UserProgression, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		p, err := s.userRepo.FindProgression(ctx, userID)
		if err != nil {
			return nil, common.Errorf("load progression for %s: %w", userID, err)
		}
		if roundID > p.CurrentRound {
			return nil, common.Errorf("round %d is locked for user %s: %w", roundID, userID, common.ErrForbidden)
		}

		readVersion := p.Version
		advanced := p.ApplyResult(roundID, score, allPassed, s.policy)

		err = s.userRepo.UpdateProgression(ctx, p, readVersion)
		if err == nil {
			if advanced {
				s.logger.Infof("User %s advanced to round %d", userID, p.CurrentRound)
			}
			return p, nil
		}
		if !errors.Is(err, repository.ErrStaleVersion) {
			return nil, common.Errorf("save progression for %s: %w", userID, err)
		}
		s.logger.Debugf("Progression of %s changed concurrently (attempt %d/%d)", userID, attempt, s.maxAttempts)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	s.logger.Warnf("Giving up updating progression of %s after %d attempts", userID, s.maxAttempts)
	return nil, common.Errorf("update progression for %s: %w", userID, common.ErrConcurrencyConflict)
}

// Get returns the current record without modifying it.
func (s *ProgressionService) Get(ctx context.Context, userID string) (*model.UserProgression, error) {
	return s.userRepo.FindProgression(ctx, userID)
}
