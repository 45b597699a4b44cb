package service

import (
	"context"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"

	"github.com/gosimple/slug"
)

// RoundService builds a participant's view of the contest rounds.
type RoundService struct {
	challengeRepo repository.ChallengeRepository
	userRepo      repository.UserRepository
}

func NewRoundService(challengeRepo repository.ChallengeRepository, userRepo repository.UserRepository) *RoundService {
	return &RoundService{challengeRepo: challengeRepo, userRepo: userRepo}
}

// ListRounds returns every round with its status for userID. Locked rounds
// only expose their number and status.
func (s *RoundService) ListRounds(ctx context.Context, userID string) ([]model.RoundInfo, error) {
	user, err := s.userRepo.FindProgression(ctx, userID)
	if err != nil {
		return nil, common.Errorf("user %s: %w", userID, err)
	}
	challenges, err := s.challengeRepo.ListRounds(ctx)
	if err != nil {
		return nil, common.Errorf("list rounds: %w", err)
	}

	rounds := make([]model.RoundInfo, 0, len(challenges))
	for _, c := range challenges {
		info := model.RoundInfo{
			Round:  c.Round,
			Status: user.RoundStatus(c.Round),
			Score:  user.ScoreFor(c.Round),
		}
		if info.Status != model.RoundLocked {
			info.Title = c.Title
			info.Description = c.Description
			info.Slug = c.Slug
			if info.Slug == "" {
				info.Slug = slug.Make(c.Title)
			}
		}
		rounds = append(rounds, info)
	}
	return rounds, nil
}

// Challenge returns the challenge of an unlocked round without its test cases.
func (s *RoundService) Challenge(ctx context.Context, userID string, round int) (*model.Challenge, error) {
	user, err := s.userRepo.FindProgression(ctx, userID)
	if err != nil {
		return nil, common.Errorf("user %s: %w", userID, err)
	}
	if user.RoundStatus(round) == model.RoundLocked {
		return nil, common.Errorf("round %d is locked: %w", round, common.ErrForbidden)
	}
	c, err := s.challengeRepo.FindByRound(ctx, round)
	if err != nil {
		return nil, common.Errorf("challenge for round %d: %w", round, err)
	}
	out := *c
	out.TestCases = nil
	if out.Slug == "" {
		out.Slug = slug.Make(out.Title)
	}
	return &out, nil
}
