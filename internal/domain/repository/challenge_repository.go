package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
)

// ChallengeRepository is a read-only view of the challenge store.
type ChallengeRepository interface {
	FindByRound(ctx context.Context, round int) (*model.Challenge, error)
	ListRounds(ctx context.Context) ([]model.Challenge, error) // without test cases
}

type pgChallengeRepository struct {
	db *sql.DB
}

func NewPgChallengeRepository(db *sql.DB) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

func (r *pgChallengeRepository) FindByRound(ctx context.Context, round int) (*model.Challenge, error) {
	query := `SELECT round, title, slug, description, language, initial_code, test_cases,
	                 time_limit_minutes, difficulty, points, created_at, updated_at
	          FROM challenges WHERE round = $1`

	c := &model.Challenge{}
	var testCases []byte
	var difficulty sql.NullString
	err := r.db.QueryRowContext(ctx, query, round).Scan(
		&c.Round, &c.Title, &c.Slug, &c.Description, &c.Language, &c.InitialCode, &testCases,
		&c.TimeLimitMinutes, &difficulty, &c.Points, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindByRound: %w", err)
	}
	c.Difficulty = model.ChallengeDifficulty(difficulty.String)

	if len(testCases) > 0 {
		if err := json.Unmarshal(testCases, &c.TestCases); err != nil {
			return nil, fmt.Errorf("malformed test cases for round %d: %v: %w", round, err, common.ErrConfiguration)
		}
	}
	return c, nil
}

func (r *pgChallengeRepository) ListRounds(ctx context.Context) ([]model.Challenge, error) {
	query := `SELECT round, title, slug, description, language, time_limit_minutes, points
	          FROM challenges ORDER BY round ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListRounds query: %w", err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		var c model.Challenge
		if err := rows.Scan(&c.Round, &c.Title, &c.Slug, &c.Description, &c.Language, &c.TimeLimitMinutes, &c.Points); err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListRounds scan: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListRounds rows.Err: %w", err)
	}
	return challenges, nil
}
