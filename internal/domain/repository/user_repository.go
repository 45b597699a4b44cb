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

// ErrStaleVersion is returned by a conditional write whose version no longer matches.
var ErrStaleVersion = errors.New("stale progression version")

// UserRepository reads progression records and writes them back conditionally.
type UserRepository interface {
	FindProgression(ctx context.Context, userID string) (*model.UserProgression, error)
	// UpdateProgression persists p only if the stored version equals expectedVersion,
	// then sets p.Version to the new version.
	UpdateProgression(ctx context.Context, p *model.UserProgression, expectedVersion int64) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) FindProgression(ctx context.Context, userID string) (*model.UserProgression, error) {
	query := `SELECT id, username, current_round, scores, total_score, version, updated_at
	          FROM users WHERE id = $1`

	p := &model.UserProgression{}
	var scores []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &p.CurrentRound, &scores, &p.TotalScore, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindProgression: %w", err)
	}

	p.Scores = map[int]int{}
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &p.Scores); err != nil {
			return nil, fmt.Errorf("pgUserRepository.FindProgression decode scores: %w", err)
		}
	}
	return p, nil
}

func (r *pgUserRepository) UpdateProgression(ctx context.Context, p *model.UserProgression, expectedVersion int64) error {
	scores, err := json.Marshal(p.Scores)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProgression encode scores: %w", err)
	}

	query := `UPDATE users
	          SET current_round = $1, scores = $2, total_score = $3,
	              version = version + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4 AND version = $5
	          RETURNING version, updated_at`
	err = r.db.QueryRowContext(ctx, query, p.CurrentRound, string(scores), p.TotalScore, p.UserID, expectedVersion).
		Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStaleVersion
		}
		return fmt.Errorf("pgUserRepository.UpdateProgression: %w", err)
	}
	return nil
}
