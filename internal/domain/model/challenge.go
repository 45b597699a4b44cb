package model

import (
	"strings"
	"time"
)

type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "easy"
	DifficultyMedium ChallengeDifficulty = "medium"
	DifficultyHard   ChallengeDifficulty = "hard"
)

// Challenge is the problem bound to a contest round. The evaluation core only reads it.
type Challenge struct {
	Round            int                 `json:"round"`
	Title            string              `json:"title"`
	Slug             string              `json:"slug"`
	Description      string              `json:"description"`
	Language         Language            `json:"language"`
	InitialCode      string              `json:"initial_code"`
	TestCases        []TestCase          `json:"test_cases,omitempty"` // Hidden, never serialized to participants
	TimeLimitMinutes int                 `json:"time_limit_minutes"`
	Difficulty       ChallengeDifficulty `json:"difficulty,omitempty"`
	Points           int                 `json:"points"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
}

// AllottedSeconds is the full time budget of the round.
func (c *Challenge) AllottedSeconds() int {
	return c.TimeLimitMinutes * 60
}

// Matches reports whether actual output is accepted for this case.
func (tc TestCase) Matches(stdout string) bool {
	return strings.TrimSpace(stdout) == strings.TrimSpace(tc.ExpectedOutput)
}
