package model

import "time"

type ScorePolicy string

const (
	// ScorePolicyLatest stores whatever the latest committed submission scored.
	ScorePolicyLatest ScorePolicy = "latest"
	// ScorePolicyKeepBest never lowers a stored round score.
	ScorePolicyKeepBest ScorePolicy = "best"
)

func ParseScorePolicy(s string) ScorePolicy {
	if ScorePolicy(s) == ScorePolicyKeepBest {
		return ScorePolicyKeepBest
	}
	return ScorePolicyLatest
}

// UserProgression is a participant's contest state. Version is the optimistic
// concurrency token; every committed write bumps it by one.
type UserProgression struct {
	UserID       string      `json:"user_id"`
	Username     string      `json:"username"`
	CurrentRound int         `json:"current_round"`
	Scores       map[int]int `json:"scores"`
	TotalScore   int         `json:"total_score"`
	Version      int64       `json:"-"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func NewUserProgression(userID, username string) *UserProgression {
	return &UserProgression{
		UserID:       userID,
		Username:     username,
		CurrentRound: 1,
		Scores:       map[int]int{},
	}
}

// ScoreFor returns the stored score of a round, 0 for rounds never submitted.
func (p *UserProgression) ScoreFor(round int) int {
	return p.Scores[round]
}

// ApplyResult is the only mutator of Scores, TotalScore and CurrentRound.
// It returns true when the submission unlocked the next round.
func (p *UserProgression) ApplyResult(round, score int, allPassed bool, policy ScorePolicy) bool {
	if p.Scores == nil {
		p.Scores = map[int]int{}
	}
	if policy == ScorePolicyKeepBest {
		if prev, ok := p.Scores[round]; !ok || score > prev {
			p.Scores[round] = score
		}
	} else {
		p.Scores[round] = score
	}

	total := 0
	for _, s := range p.Scores {
		total += s
	}
	p.TotalScore = total

	if allPassed && round == p.CurrentRound {
		p.CurrentRound++
		return true
	}
	return false
}

func (p *UserProgression) RoundStatus(round int) RoundStatus {
	switch {
	case round < p.CurrentRound:
		return RoundCompleted
	case round == p.CurrentRound:
		return RoundAvailable
	default:
		return RoundLocked
	}
}

func (p *UserProgression) Clone() *UserProgression {
	c := *p
	c.Scores = make(map[int]int, len(p.Scores))
	for k, v := range p.Scores {
		c.Scores[k] = v
	}
	return &c
}
