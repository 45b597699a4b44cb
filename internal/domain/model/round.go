package model

type RoundStatus string

const (
	RoundLocked    RoundStatus = "locked"
	RoundAvailable RoundStatus = "available"
	RoundCompleted RoundStatus = "completed"
)

// RoundInfo is one dashboard row for a participant.
type RoundInfo struct {
	Round       int         `json:"round"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Status      RoundStatus `json:"status"`
	Score       int         `json:"score"`
}
