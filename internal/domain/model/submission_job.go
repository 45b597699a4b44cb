package model

import "time"

const (
	JobStatusQueued     = "Queued"
	JobStatusProcessing = "Processing"
	JobStatusCompleted  = "Completed"
	JobStatusFailed     = "Failed"
)

// SubmitRequest is one scored submission attempt.
type SubmitRequest struct {
	UserID          string `json:"user_id"`
	RoundID         int    `json:"round_id"`
	Code            string `json:"code"`
	TimeLeftSeconds int    `json:"time_left_seconds"`
	IdempotencyKey  string `json:"idempotency_key,omitempty"`
}

type SubmitResult struct {
	Score       int `json:"score"`
	TestsPassed int `json:"testsPassed"`
	TotalTests  int `json:"totalTests"`
	NextRound   int `json:"nextRound"`
}

type RunRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

type RunResult struct {
	Output string `json:"output"`
	Status string `json:"status"`
}

// SubmissionJob is an asynchronously evaluated submission stored in Redis.
type SubmissionJob struct {
	ID        string        `json:"id"`
	Request   SubmitRequest `json:"request"`
	Status    string        `json:"status"`
	Result    *SubmitResult `json:"result,omitempty"`
	Error     *string       `json:"error,omitempty"`
	ErrorCode int           `json:"error_code,omitempty"` // HTTP-equivalent status of a typed failure
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
