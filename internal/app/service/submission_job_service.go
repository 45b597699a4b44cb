package service

import (
	"context"
	"net/http"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
	"roundjudge/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SubmissionJobService queues submissions for the background workers and
// exposes their state.
type SubmissionJobService struct {
	jobRepo   repository.SubmissionJobRepository
	rdb       *redis.Client
	queueName string
	logger    *zap.SugaredLogger
}

func NewSubmissionJobService(jobRepo repository.SubmissionJobRepository, rdb *redis.Client, queueName string) *SubmissionJobService {
	return &SubmissionJobService{
		jobRepo:   jobRepo,
		rdb:       rdb,
		queueName: queueName,
		logger:    logger.NewNamedLogger("submission_job_service"),
	}
}

// Enqueue stores a job record and pushes its id onto the queue.
func (s *SubmissionJobService) Enqueue(ctx context.Context, req model.SubmitRequest) (*model.SubmissionJob, error) {
	job := &model.SubmissionJob{
		ID:      uuid.NewString(),
		Request: req,
		Status:  model.JobStatusQueued,
	}
	if err := s.jobRepo.CreateJob(ctx, job); err != nil {
		return nil, common.Errorf("failed to create submission job: %w", err)
	}

	if err := s.rdb.LPush(ctx, s.queueName, job.ID).Err(); err != nil {
		// The record expires on its own; mark it failed so pollers stop waiting.
		msg := "failed to enqueue job"
		job.Status = model.JobStatusFailed
		job.Error = &msg
		job.ErrorCode = http.StatusServiceUnavailable
		if saveErr := s.jobRepo.SaveJob(ctx, job); saveErr != nil {
			s.logger.Errorf("Failed to mark job %s as failed: %v", job.ID, saveErr)
		}
		return nil, common.Errorf("failed to push job %s to queue: %v: %w", job.ID, err, common.ErrServiceUnavailable)
	}

	s.logger.Infof("Submission job %s queued for user %s round %d", job.ID, req.UserID, req.RoundID)
	return job, nil
}

// Job returns a job owned by userID. Jobs of other users are reported as
// missing.
func (s *SubmissionJobService) Job(ctx context.Context, userID, jobID string) (*model.SubmissionJob, error) {
	job, err := s.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Request.UserID != userID {
		return nil, common.ErrNotFound
	}
	return job, nil
}
