package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"
	"roundjudge/internal/domain/repository"
	"roundjudge/internal/platform/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const popTimeout = 5 * time.Second

// Evaluator runs one submission through the pipeline.
type Evaluator interface {
	Submit(ctx context.Context, req model.SubmitRequest) (*model.SubmitResult, error)
}

// SubmissionWorker consumes queued submission jobs and stores their outcome.
type SubmissionWorker struct {
	rdb       *redis.Client
	jobRepo   repository.SubmissionJobRepository
	evaluator Evaluator
	queueName string
	workers   int
	logger    *zap.SugaredLogger
}

func NewSubmissionWorker(rdb *redis.Client, jobRepo repository.SubmissionJobRepository, evaluator Evaluator, queueName string, workers int) *SubmissionWorker {
	if workers <= 0 {
		workers = 1
	}
	return &SubmissionWorker{
		rdb:       rdb,
		jobRepo:   jobRepo,
		evaluator: evaluator,
		queueName: queueName,
		workers:   workers,
		logger:    logger.NewNamedLogger("submission_worker"),
	}
}

// Start runs the consumers and blocks until ctx is cancelled and every
// in-flight job has been stored.
func (w *SubmissionWorker) Start(ctx context.Context) {
	w.logger.Infof("Submission worker started with %d consumers on queue %s", w.workers, w.queueName)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.consume(ctx, id)
		}(i)
	}
	wg.Wait()
	w.logger.Info("Submission worker stopped")
}

func (w *SubmissionWorker) consume(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}
		res, err := w.rdb.BRPop(ctx, popTimeout, w.queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.logger.Errorf("Consumer %d failed to pop from %s: %v", id, w.queueName, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			w.logger.Warn("BRPop returned an empty job id")
			continue
		}
		w.ProcessJob(ctx, res[1])
	}
}

// ProcessJob evaluates one job and saves the result or the typed failure.
func (w *SubmissionWorker) ProcessJob(ctx context.Context, jobID string) {
	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		w.logger.Errorf("Failed to load job %s: %v", jobID, err)
		return
	}

	job.Status = model.JobStatusProcessing
	if err := w.jobRepo.SaveJob(ctx, job); err != nil {
		w.logger.Warnf("Failed to mark job %s as processing: %v", job.ID, err)
	}

	result, err := w.evaluator.Submit(ctx, job.Request)
	if err != nil {
		msg := err.Error()
		job.Status = model.JobStatusFailed
		job.Error = &msg
		job.ErrorCode = common.HTTPStatusFromError(err)
		w.logger.Warnf("Job %s failed: %v", job.ID, err)
	} else {
		job.Status = model.JobStatusCompleted
		job.Result = result
		w.logger.Infof("Job %s completed with score %d", job.ID, result.Score)
	}

	// Store the outcome even if shutdown cancelled ctx mid-evaluation.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.jobRepo.SaveJob(saveCtx, job); err != nil {
		w.logger.Errorf("Failed to save outcome of job %s: %v", job.ID, err)
	}
}
