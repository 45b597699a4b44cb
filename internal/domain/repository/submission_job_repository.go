package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// SubmissionJobRepository stores async submission jobs. Jobs are transient, so
// they live in Redis with a TTL instead of Postgres.
type SubmissionJobRepository interface {
	CreateJob(ctx context.Context, job *model.SubmissionJob) error
	GetJobByID(ctx context.Context, id string) (*model.SubmissionJob, error)
	SaveJob(ctx context.Context, job *model.SubmissionJob) error
}

type redisSubmissionJobRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisSubmissionJobRepository(rdb *redis.Client, ttl time.Duration) SubmissionJobRepository {
	return &redisSubmissionJobRepository{rdb: rdb, ttl: ttl}
}

func jobKey(id string) string {
	return "submission_job:" + id
}

func (r *redisSubmissionJobRepository) CreateJob(ctx context.Context, job *model.SubmissionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisSubmissionJobRepository.CreateJob marshal: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, jobKey(job.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redisSubmissionJobRepository.CreateJob: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists: %w", job.ID, common.ErrConflict)
	}
	return nil
}

func (r *redisSubmissionJobRepository) GetJobByID(ctx context.Context, id string) (*model.SubmissionJob, error) {
	data, err := r.rdb.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisSubmissionJobRepository.GetJobByID: %w", err)
	}
	job := &model.SubmissionJob{}
	if err := json.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("redisSubmissionJobRepository.GetJobByID unmarshal: %w", err)
	}
	return job, nil
}

func (r *redisSubmissionJobRepository) SaveJob(ctx context.Context, job *model.SubmissionJob) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redisSubmissionJobRepository.SaveJob marshal: %w", err)
	}
	if err := r.rdb.Set(ctx, jobKey(job.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redisSubmissionJobRepository.SaveJob: %w", err)
	}
	return nil
}
