package service

import (
	"context"
	"fmt"
	"time"

	"roundjudge/internal/common"
	"roundjudge/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// SubmissionGuard makes sure one submission attempt is evaluated at most once
// at a time. Only callers that send an idempotency key are deduplicated;
// distinct submissions for the same round are all applied.
type SubmissionGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewSubmissionGuard(rdb *redis.Client, ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.NewNamedLogger("submission_guard"),
	}
}

// GuardKey builds the lock key of an attempt identified by the caller's
// idempotency key.
func GuardKey(userID, idempotencyKey string) string {
	return fmt.Sprintf("submission_guard:%s:%s", userID, idempotencyKey)
}

// Acquire takes the lock for key. The returned release func must be called
// once evaluation is over; it is a no-op if the lock expired meanwhile.
func (g *SubmissionGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, common.Errorf("acquire submission guard %s: %w", key, err)
	}
	if !ok {
		g.logger.Infof("Rejected duplicate submission for %s", key)
		return nil, common.Errorf("%s: %w", key, common.ErrDuplicateSubmission)
	}

	release := func() {
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(ctx, g.rdb, []string{key}, token).Int64()
		if err != nil {
			g.logger.Errorf("Failed to release submission guard %s: %v", key, err)
			return
		}
		if deleted == 0 {
			g.logger.Warnf("Submission guard %s expired before release", key)
		}
	}
	return release, nil
}
