package worker

import (
	"context"
	"fmt"
	"time"

	"go-calendar-api/core/errors"
	"go-calendar-api/core/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	seriesLockTTL = 30 * time.Second
	seriesLockKey = "lock:series:%s"
)

// SeriesLocker serializes work on one MASTER series across processes.
// Materializing a series must not run concurrently with an update, split or
// cancel on the same series; both sides take this lock. Series are disjoint,
// so unrelated work never contends.
type SeriesLocker struct {
	rdb *redis.Client
}

func NewSeriesLocker(rdb *redis.Client) *SeriesLocker {
	return &SeriesLocker{rdb: rdb}
}

// WithSeriesLock runs fn while holding the series lock. A held lock fails
// fast with a conflict: callers retry via their own policy (HTTP callers
// resubmit, the task queue re-delivers).
func (l *SeriesLocker) WithSeriesLock(ctx context.Context, masterID uuid.UUID, fn func() error) error {
	key := fmt.Sprintf(seriesLockKey, masterID)
	token := utils.GenerateRandomString(16)

	ok, err := l.rdb.SetNX(ctx, key, token, seriesLockTTL).Result()
	if err != nil {
		return fmt.Errorf("acquire series lock: %w", err)
	}
	if !ok {
		return errors.NewAppError(errors.ErrConflict,
			"series is being modified by another operation, retry shortly", nil)
	}

	defer func() {
		// Release only our own token; an expired lock taken over by another
		// holder stays theirs.
		current, err := l.rdb.Get(ctx, key).Result()
		if err == nil && current == token {
			l.rdb.Del(ctx, key)
		}
	}()

	return fn()
}
