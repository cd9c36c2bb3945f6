package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// quotaTTL keeps a day's counter around long enough to survive clock skew
// around midnight before Redis reclaims it.
const quotaTTL = 48 * time.Hour

// quotaScript performs the check-and-increment atomically on the Redis side.
// A separate read-then-write would be a check-then-act race under concurrent
// requests. Returns -1 when the cap is already reached (no increment), the
// new count otherwise.
var quotaScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
    return -1
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return count
`)

// QuotaService enforces the per-user-per-UTC-day cap on gated operations
// (submitting code, ad hoc runs).
type QuotaService struct {
	rdb   *redis.Client
	limit int
	log   *zap.Logger
	now   func() time.Time
}

func NewQuotaService(rdb *redis.Client, limit int, log *zap.Logger) *QuotaService {
	return &QuotaService{rdb: rdb, limit: limit, log: log, now: time.Now}
}

// CheckAndConsume consumes one unit of today's quota. Admins bypass the cap:
// their usage is still incremented for observability but never consulted for
// the gating decision. Users over the cap get ErrQuotaExceeded and the gated
// operation must not run.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID, role string) error {
	key := quotaKey(userID, s.today())

	if role == model.RoleAdmin {
		count, err := s.rdb.Incr(ctx, key).Result()
		if err != nil {
			// Recording is best effort for admins; the bypass stands.
			s.log.Warn("failed to record admin usage", zap.String("user_id", userID), zap.Error(err))
			return nil
		}
		if count == 1 {
			s.rdb.Expire(ctx, key, quotaTTL)
		}
		return nil
	}

	count, err := quotaScript.Run(ctx, s.rdb, []string{key}, s.limit, int(quotaTTL/time.Second)).Int64()
	if err != nil {
		// Fail closed: an unreadable counter must not grant free executions.
		return fmt.Errorf("quota check for user %s: %v: %w", userID, err, common.ErrInternalServer)
	}
	if count < 0 {
		return common.ErrQuotaExceeded
	}
	return nil
}

// Usage reads today's counter without consuming from it.
func (s *QuotaService) Usage(ctx context.Context, userID string) (*model.UsageRecord, error) {
	day := s.today()
	count, err := s.rdb.Get(ctx, quotaKey(userID, day)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reading usage for user %s: %w", userID, err)
	}
	return &model.UsageRecord{UserID: userID, Day: day, Count: count}, nil
}

func (s *QuotaService) today() string {
	return s.now().UTC().Format("20060102")
}

func quotaKey(userID, day string) string {
	return "quota:" + userID + ":" + day
}
