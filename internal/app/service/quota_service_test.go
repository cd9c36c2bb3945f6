package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaCheckAndConsumeEnforcesDailyCap(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 3, testLogger)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.CheckAndConsume(ctx, "user-1", model.RoleUser), "attempt %d", i+1)
	}

	err := q.CheckAndConsume(ctx, "user-1", model.RoleUser)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrQuotaExceeded))

	// The rejected attempt must not have consumed anything.
	usage, err := q.Usage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage.Count)
}

func TestQuotaAdminBypassesCap(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 2, testLogger)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, q.CheckAndConsume(ctx, "admin-1", model.RoleAdmin))
	}

	// Admin usage is still recorded even though the cap never applies.
	usage, err := q.Usage(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), usage.Count)
}

func TestQuotaCountersAreIsolatedPerUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 1, testLogger)
	ctx := context.Background()

	require.NoError(t, q.CheckAndConsume(ctx, "user-a", model.RoleUser))
	require.Error(t, q.CheckAndConsume(ctx, "user-a", model.RoleUser))
	require.NoError(t, q.CheckAndConsume(ctx, "user-b", model.RoleUser))
}

func TestQuotaResetsAtUTCMidnight(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 1, testLogger)
	ctx := context.Background()

	day1 := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)
	q.now = func() time.Time { return day1 }
	require.NoError(t, q.CheckAndConsume(ctx, "user-1", model.RoleUser))
	require.Error(t, q.CheckAndConsume(ctx, "user-1", model.RoleUser))

	q.now = func() time.Time { return day1.Add(2 * time.Minute) }
	require.NoError(t, q.CheckAndConsume(ctx, "user-1", model.RoleUser))
}

func TestQuotaFailsClosedWhenRedisIsDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 5, testLogger)
	ctx := context.Background()
	mr.Close()

	err := q.CheckAndConsume(ctx, "user-1", model.RoleUser)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInternalServer))

	// Admins keep working; their recording is best effort.
	assert.NoError(t, q.CheckAndConsume(ctx, "admin-1", model.RoleAdmin))
}

func TestQuotaUsageUnseenUserIsZero(t *testing.T) {
	_, rdb := newTestRedis(t)
	q := NewQuotaService(rdb, 5, testLogger)

	usage, err := q.Usage(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Count)
}
