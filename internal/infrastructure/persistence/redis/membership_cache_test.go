package redis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/pkg/circuitbreaker"
	"github.com/classbook/register-archive/pkg/timeutil"
)

type countingResolver struct {
	calls int
	ids   []int64
	err   error
}

func (r *countingResolver) StudentsInClass(_ context.Context, _ time.Time, _ school.Class) ([]int64, error) {
	r.calls++
	return r.ids, r.err
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *MembershipCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return mr, NewMembershipCache(NewCacheFromClient(client), time.Hour, logger)
}

func TestMembershipCache_MissThenHit(t *testing.T) {
	mr, cache := newTestCache(t)
	next := &countingResolver{ids: []int64{3, 1, 2}}
	class := school.Class{ID: 9}
	day := timeutil.Date(2024, 10, 14)
	ctx := context.Background()

	ids, err := cache.Lookup(ctx, day, class, next)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)
	assert.Equal(t, 1, next.calls)
	assert.True(t, mr.Exists("membership:9:2024-10-14"))

	ids, err = cache.Lookup(ctx, day, class, next)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)
	assert.Equal(t, 1, next.calls, "second lookup must be served from redis")

	ttl := mr.TTL("membership:9:2024-10-14")
	assert.Equal(t, time.Hour, ttl)
}

func TestMembershipCache_EmptyListIsCached(t *testing.T) {
	_, cache := newTestCache(t)
	next := &countingResolver{}
	ctx := context.Background()
	day := timeutil.Date(2024, 10, 14)

	for i := 0; i < 2; i++ {
		ids, err := cache.Lookup(ctx, day, school.Class{ID: 1}, next)
		require.NoError(t, err)
		assert.Empty(t, ids)
	}
	assert.Equal(t, 1, next.calls)
}

func TestMembershipCache_ResolverErrorNotCached(t *testing.T) {
	mr, cache := newTestCache(t)
	next := &countingResolver{err: errors.New("boom")}

	_, err := cache.Lookup(context.Background(), timeutil.Date(2024, 10, 14), school.Class{ID: 2}, next)
	require.Error(t, err)
	assert.False(t, mr.Exists("membership:2:2024-10-14"))
}

func TestMembershipCache_RedisDownFallsThrough(t *testing.T) {
	mr, cache := newTestCache(t)
	mr.Close()
	next := &countingResolver{ids: []int64{5}}

	ids, err := cache.Lookup(context.Background(), timeutil.Date(2024, 10, 14), school.Class{ID: 3}, next)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
	assert.Equal(t, 1, next.calls)
}

func TestMembershipCache_BreakerSkipsDeadRedis(t *testing.T) {
	mr, cache := newTestCache(t)
	mr.Close()
	next := &countingResolver{ids: []int64{5}}
	ctx := context.Background()

	// every lookup costs a failed read and a failed write until the breaker opens
	for i := 0; i < 3; i++ {
		_, err := cache.Lookup(ctx, timeutil.Date(2024, 10, 14), school.Class{ID: int64(i + 1)}, next)
		require.NoError(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, cache.Breaker().State())

	before := cache.Breaker().Counts().Requests
	ids, err := cache.Lookup(ctx, timeutil.Date(2024, 10, 15), school.Class{ID: 9}, next)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
	assert.Equal(t, before, cache.Breaker().Counts().Requests, "open breaker must not reach redis")
}

func TestMembershipCache_MissDoesNotTripBreaker(t *testing.T) {
	_, cache := newTestCache(t)
	next := &countingResolver{ids: []int64{1}}
	for i := 0; i < 5; i++ {
		_, err := cache.Lookup(context.Background(), timeutil.Date(2024, 10, 14), school.Class{ID: int64(i + 1)}, next)
		require.NoError(t, err)
	}
	assert.Equal(t, circuitbreaker.StateClosed, cache.Breaker().State())
}

func TestMembershipCache_Invalidate(t *testing.T) {
	mr, cache := newTestCache(t)
	require.NoError(t, mr.Set("membership:1:2024-10-14", "[1]"))
	require.NoError(t, mr.Set("membership:2:2024-10-15", "[2]"))
	require.NoError(t, mr.Set("other", "x"))

	n, err := cache.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other"))
}

func TestMembershipKey(t *testing.T) {
	assert.Equal(t, "membership:12:2025-05-30", MembershipKey(12, "2025-05-30"))
}
