package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/classbook/register-archive/internal/domain/school"
	"github.com/classbook/register-archive/pkg/circuitbreaker"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// MembershipCache memoizes class membership per (class, date). A lesson date
// is looked up once per assignment and every assignment of a class repeats
// the same dates, so batches hit the cache far more often than the database.
//
// Redis failures never fail a lookup: the cache logs and falls through.
// After repeated failures the breaker opens and Redis is skipped entirely
// until it cools off.
type MembershipCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewMembershipCache creates the cache; a non-positive ttl selects TTLMembership.
func NewMembershipCache(cache *Cache, ttl time.Duration, logger *slog.Logger) *MembershipCache {
	if ttl <= 0 {
		ttl = TTLMembership
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &MembershipCache{cache: cache, ttl: ttl, logger: logger}
	m.breaker = circuitbreaker.CacheBreaker(
		func(name string, from, to circuitbreaker.State) {
			logger.Warn("cache breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		func(err error) bool { return !errors.Is(err, ErrCacheMiss) },
	)
	return m
}

// Breaker exposes the breaker guarding Redis.
func (m *MembershipCache) Breaker() *circuitbreaker.Breaker {
	return m.breaker
}

// Lookup returns the cached membership or resolves it through next and stores it.
func (m *MembershipCache) Lookup(ctx context.Context, day time.Time, class school.Class, next school.MembershipResolver) ([]int64, error) {
	key := MembershipKey(class.ID, timeutil.DayKey(day))

	var ids []int64
	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		return m.cache.Get(ctx, key, &ids)
	})
	switch {
	case err == nil:
		return ids, nil
	case circuitbreaker.Rejected(err), errors.Is(err, ErrCacheMiss):
	default:
		m.logger.Warn("membership cache read failed", "key", key, "error", err)
	}

	ids, err = next.StudentsInClass(ctx, day, class)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []int64{}
	}
	err = m.breaker.Execute(ctx, func(ctx context.Context) error {
		return m.cache.Set(ctx, key, ids, m.ttl)
	})
	if err != nil && !circuitbreaker.Rejected(err) {
		m.logger.Warn("membership cache write failed", "key", key, "error", err)
	}
	return ids, nil
}

// Invalidate drops every cached membership list.
func (m *MembershipCache) Invalidate(ctx context.Context) (int, error) {
	return m.cache.DeleteByPattern(ctx, PrefixMembership+"*")
}

// Wrap returns store with StudentsInClass served through the cache.
func (m *MembershipCache) Wrap(store school.Store) school.Store {
	return &cachedStore{Store: store, membership: m}
}

// WrapSource applies Wrap to every snapshot handed out by src.
func (m *MembershipCache) WrapSource(src school.Source) school.Source {
	return &cachedSource{next: src, membership: m}
}

type cachedStore struct {
	school.Store
	membership *MembershipCache
}

func (s *cachedStore) StudentsInClass(ctx context.Context, day time.Time, class school.Class) ([]int64, error) {
	return s.membership.Lookup(ctx, day, class, s.Store)
}

type cachedSource struct {
	next       school.Source
	membership *MembershipCache
}

func (s *cachedSource) Snapshot(ctx context.Context, fn func(school.Store) error) error {
	return s.next.Snapshot(ctx, func(store school.Store) error {
		return fn(s.membership.Wrap(store))
	})
}
