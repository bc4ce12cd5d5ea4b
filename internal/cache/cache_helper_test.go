package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheManager(client), mr
}

func TestCacheOrExecute_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	cm, _ := newTestManager(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return []int{calls}, nil
	}

	var got []int
	require.NoError(t, cm.Report.CacheOrExecute(ctx, LeaderboardKey, &got, ReportCacheConfig.TTL, fetch))
	assert.Equal(t, []int{1}, got)
	require.NoError(t, cm.Report.CacheOrExecute(ctx, LeaderboardKey, &got, ReportCacheConfig.TTL, fetch))
	assert.Equal(t, []int{1}, got)

	InvalidateReportCache(ctx, cm)

	require.NoError(t, cm.Report.CacheOrExecute(ctx, LeaderboardKey, &got, ReportCacheConfig.TTL, fetch))
	assert.Equal(t, []int{2}, got)
	assert.Equal(t, 2, calls)
}

func TestCacheOrExecute_FetchRacingInvalidationIsNotServed(t *testing.T) {
	ctx := context.Background()
	cm, mr := newTestManager(t)

	// the first fetch reads old data, then an invalidation lands before it is stored
	var stale []string
	require.NoError(t, cm.Report.CacheOrExecute(ctx, OverviewKey, &stale, ReportCacheConfig.TTL, func() (interface{}, error) {
		InvalidateReportCache(ctx, cm)
		return []string{"old"}, nil
	}))
	assert.Equal(t, []string{"old"}, stale)
	assert.True(t, mr.Exists(ReportCacheConfig.Prefix+VersionedKey(OverviewKey, 0)))

	var fresh []string
	require.NoError(t, cm.Report.CacheOrExecute(ctx, OverviewKey, &fresh, ReportCacheConfig.TTL, func() (interface{}, error) {
		return []string{"new"}, nil
	}))
	assert.Equal(t, []string{"new"}, fresh)

	gen, err := cm.Report.Generation(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)
}

func TestInvalidateReportCache_RemovesStoredReports(t *testing.T) {
	ctx := context.Background()
	cm, mr := newTestManager(t)

	require.NoError(t, cm.Report.Set(ctx, VersionedKey(LeaderboardKey, 0), []int{1}, 0))
	require.NoError(t, cm.Report.Set(ctx, VersionedKey(OverviewKey, 0), []int{1}, 0))

	InvalidateReportCache(ctx, cm)

	assert.False(t, mr.Exists(ReportCacheConfig.Prefix+VersionedKey(LeaderboardKey, 0)))
	assert.False(t, mr.Exists(ReportCacheConfig.Prefix+VersionedKey(OverviewKey, 0)))
}

func TestCacheOrExecute_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	cm := NewCacheManager(nil)

	calls := 0
	var got int
	for i := 0; i < 2; i++ {
		require.NoError(t, cm.Report.CacheOrExecute(ctx, LeaderboardKey, &got, ReportCacheConfig.TTL, func() (interface{}, error) {
			calls++
			return calls, nil
		}))
	}
	assert.Equal(t, 2, got)
	assert.ErrorIs(t, cm.HealthCheck(ctx), ErrCacheNotAvailable)

	InvalidateReportCache(ctx, cm)
	require.NoError(t, cm.Report.Delete(ctx, LeaderboardKey))
}
