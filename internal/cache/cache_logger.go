package cache

import (
	"context"
	"log/slog"
)

// Report cache keys
const (
	LeaderboardKey = "leaderboard"
	OverviewKey    = "overview"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateReportCache drops every cached admin report. Called after any
// change to attempts, users or the roster. Bumping the generation comes first so
// a report fetched before the change can no longer be stored where readers look.
func InvalidateReportCache(ctx context.Context, cm *CacheManager) {
	if cm == nil {
		return
	}
	if err := cm.Report.Bump(ctx); err != nil {
		slog.ErrorContext(ctx, "Failed to bump report cache generation", "error", err)
	}
	SafeInvalidatePattern(ctx, cm.Report, LeaderboardKey+":*")
	SafeInvalidatePattern(ctx, cm.Report, OverviewKey+":*")
}
