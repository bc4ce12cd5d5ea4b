package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

const (
	leaderboardSheet = "Leaderboard"
	unknownName      = "Unknown"
	notAvailable     = "N/A"
)

var leaderboardHeader = []interface{}{"Rank", "Email", "Name", "Score", "Total Questions", "Violations", "Time Taken", "Submitted At"}

type dashboardService struct {
	repo   repositories.Repository
	logger *slog.Logger
	cache  *cache.CacheManager
}

func NewDashboardService(repo repositories.Repository, logger *slog.Logger, cacheManager *cache.CacheManager) DashboardService {
	if cacheManager == nil {
		cacheManager = cache.NewCacheManager(nil)
	}
	return &dashboardService{
		repo:   repo,
		logger: logger,
		cache:  cacheManager,
	}
}

// Overview counts roster users against open and finished attempts
func (s *dashboardService) Overview(ctx context.Context) (*models.Overview, error) {
	var overview models.Overview
	err := s.cached(ctx, cache.OverviewKey, &overview, func() (interface{}, error) {
		return s.buildOverview(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &overview, nil
}

func (s *dashboardService) buildOverview(ctx context.Context) (*models.Overview, error) {
	total, err := s.repo.User().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	counts, err := s.repo.Attempt().Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	live, err := s.repo.Attempt().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active attempts: %w", err)
	}

	nonActive := total - counts.Active - counts.Completed
	if nonActive < 0 {
		nonActive = 0
	}

	return &models.Overview{
		TotalUsers:     total,
		ActiveCount:    counts.Active,
		CompletedCount: counts.Completed,
		NonActive:      nonActive,
		LiveAttempts:   live,
		GeneratedAt:    time.Now(),
	}, nil
}

func (s *dashboardService) Leaderboard(ctx context.Context) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := s.cached(ctx, cache.LeaderboardKey, &entries, func() (interface{}, error) {
		return s.buildLeaderboard(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *dashboardService) buildLeaderboard(ctx context.Context) ([]*models.LeaderboardEntry, error) {
	completed, err := s.repo.Attempt().ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed attempts: %w", err)
	}
	users, err := s.repo.User().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.Email] = u.Name
	}

	return rankAttempts(completed, names), nil
}

// rankAttempts orders by score descending then violations ascending. Ties keep
// submission order and still get distinct ranks.
func rankAttempts(attempts []*models.Attempt, names map[string]string) []*models.LeaderboardEntry {
	entries := make([]*models.LeaderboardEntry, 0, len(attempts))
	for _, a := range attempts {
		name := names[a.Email]
		if name == "" {
			name = unknownName
		}
		entry := &models.LeaderboardEntry{
			Email:      a.Email,
			Name:       name,
			Violations: a.Violations,
			TimeTaken:  formatTimeTaken(a),
		}
		if a.Score != nil {
			entry.Score = *a.Score
		}
		if a.TotalQuestions != nil {
			entry.TotalQuestions = *a.TotalQuestions
		}
		if a.EndTime != nil {
			t := *a.EndTime
			entry.SubmittedAt = &t
		} else {
			t := a.StartTime
			entry.SubmittedAt = &t
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Violations < entries[j].Violations
	})
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries
}

func formatTimeTaken(a *models.Attempt) string {
	if a.EndTime == nil || a.StartTime.IsZero() {
		return notAvailable
	}
	secs := int(a.EndTime.Sub(a.StartTime).Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

// ExportLeaderboard renders the current leaderboard as an xlsx workbook
func (s *dashboardService) ExportLeaderboard(ctx context.Context) ([]byte, error) {
	entries, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", leaderboardSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(leaderboardSheet, "A1", &leaderboardHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		submitted := notAvailable
		if e.SubmittedAt != nil {
			submitted = e.SubmittedAt.UTC().Format(time.RFC3339)
		}
		row := []interface{}{e.Rank, e.Email, e.Name, e.Score, e.TotalQuestions, e.Violations, e.TimeTaken, submitted}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Leaderboard exported", "entries", len(entries))
	return buf.Bytes(), nil
}

func (s *dashboardService) cached(ctx context.Context, key string, dest interface{}, fetch func() (interface{}, error)) error {
	return s.cache.Report.CacheOrExecute(ctx, key, dest, cache.ReportCacheConfig.TTL, fetch)
}
