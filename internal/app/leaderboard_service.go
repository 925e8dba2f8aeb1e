package app

import (
	"context"
	"sort"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/platform/logger"
)

// LeaderboardService is the read side over persisted results.
type LeaderboardService struct {
	results ResultRepository
	log     *logger.Logger
}

func NewLeaderboardService(results ResultRepository, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{results: results, log: log.With("service", "LeaderboardService")}
}

// ListResults returns the quiz leaderboard (score desc, then time spent asc)
// or, for an empty quizID, the global feed (newest first).
func (s *LeaderboardService) ListResults(ctx context.Context, quizID string) ([]domain.Result, error) {
	results, err := s.results.ListResults(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quizID == "" {
		SortFeed(results)
	} else {
		SortLeaderboard(results)
	}
	return results, nil
}

// ResetResults deletes results, optionally scoped to one quiz. Sessions are untouched.
func (s *LeaderboardService) ResetResults(ctx context.Context, quizID string) (int64, error) {
	n, err := s.results.DeleteResults(ctx, quizID)
	if err != nil {
		return 0, err
	}
	s.log.Warn("results reset", "quiz_id", quizID, "deleted", n)
	return n, nil
}

// HasAttempted reports whether userID has a result for quizID. Callers may
// only ask about themselves.
func (s *LeaderboardService) HasAttempted(ctx context.Context, authUserID, userID, quizID string) (bool, error) {
	if authUserID != userID {
		return false, domain.ErrForbidden
	}
	return s.results.HasResult(ctx, userID, quizID)
}

func SortLeaderboard(results []domain.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].TimeSpent != results[j].TimeSpent {
			return results[i].TimeSpent < results[j].TimeSpent
		}
		return results[i].CompletedAt.Before(results[j].CompletedAt)
	})
}

func SortFeed(results []domain.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
}
