package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/projectflow-api/internal/dto"
	"github.com/noah-isme/projectflow-api/internal/repository"
)

const leaderboardGenerationKey = "leaderboard:generation"

// LeaderboardService ranks finalized submissions. Results may be cached in Redis; the cache is keyed
// by a generation counter that every finalize bumps, so a stale ranking is never served afterwards.
type LeaderboardService interface {
	Get(ctx context.Context, filter dto.LeaderboardFilter) (dto.LeaderboardResponse, error)
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	repo     repository.LeaderboardRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	// pendingBump is set when a generation bump failed; the cache is bypassed until one succeeds.
	pendingBump atomic.Bool
}

// NewLeaderboardService constructs the leaderboard projector. cache may be nil.
func NewLeaderboardService(repo repository.LeaderboardRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &leaderboardService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "leaderboard_service").Logger(),
		now:      time.Now,
	}
}

func (s *leaderboardService) Get(ctx context.Context, filter dto.LeaderboardFilter) (dto.LeaderboardResponse, error) {
	cacheKey := ""
	if s.cache != nil && s.settlePendingBump(ctx) {
		generation, err := s.cache.Get(ctx, leaderboardGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard generation")
		} else {
			cacheKey = leaderboardCacheKey(generation, filter.ProjectID)
		}
	}

	if cacheKey != "" {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.LeaderboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	rows, err := s.repo.ListFinalized(ctx, filter.ProjectID)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	entries := make([]dto.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, dto.LeaderboardEntry{
			Rank:         i + 1,
			SubmissionID: row.SubmissionID,
			StudentID:    row.StudentID,
			Student:      row.StudentName,
			ProjectID:    row.ProjectID,
			ProjectTitle: row.ProjectTitle,
			ManualScore:  row.ManualScore,
			MLScore:      row.MLScore,
			OverallScore: row.OverallScore,
			SubmittedAt:  row.SubmittedAt,
		})
	}

	response := dto.LeaderboardResponse{Entries: entries, GeneratedAt: s.now().UTC()}

	if cacheKey != "" {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	return response, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, leaderboardGenerationKey).Err(); err != nil {
		s.pendingBump.Store(true)
		s.logger.Error().Err(err).Msg("failed to invalidate leaderboard cache, bypassing cache until retry succeeds")
		return
	}
	s.pendingBump.Store(false)
}

// settlePendingBump retries a failed generation bump and reports whether the cache may be used.
func (s *leaderboardService) settlePendingBump(ctx context.Context) bool {
	if !s.pendingBump.Load() {
		return true
	}
	if err := s.cache.Incr(ctx, leaderboardGenerationKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard generation bump still failing")
		return false
	}
	s.pendingBump.Store(false)
	return true
}

func leaderboardCacheKey(generation int64, projectID *uint) string {
	if projectID != nil {
		return fmt.Sprintf("leaderboard:v%d:project:%d", generation, *projectID)
	}
	return fmt.Sprintf("leaderboard:v%d:all", generation)
}
