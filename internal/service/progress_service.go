package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/observability"
	"github.com/noah-isme/codepractice-api/internal/repository"
)

const recentSubmissionLimit = 5

// ProgressService derives user statistics from the solved set and submission history.
type ProgressService interface {
	Stats(ctx context.Context, userID uint) (dto.UserStatsResponse, error)
	Progress(ctx context.Context, userID uint) (dto.SolvedProblemsResponse, error)
	MarkSolved(ctx context.Context, userID, problemID uint) (dto.SolvedProblemsResponse, error)
	RecordSolved(ctx context.Context, userID, problemID uint) (bool, error)
	Invalidate(ctx context.Context, userID uint)
}

// ProgressConfig holds aggregation knobs.
type ProgressConfig struct {
	CacheTTL   time.Duration
	WeeklyGoal int
}

type progressService struct {
	problems    repository.ProblemRepository
	submissions repository.SubmissionRepository
	progress    repository.ProgressRepository
	cache       *redis.Client
	config      ProgressConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewProgressService builds the progress aggregator.
func NewProgressService(problems repository.ProblemRepository, submissions repository.SubmissionRepository, progress repository.ProgressRepository, cache *redis.Client, cfg ProgressConfig, logger zerolog.Logger) ProgressService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.WeeklyGoal <= 0 {
		cfg.WeeklyGoal = 10
	}

	return &progressService{
		problems:    problems,
		submissions: submissions,
		progress:    progress,
		cache:       cache,
		config:      cfg,
		logger:      logger.With().Str("component", "progress_service").Logger(),
		now:         time.Now,
	}
}

func statsCacheKey(userID uint) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

func (s *progressService) Stats(ctx context.Context, userID uint) (dto.UserStatsResponse, error) {
	cacheKey := statsCacheKey(userID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.UserStatsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", userID).Msg("stats cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read stats cache")
		}
	}

	solved, err := s.progress.ListSolvedProblems(ctx, userID)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	totalProblems, err := s.problems.Count(ctx)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	accepted, err := s.submissions.AcceptedSince(ctx, userID, time.Time{})
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	totalSubmissions, err := s.submissions.CountByUser(ctx, userID)
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	recent, err := s.submissions.List(ctx, repository.SubmissionFilter{UserID: userID, Limit: recentSubmissionLimit})
	if err != nil {
		return dto.UserStatsResponse{}, err
	}

	response := s.buildStats(solved, accepted, recent)
	response.TotalProblems = int(totalProblems)
	response.TotalSubmissions = int(totalSubmissions)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.config.CacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store stats cache")
			}
		}
	}

	return response, nil
}

func (s *progressService) buildStats(solved []models.Problem, accepted []repository.AcceptedEntry, recent []models.Submission) dto.UserStatsResponse {
	now := s.now().UTC()
	response := dto.UserStatsResponse{
		TotalSolved:       len(solved),
		WeeklyGoal:        s.config.WeeklyGoal,
		SolvedByTopic:     make([]dto.TopicProgress, 0),
		RecentSubmissions: make([]dto.SubmissionResponse, 0, len(recent)),
	}

	byTopic := map[string]int{}
	for _, problem := range solved {
		switch problem.Difficulty {
		case models.DifficultyEasy:
			response.EasySolved++
		case models.DifficultyMedium:
			response.MediumSolved++
		case models.DifficultyHard:
			response.HardSolved++
		}
		byTopic[problem.Topic]++
	}

	for topic, count := range byTopic {
		response.SolvedByTopic = append(response.SolvedByTopic, dto.TopicProgress{Topic: topic, Count: count})
	}
	sort.Slice(response.SolvedByTopic, func(i, j int) bool {
		left, right := response.SolvedByTopic[i], response.SolvedByTopic[j]
		if left.Count != right.Count {
			return left.Count > right.Count
		}
		return left.Topic < right.Topic
	})

	response.StreakDays = streakDays(accepted, now)
	response.WeeklySolved = weeklySolved(accepted, now)

	for _, submission := range recent {
		response.RecentSubmissions = append(response.RecentSubmissions, dto.NewSubmissionResponse(submission, false))
	}

	return response
}

// streakDays counts consecutive UTC days with an accepted submission, ending today or,
// when nothing was accepted today yet, yesterday.
func streakDays(accepted []repository.AcceptedEntry, now time.Time) int {
	days := make(map[time.Time]struct{}, len(accepted))
	for _, entry := range accepted {
		days[startOfDay(entry.CreatedAt)] = struct{}{}
	}

	day := startOfDay(now)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// weeklySolved counts distinct problems accepted since Monday 00:00 UTC.
func weeklySolved(accepted []repository.AcceptedEntry, now time.Time) int {
	weekStart := startOfWeek(now)
	problems := map[uint]struct{}{}
	for _, entry := range accepted {
		if !entry.CreatedAt.UTC().Before(weekStart) {
			problems[entry.ProblemID] = struct{}{}
		}
	}
	return len(problems)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func (s *progressService) Progress(ctx context.Context, userID uint) (dto.SolvedProblemsResponse, error) {
	ids, err := s.progress.ListSolvedIDs(ctx, userID)
	if err != nil {
		return dto.SolvedProblemsResponse{}, err
	}
	return dto.SolvedProblemsResponse{SolvedProblems: ids}, nil
}

func (s *progressService) MarkSolved(ctx context.Context, userID, problemID uint) (dto.SolvedProblemsResponse, error) {
	if _, err := s.problems.GetByID(ctx, problemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SolvedProblemsResponse{}, ErrProblemNotFound
		}
		return dto.SolvedProblemsResponse{}, err
	}

	if _, err := s.RecordSolved(ctx, userID, problemID); err != nil {
		return dto.SolvedProblemsResponse{}, err
	}

	return s.Progress(ctx, userID)
}

// RecordSolved adds the problem to the user's solved set. Repeated calls are no-ops.
func (s *progressService) RecordSolved(ctx context.Context, userID, problemID uint) (bool, error) {
	added, err := s.progress.AddSolved(ctx, userID, problemID, s.now().UTC())
	if err != nil {
		return false, err
	}
	if added {
		observability.SolvedProblemsAdded().Inc()
		s.logger.Info().Uint("user_id", userID).Uint("problem_id", problemID).Msg("problem added to solved set")
	}
	s.Invalidate(ctx, userID)
	return added, nil
}

func (s *progressService) Invalidate(ctx context.Context, userID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, statsCacheKey(userID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to invalidate stats cache")
	}
}
