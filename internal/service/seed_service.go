package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads the problem catalog in bulk.
type SeedService interface {
	SeedProblems(ctx context.Context, token string, items []dto.ProblemCreateRequest) (int64, error)
	Import(ctx context.Context, items []dto.ProblemCreateRequest, replace bool) (int64, error)
	Destroy(ctx context.Context) (int64, error)
}

type seedService struct {
	problems  repository.ProblemRepository
	enabled   bool
	token     string
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(problems repository.ProblemRepository, enabled bool, token string, validate *validator.Validate, logger zerolog.Logger) SeedService {
	return &seedService{
		problems:  problems,
		enabled:   enabled,
		token:     token,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedProblems upserts problems by slug when seeding is enabled and the token matches.
func (s *seedService) SeedProblems(ctx context.Context, token string, items []dto.ProblemCreateRequest) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	return s.Import(ctx, items, false)
}

// Import upserts the given problems by slug. With replace, problems missing from items are
// removed unless submission history or a solved set still refers to them.
func (s *seedService) Import(ctx context.Context, items []dto.ProblemCreateRequest, replace bool) (int64, error) {
	problems, err := s.normalize(items)
	if err != nil {
		return 0, err
	}

	affected, err := s.problems.UpsertBatch(ctx, problems)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("affected", affected).Msg("problems seeded")

	if replace {
		slugs := make([]string, 0, len(problems))
		for _, problem := range problems {
			slugs = append(slugs, problem.Slug)
		}
		removed, err := s.problems.DeleteUnreferenced(ctx, slugs)
		if err != nil {
			return 0, err
		}
		s.logger.Info().Int64("removed", removed).Msg("stale problems removed")
	}

	return affected, nil
}

// Destroy removes every problem that no submission or solved entry refers to.
func (s *seedService) Destroy(ctx context.Context) (int64, error) {
	removed, err := s.problems.DeleteUnreferenced(ctx, nil)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("removed", removed).Msg("problem catalog destroyed")
	return removed, nil
}

// normalize validates every item and keeps the last occurrence of each slug.
func (s *seedService) normalize(items []dto.ProblemCreateRequest) ([]models.Problem, error) {
	index := make(map[string]int, len(items))
	problems := make([]models.Problem, 0, len(items))

	for i, item := range items {
		item.Difficulty = models.NormalizeDifficulty(item.Difficulty)
		if err := s.validator.Struct(item); err != nil {
			return nil, fmt.Errorf("item %d (%q): %w", i, item.Title, err)
		}

		problem := newProblemModel(s.sanitizer, item)
		if problem.Slug == "" {
			return nil, fmt.Errorf("item %d: %w: title produces an empty slug", i, ErrInvalidProblem)
		}

		if existing, ok := index[problem.Slug]; ok {
			problems[existing] = problem
			continue
		}
		index[problem.Slug] = len(problems)
		problems = append(problems, problem)
	}

	return problems, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
