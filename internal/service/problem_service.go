package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gosimple/slug"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/repository"
)

var (
	// ErrProblemNotFound indicates the requested problem does not exist.
	ErrProblemNotFound = errors.New("problem not found")
	// ErrProblemExists indicates a problem with the same title or slug is already stored.
	ErrProblemExists = errors.New("problem already exists")
	// ErrCatalogEmpty indicates there are no problems to choose from.
	ErrCatalogEmpty = errors.New("problem catalog is empty")
	// ErrInvalidProblem indicates the payload cannot form a catalog entry.
	ErrInvalidProblem = errors.New("invalid problem")
)

// ProblemService exposes catalog use cases.
type ProblemService interface {
	List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error)
	Get(ctx context.Context, id uint) (dto.ProblemResponse, error)
	Daily(ctx context.Context) (dto.ProblemResponse, error)
	Topics(ctx context.Context) ([]dto.TopicResponse, error)
	Create(ctx context.Context, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error)
}

type problemService struct {
	repo      repository.ProblemRepository
	cache     *redis.Client
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProblemService builds the catalog service. cache may be nil.
func NewProblemService(repo repository.ProblemRepository, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger) ProblemService {
	return &problemService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "problem_service").Logger(),
		now:       time.Now,
	}
}

func (s *problemService) List(ctx context.Context, filter dto.ProblemFilter) (dto.ProblemListResponse, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := repository.ProblemQuery{
		Topic:      strings.TrimSpace(filter.Topic),
		Difficulty: strings.TrimSpace(filter.Difficulty),
		Search:     strings.TrimSpace(filter.Search),
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}

	problems, total, err := s.repo.List(ctx, query)
	if err != nil {
		return dto.ProblemListResponse{}, err
	}

	pagination := dto.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: int(total),
	}

	return dto.NewProblemListResponse(problems, pagination), nil
}

func (s *problemService) Get(ctx context.Context, id uint) (dto.ProblemResponse, error) {
	problem, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProblemResponse{}, ErrProblemNotFound
		}
		return dto.ProblemResponse{}, err
	}

	return dto.NewProblemResponse(problem), nil
}

// Daily picks the same problem for everyone during a UTC day, rotating through the catalog by id.
func (s *problemService) Daily(ctx context.Context) (dto.ProblemResponse, error) {
	now := s.now().UTC()
	cacheKey := "problems:daily:" + now.Format("2006-01-02")

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProblemResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read daily problem cache")
		}
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return dto.ProblemResponse{}, err
	}
	if total == 0 {
		return dto.ProblemResponse{}, ErrCatalogEmpty
	}

	day := now.Unix() / int64((24 * time.Hour).Seconds())
	problem, err := s.repo.NthByID(ctx, int(day%total))
	if err != nil {
		return dto.ProblemResponse{}, err
	}

	response := dto.NewProblemResponse(problem)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			endOfDay := startOfDay(now).Add(24 * time.Hour)
			if err := s.cache.Set(ctx, cacheKey, payload, endOfDay.Sub(now)).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store daily problem cache")
			}
		}
	}

	return response, nil
}

func (s *problemService) Topics(ctx context.Context) ([]dto.TopicResponse, error) {
	rows, err := s.repo.Topics(ctx)
	if err != nil {
		return nil, err
	}

	topics := make([]dto.TopicResponse, 0, len(rows))
	for _, row := range rows {
		topics = append(topics, dto.TopicResponse{Topic: row.Topic, Count: row.Count})
	}
	return topics, nil
}

func (s *problemService) Create(ctx context.Context, payload dto.ProblemCreateRequest) (dto.ProblemResponse, error) {
	payload.Difficulty = models.NormalizeDifficulty(payload.Difficulty)
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProblemResponse{}, err
	}

	problem := newProblemModel(s.sanitizer, payload)
	if problem.Slug == "" {
		return dto.ProblemResponse{}, fmt.Errorf("%w: title produces an empty slug", ErrInvalidProblem)
	}

	if err := s.repo.Create(ctx, &problem); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.ProblemResponse{}, ErrProblemExists
		}
		return dto.ProblemResponse{}, err
	}

	s.logger.Info().Uint("problem_id", problem.ID).Str("slug", problem.Slug).Msg("problem created")
	return dto.NewProblemResponse(problem), nil
}

// newProblemModel sanitises free text and derives the slug from the title.
func newProblemModel(sanitizer *bluemonday.Policy, payload dto.ProblemCreateRequest) models.Problem {
	title := strings.TrimSpace(payload.Title)

	hints := make([]string, 0, len(payload.Hints))
	for _, hint := range payload.Hints {
		cleaned := strings.TrimSpace(sanitizer.Sanitize(hint))
		if cleaned != "" {
			hints = append(hints, cleaned)
		}
	}

	starter := make([]models.StarterCode, 0, len(payload.StarterCode))
	for _, item := range payload.StarterCode {
		starter = append(starter, models.StarterCode{Language: strings.ToLower(item.Language), Code: item.Code})
	}

	cases := make([]models.TestCase, 0, len(payload.TestCases))
	for _, tc := range payload.TestCases {
		cases = append(cases, models.TestCase{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}

	return models.Problem{
		Slug:        slug.Make(title),
		Title:       title,
		Description: strings.TrimSpace(sanitizer.Sanitize(payload.Description)),
		Topic:       strings.TrimSpace(payload.Topic),
		Difficulty:  models.NormalizeDifficulty(payload.Difficulty),
		Hints:       hints,
		StarterCode: starter,
		TestCases:   cases,
	}
}
