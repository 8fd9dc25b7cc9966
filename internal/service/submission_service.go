package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/events"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SubmissionService exposes ad hoc runs, graded submissions and history.
type SubmissionService interface {
	Run(ctx context.Context, payload dto.RunRequest) (dto.RunResponse, error)
	Submit(ctx context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmitResponse, error)
	History(ctx context.Context, userID uint, query dto.SubmissionHistoryQuery) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	problems    repository.ProblemRepository
	submissions repository.SubmissionRepository
	progress    ProgressService
	evaluator   EvaluationService
	runner      judge.Runner
	runOptions  judge.RunOptions
	publisher   events.Publisher
	validator   *validator.Validate
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewSubmissionService wires the submission workflow. publisher may be nil.
func NewSubmissionService(problems repository.ProblemRepository, submissions repository.SubmissionRepository, progress ProgressService, evaluator EvaluationService, runner judge.Runner, runOptions judge.RunOptions, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		problems:    problems,
		submissions: submissions,
		progress:    progress,
		evaluator:   evaluator,
		runner:      runner,
		runOptions:  runOptions,
		publisher:   publisher,
		validator:   validate,
		tracer:      otel.Tracer("github.com/noah-isme/codepractice-api/internal/service"),
		logger:      logger.With().Str("component", "submission_service").Logger(),
	}
}

// Run executes code once against the given stdin and returns the judge's verdict untouched.
func (s *submissionService) Run(ctx context.Context, payload dto.RunRequest) (dto.RunResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RunResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(payload.Language))
	if _, err := judge.LanguageID(language); err != nil {
		return dto.RunResponse{}, err
	}

	verdict, err := s.runner.Run(ctx, payload.Code, language, payload.Stdin, s.runOptions)
	if err != nil {
		logger := middleware.CorrelationLogger(ctx, s.logger)
		logger.Error().Err(err).Str("language", language).Msg("judge run failed")
		return dto.RunResponse{}, err
	}

	return dto.NewRunResponse(verdict), nil
}

func (s *submissionService) Submit(ctx context.Context, userID uint, payload dto.SubmitRequest) (dto.SubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmitResponse{}, err
	}

	language := strings.ToLower(strings.TrimSpace(payload.Language))
	if _, err := judge.LanguageID(language); err != nil {
		return dto.SubmitResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submissions.submit", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("problem.id", int64(payload.QuestionID)),
		attribute.String("submission.language", language),
	))
	defer span.End()

	problem, err := s.problems.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmitResponse{}, ErrProblemNotFound
		}
		return dto.SubmitResponse{}, err
	}

	result, err := s.evaluator.Evaluate(ctx, problem, payload.Code, language)
	if err != nil {
		span.RecordError(err)
		return dto.SubmitResponse{}, err
	}

	submission := models.Submission{
		UserID:    userID,
		ProblemID: problem.ID,
		Code:      payload.Code,
		Language:  language,
	}
	var response dto.SubmitResponse

	switch res := result.(type) {
	case InfraFailure:
		span.SetStatus(codes.Error, res.Err.Error())
		return dto.SubmitResponse{}, res.Err
	case Accepted:
		submission.Status = models.SubmissionStatusAccepted
		response = dto.SubmitResponse{
			Status:  models.SubmissionStatusAccepted,
			Message: "All test cases passed!",
		}
	case Rejected:
		submission.Status = res.Status
		submission.Output = res.Output
		response = dto.SubmitResponse{
			Status:         res.Status,
			Message:        res.Message,
			FailedTestCase: res.FailedIndex,
			Input:          stringPtr(res.Input),
			Output:         stringPtr(res.Output),
			Expected:       stringPtr(res.Expected),
		}
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmitResponse{}, err
	}
	response.SubmissionID = submission.ID

	if submission.IsAccepted() {
		if _, err := s.progress.RecordSolved(ctx, userID, problem.ID); err != nil {
			span.RecordError(err)
			return dto.SubmitResponse{}, err
		}
	} else {
		s.progress.Invalidate(ctx, userID)
	}

	if s.publisher != nil {
		s.publisher.PublishSubmission(ctx, events.SubmissionEvent{
			UserID:       userID,
			ProblemID:    problem.ID,
			SubmissionID: submission.ID,
			Status:       string(submission.Status),
		})
	}

	logger := middleware.CorrelationLogger(ctx, s.logger)
	logger.Info().
		Uint("user_id", userID).
		Uint("problem_id", problem.ID).
		Uint("submission_id", submission.ID).
		Str("status", string(submission.Status)).
		Msg("submission evaluated")

	return response, nil
}

func (s *submissionService) History(ctx context.Context, userID uint, query dto.SubmissionHistoryQuery) ([]dto.SubmissionResponse, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	filter := repository.SubmissionFilter{UserID: userID, Limit: limit}
	if query.QuestionID > 0 {
		problemID := query.QuestionID
		filter.ProblemID = &problemID
	}

	submissions, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	response := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		response = append(response, dto.NewSubmissionResponse(submission, submission.UserID == userID))
	}
	return response, nil
}

func stringPtr(value string) *string {
	return &value
}
