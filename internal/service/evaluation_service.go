package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/observability"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

// ErrNoTestCases indicates the problem has nothing to evaluate against.
var ErrNoTestCases = errors.New("problem has no test cases")

// EvaluationResult is the terminal outcome of an evaluation. It is implemented only by
// Accepted, Rejected and InfraFailure.
type EvaluationResult interface {
	evaluationResult()
}

// Accepted means every test case produced the expected output.
type Accepted struct {
	TestCases int
}

// Rejected reports the first failing test case.
type Rejected struct {
	Status      models.SubmissionStatus
	FailedIndex int
	Input       string
	Output      string
	Expected    string
	Message     string
}

// InfraFailure means the judge could not produce a verdict. It says nothing about the solution.
type InfraFailure struct {
	Err error
}

func (Accepted) evaluationResult()     {}
func (Rejected) evaluationResult()     {}
func (InfraFailure) evaluationResult() {}

// EvaluationService grades a solution against a problem's hidden test cases.
type EvaluationService interface {
	Evaluate(ctx context.Context, problem models.Problem, source, language string) (EvaluationResult, error)
}

type evaluationService struct {
	runner  judge.Runner
	options judge.RunOptions
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// NewEvaluationService constructs the evaluation orchestrator.
func NewEvaluationService(runner judge.Runner, options judge.RunOptions, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		runner:  runner,
		options: options,
		tracer:  otel.Tracer("github.com/noah-isme/codepractice-api/internal/service"),
		logger:  logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, problem models.Problem, source, language string) (EvaluationResult, error) {
	if len(problem.TestCases) == 0 {
		return nil, ErrNoTestCases
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.evaluate", trace.WithAttributes(
		attribute.Int64("problem.id", int64(problem.ID)),
		attribute.String("submission.language", language),
		attribute.Int("problem.test_cases", len(problem.TestCases)),
		attribute.String("correlation.id", middleware.CorrelationIDFromContext(ctx)),
	))
	defer span.End()

	start := time.Now()
	result, ran := s.evaluate(ctx, problem, source, language)
	observability.EvaluationLatency().Observe(time.Since(start).Seconds())
	observability.EvaluationCasesRun().Observe(float64(ran))
	observability.Evaluations().WithLabelValues(outcomeLabel(result)).Inc()

	switch res := result.(type) {
	case InfraFailure:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		logger := middleware.CorrelationLogger(ctx, s.logger)
		logger.Error().Err(res.Err).Uint("problem_id", problem.ID).Int("test_case", ran).Msg("judge failed during evaluation")
	case Rejected:
		span.SetAttributes(attribute.String("evaluation.status", string(res.Status)), attribute.Int("evaluation.failed_index", res.FailedIndex))
	case Accepted:
		span.SetAttributes(attribute.String("evaluation.status", string(models.SubmissionStatusAccepted)))
	}

	return result, nil
}

// evaluate runs test cases in stored order and stops at the first one that does not pass.
// It also returns how many judge runs were started.
func (s *evaluationService) evaluate(ctx context.Context, problem models.Problem, source, language string) (EvaluationResult, int) {
	for i, testCase := range problem.TestCases {
		verdict, err := s.runner.Run(ctx, source, language, testCase.Input, s.options)
		if err != nil {
			return InfraFailure{Err: err}, i + 1
		}

		category := verdict.Category()
		if category == judge.CategoryInternalError || category == judge.CategoryPending {
			return InfraFailure{Err: fmt.Errorf("%w: status %d %s", judge.ErrJudgeInternal, verdict.Status.ID, verdict.Status.Description)}, i + 1
		}

		if passes(verdict, testCase.ExpectedOutput) {
			continue
		}

		return Rejected{
			Status:      rejectionStatus(category),
			FailedIndex: i + 1,
			Input:       testCase.Input,
			Output:      verdict.CapturedOutput(),
			Expected:    testCase.ExpectedOutput,
			Message:     fmt.Sprintf("Failed on test case #%d", i+1),
		}, i + 1
	}

	return Accepted{TestCases: len(problem.TestCases)}, len(problem.TestCases)
}

func passes(verdict judge.Verdict, expected string) bool {
	if !verdict.Succeeded() {
		return false
	}
	return strings.TrimSpace(verdict.StdoutText()) == strings.TrimSpace(expected)
}

func rejectionStatus(category judge.Category) models.SubmissionStatus {
	switch category {
	case judge.CategoryCompilationError:
		return models.SubmissionStatusCompilationError
	case judge.CategoryRuntimeError:
		return models.SubmissionStatusRuntimeError
	case judge.CategoryTimeLimitExceeded:
		return models.SubmissionStatusTimeLimitExceeded
	default:
		return models.SubmissionStatusWrongAnswer
	}
}

func outcomeLabel(result EvaluationResult) string {
	switch res := result.(type) {
	case Accepted:
		return string(models.SubmissionStatusAccepted)
	case Rejected:
		return string(res.Status)
	default:
		return "Infra Failure"
	}
}
