package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

type submissionFixture struct {
	db        *gorm.DB
	runner    *stubRunner
	publisher *recordingPublisher
	progress  ProgressService
	service   SubmissionService
}

func newSubmissionFixture(t *testing.T, runner *stubRunner) submissionFixture {
	t.Helper()
	db := setupServiceDB(t)
	_, cache := setupRedis(t)

	problems := repository.NewProblemRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	progress := NewProgressService(problems, submissions, repository.NewProgressRepository(db), cache, ProgressConfig{CacheTTL: time.Minute, WeeklyGoal: 5}, testLogger())
	options := judge.RunOptions{PollInterval: time.Millisecond, MaxAttempts: 2}
	evaluator := NewEvaluationService(runner, options, testLogger())
	publisher := &recordingPublisher{}

	return submissionFixture{
		db:        db,
		runner:    runner,
		publisher: publisher,
		progress:  progress,
		service:   NewSubmissionService(problems, submissions, progress, evaluator, runner, options, publisher, validator.New(), testLogger()),
	}
}

func (f submissionFixture) countSubmissions(t *testing.T, userID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Submission{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func TestSubmitAcceptedTwiceKeepsSolvedSetIdempotent(t *testing.T) {
	fixture := newSubmissionFixture(t, echoRunner(func(string) string { return "7" }))
	problem := createProblem(t, fixture.db, "Add Two Numbers", "Math", models.DifficultyEasy, models.TestCase{Input: "3\n4", ExpectedOutput: "7"})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		response, err := fixture.service.Submit(ctx, 1, dto.SubmitRequest{QuestionID: problem.ID, Code: "print(7)", Language: "Python"})
		require.NoError(t, err)
		require.Equal(t, models.SubmissionStatusAccepted, response.Status)
		require.Equal(t, "All test cases passed!", response.Message)
		require.NotZero(t, response.SubmissionID)
		require.Nil(t, response.Input)
	}

	require.Equal(t, int64(2), fixture.countSubmissions(t, 1))

	progress, err := fixture.progress.Progress(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint{problem.ID}, progress.SolvedProblems)

	require.Len(t, fixture.publisher.events, 2)
	require.Equal(t, "Accepted", fixture.publisher.events[0].Status)
	require.Equal(t, problem.ID, fixture.publisher.events[0].ProblemID)
}

func TestSubmitWrongAnswerRecordsDiagnosticsWithoutSolving(t *testing.T) {
	fixture := newSubmissionFixture(t, echoRunner(func(string) string { return "8" }))
	problem := createProblem(t, fixture.db, "Add", "Math", models.DifficultyEasy, models.TestCase{Input: "3\n4", ExpectedOutput: "7"})
	ctx := context.Background()

	response, err := fixture.service.Submit(ctx, 2, dto.SubmitRequest{QuestionID: problem.ID, Code: "print(8)", Language: "python"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusWrongAnswer, response.Status)
	require.Equal(t, "Failed on test case #1", response.Message)
	require.Equal(t, 1, response.FailedTestCase)
	require.Equal(t, "3\n4", *response.Input)
	require.Equal(t, "8", *response.Output)
	require.Equal(t, "7", *response.Expected)

	var stored models.Submission
	require.NoError(t, fixture.db.First(&stored, response.SubmissionID).Error)
	require.Equal(t, models.SubmissionStatusWrongAnswer, stored.Status)
	require.Equal(t, "8", stored.Output)
	require.Equal(t, "python", stored.Language)

	progress, err := fixture.progress.Progress(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, progress.SolvedProblems)
}

func TestSubmitInfraFailureIsNotRecorded(t *testing.T) {
	runner := &stubRunner{respond: func(int, string) (judge.Verdict, error) {
		return judge.Verdict{}, judge.ErrTimeout
	}}
	fixture := newSubmissionFixture(t, runner)
	problem := createProblem(t, fixture.db, "Slow", "Math", models.DifficultyHard, models.TestCase{ExpectedOutput: "1"})

	_, err := fixture.service.Submit(context.Background(), 3, dto.SubmitRequest{QuestionID: problem.ID, Code: "loop", Language: "java"})
	require.ErrorIs(t, err, judge.ErrTimeout)
	require.Zero(t, fixture.countSubmissions(t, 3))
	require.Empty(t, fixture.publisher.events)
}

func TestSubmitRejectsUnsupportedLanguageBeforeLoadingProblem(t *testing.T) {
	fixture := newSubmissionFixture(t, &stubRunner{})

	_, err := fixture.service.Submit(context.Background(), 1, dto.SubmitRequest{QuestionID: 999, Code: "puts 1", Language: "ruby"})
	require.ErrorIs(t, err, judge.ErrUnsupportedLanguage)
	require.Zero(t, fixture.runner.callCount())
}

func TestSubmitUnknownProblem(t *testing.T) {
	fixture := newSubmissionFixture(t, &stubRunner{})

	_, err := fixture.service.Submit(context.Background(), 1, dto.SubmitRequest{QuestionID: 999, Code: "print(1)", Language: "python"})
	require.ErrorIs(t, err, ErrProblemNotFound)
}

func TestSubmitProblemWithoutTestCases(t *testing.T) {
	fixture := newSubmissionFixture(t, &stubRunner{})
	problem := createProblem(t, fixture.db, "Empty", "Math", models.DifficultyEasy)

	_, err := fixture.service.Submit(context.Background(), 1, dto.SubmitRequest{QuestionID: problem.ID, Code: "print(1)", Language: "python"})
	require.ErrorIs(t, err, ErrNoTestCases)
	require.Zero(t, fixture.countSubmissions(t, 1))
}

func TestSubmitValidatesPayload(t *testing.T) {
	fixture := newSubmissionFixture(t, &stubRunner{})

	_, err := fixture.service.Submit(context.Background(), 1, dto.SubmitRequest{Language: "python"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestSubmitInvalidatesCachedStats(t *testing.T) {
	fixture := newSubmissionFixture(t, echoRunner(func(string) string { return "ok" }))
	problem := createProblem(t, fixture.db, "Echo", "Strings", models.DifficultyMedium, models.TestCase{ExpectedOutput: "ok"})
	ctx := context.Background()

	before, err := fixture.progress.Stats(ctx, 4)
	require.NoError(t, err)
	require.Zero(t, before.TotalSolved)

	_, err = fixture.service.Submit(ctx, 4, dto.SubmitRequest{QuestionID: problem.ID, Code: "print('ok')", Language: "python"})
	require.NoError(t, err)

	after, err := fixture.progress.Stats(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, 1, after.TotalSolved)
	require.Equal(t, 1, after.MediumSolved)
	require.Equal(t, 1, after.TotalSubmissions)
}

func TestRunReturnsRawVerdictWithoutPersistence(t *testing.T) {
	runner := &stubRunner{respond: func(_ int, stdin string) (judge.Verdict, error) {
		verdict := statusVerdict(judge.StatusCompilationError, "Compilation Error")
		verdict.CompileOutput = strPtr("error: expected ';'")
		return verdict, nil
	}}
	fixture := newSubmissionFixture(t, runner)

	response, err := fixture.service.Run(context.Background(), dto.RunRequest{Code: "int main() {", Language: "cpp", Stdin: "5"})
	require.NoError(t, err)
	require.Equal(t, judge.StatusCompilationError, response.Status.ID)
	require.Equal(t, "error: expected ';'", *response.CompileOutput)
	require.Equal(t, "5", runner.calls[0].Stdin)
	require.Equal(t, "cpp", runner.calls[0].Language)

	var count int64
	require.NoError(t, fixture.db.Model(&models.Submission{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRunRejectsUnsupportedLanguage(t *testing.T) {
	fixture := newSubmissionFixture(t, &stubRunner{})

	_, err := fixture.service.Run(context.Background(), dto.RunRequest{Code: "x", Language: "cobol"})
	require.ErrorIs(t, err, judge.ErrUnsupportedLanguage)
	require.Zero(t, fixture.runner.callCount())
}

func TestHistoryFiltersByProblem(t *testing.T) {
	fixture := newSubmissionFixture(t, echoRunner(func(string) string { return "1" }))
	first := createProblem(t, fixture.db, "First", "Math", models.DifficultyEasy, models.TestCase{ExpectedOutput: "1"})
	second := createProblem(t, fixture.db, "Second", "Math", models.DifficultyEasy, models.TestCase{ExpectedOutput: "2"})
	ctx := context.Background()

	_, err := fixture.service.Submit(ctx, 5, dto.SubmitRequest{QuestionID: first.ID, Code: "a", Language: "python"})
	require.NoError(t, err)
	_, err = fixture.service.Submit(ctx, 5, dto.SubmitRequest{QuestionID: second.ID, Code: "b", Language: "python"})
	require.NoError(t, err)

	all, err := fixture.service.History(ctx, 5, dto.SubmissionHistoryQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := fixture.service.History(ctx, 5, dto.SubmissionHistoryQuery{QuestionID: second.ID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "Second", filtered[0].ProblemTitle)
	require.Equal(t, models.SubmissionStatusWrongAnswer, filtered[0].Status)
	require.Equal(t, "b", filtered[0].Code)
}

func TestSubmitCarriesCorrelationIDToJudge(t *testing.T) {
	fixture := newSubmissionFixture(t, echoRunner(func(string) string { return "1" }))
	problem := createProblem(t, fixture.db, "Echo One", "Math", models.DifficultyEasy,
		models.TestCase{ExpectedOutput: "1"},
		models.TestCase{ExpectedOutput: "1"},
	)
	ctx := middleware.ContextWithCorrelation(context.Background(), "req-77")

	_, err := fixture.service.Submit(ctx, 6, dto.SubmitRequest{QuestionID: problem.ID, Code: "print(1)", Language: "python"})
	require.NoError(t, err)
	require.Equal(t, 2, fixture.runner.callCount())
	for _, call := range fixture.runner.calls {
		require.Equal(t, "req-77", call.CorrelationID)
	}
}
