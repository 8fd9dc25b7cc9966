package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

func problemWith(cases ...models.TestCase) models.Problem {
	return models.Problem{ID: 1, Title: "Sum", TestCases: cases}
}

func TestEvaluateAcceptsWhenEveryCasePasses(t *testing.T) {
	runner := echoRunner(func(stdin string) string { return stdin })
	svc := NewEvaluationService(runner, judge.RunOptions{PollInterval: 1, MaxAttempts: 3}, testLogger())

	problem := problemWith(
		models.TestCase{Input: "a", ExpectedOutput: "a"},
		models.TestCase{Input: "b", ExpectedOutput: "b"},
		models.TestCase{Input: "c", ExpectedOutput: "c"},
	)

	result, err := svc.Evaluate(context.Background(), problem, "print(input())", "python")
	require.NoError(t, err)
	require.Equal(t, Accepted{TestCases: 3}, result)
	require.Equal(t, 3, runner.callCount())

	for i, call := range runner.calls {
		require.Equal(t, problem.TestCases[i].Input, call.Stdin)
		require.Equal(t, judge.RunOptions{PollInterval: 1, MaxAttempts: 3}, call.Options)
	}
}

func TestEvaluateStopsAtFirstFailingCase(t *testing.T) {
	for k := 1; k <= 4; k++ {
		t.Run(fmt.Sprintf("fails at %d", k), func(t *testing.T) {
			failing := fmt.Sprintf("case-%d", k)
			runner := echoRunner(func(stdin string) string {
				if stdin == failing {
					return "wrong"
				}
				return stdin
			})
			svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

			cases := make([]models.TestCase, 0, 4)
			for i := 1; i <= 4; i++ {
				value := fmt.Sprintf("case-%d", i)
				cases = append(cases, models.TestCase{Input: value, ExpectedOutput: value})
			}

			result, err := svc.Evaluate(context.Background(), problemWith(cases...), "src", "python")
			require.NoError(t, err)

			rejected, ok := result.(Rejected)
			require.True(t, ok, "expected Rejected, got %T", result)
			require.Equal(t, models.SubmissionStatusWrongAnswer, rejected.Status)
			require.Equal(t, k, rejected.FailedIndex)
			require.Equal(t, failing, rejected.Input)
			require.Equal(t, "wrong", rejected.Output)
			require.Equal(t, failing, rejected.Expected)
			require.Equal(t, fmt.Sprintf("Failed on test case #%d", k), rejected.Message)
			require.Equal(t, k, runner.callCount())
		})
	}
}

func TestEvaluateTrimsOnlySurroundingWhitespace(t *testing.T) {
	svc := NewEvaluationService(echoRunner(func(string) string { return "42" }), judge.RunOptions{}, testLogger())

	result, err := svc.Evaluate(context.Background(), problemWith(models.TestCase{ExpectedOutput: "42\n"}), "src", "python")
	require.NoError(t, err)
	require.IsType(t, Accepted{}, result)

	svc = NewEvaluationService(echoRunner(func(string) string { return "  42 \n\n" }), judge.RunOptions{}, testLogger())
	result, err = svc.Evaluate(context.Background(), problemWith(models.TestCase{ExpectedOutput: "42"}), "src", "python")
	require.NoError(t, err)
	require.IsType(t, Accepted{}, result)

	svc = NewEvaluationService(echoRunner(func(string) string { return "42" }), judge.RunOptions{}, testLogger())
	result, err = svc.Evaluate(context.Background(), problemWith(models.TestCase{ExpectedOutput: "4 2"}), "src", "python")
	require.NoError(t, err)
	require.IsType(t, Rejected{}, result)

	svc = NewEvaluationService(echoRunner(func(string) string { return "Yes" }), judge.RunOptions{}, testLogger())
	result, err = svc.Evaluate(context.Background(), problemWith(models.TestCase{ExpectedOutput: "yes"}), "src", "python")
	require.NoError(t, err)
	require.IsType(t, Rejected{}, result)
}

func TestEvaluateSumScenario(t *testing.T) {
	problem := problemWith(models.TestCase{Input: "3\n4", ExpectedOutput: "7"})

	svc := NewEvaluationService(echoRunner(func(string) string { return "7" }), judge.RunOptions{}, testLogger())
	result, err := svc.Evaluate(context.Background(), problem, "src", "cpp")
	require.NoError(t, err)
	require.Equal(t, Accepted{TestCases: 1}, result)

	svc = NewEvaluationService(echoRunner(func(string) string { return "8" }), judge.RunOptions{}, testLogger())
	result, err = svc.Evaluate(context.Background(), problem, "src", "cpp")
	require.NoError(t, err)

	rejected, ok := result.(Rejected)
	require.True(t, ok)
	require.Equal(t, models.SubmissionStatusWrongAnswer, rejected.Status)
	require.Equal(t, 1, rejected.FailedIndex)
	require.Equal(t, "3\n4", rejected.Input)
	require.Equal(t, "8", rejected.Output)
	require.Equal(t, "7", rejected.Expected)
}

func TestEvaluateReportsRuntimeErrorWithStderr(t *testing.T) {
	runner := &stubRunner{respond: func(call int, stdin string) (judge.Verdict, error) {
		if call == 1 {
			return acceptedVerdict("1"), nil
		}
		verdict := statusVerdict(11, "Runtime Error (NZEC)")
		verdict.Stderr = strPtr("IndexError: list index out of range")
		verdict.CompileOutput = strPtr("unused compiler note")
		return verdict, nil
	}}
	svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

	problem := problemWith(
		models.TestCase{Input: "1", ExpectedOutput: "1"},
		models.TestCase{Input: "2", ExpectedOutput: "2"},
		models.TestCase{Input: "3", ExpectedOutput: "3"},
	)

	result, err := svc.Evaluate(context.Background(), problem, "src", "python")
	require.NoError(t, err)

	rejected, ok := result.(Rejected)
	require.True(t, ok)
	require.Equal(t, models.SubmissionStatusRuntimeError, rejected.Status)
	require.Equal(t, 2, rejected.FailedIndex)
	require.Equal(t, "IndexError: list index out of range", rejected.Output)
	require.Equal(t, 2, runner.callCount())
}

func TestEvaluateMapsJudgeCategories(t *testing.T) {
	cases := []struct {
		name     string
		verdict  judge.Verdict
		expected models.SubmissionStatus
		output   string
	}{
		{
			name: "compilation error",
			verdict: func() judge.Verdict {
				v := statusVerdict(judge.StatusCompilationError, "Compilation Error")
				v.CompileOutput = strPtr("main.cpp:1: error")
				return v
			}(),
			expected: models.SubmissionStatusCompilationError,
			output:   "main.cpp:1: error",
		},
		{
			name:     "time limit",
			verdict:  statusVerdict(judge.StatusTimeLimitExceeded, "Time Limit Exceeded"),
			expected: models.SubmissionStatusTimeLimitExceeded,
		},
		{
			name: "judge wrong answer",
			verdict: func() judge.Verdict {
				v := statusVerdict(judge.StatusWrongAnswer, "Wrong Answer")
				v.Stdout = strPtr("5")
				return v
			}(),
			expected: models.SubmissionStatusWrongAnswer,
			output:   "5",
		},
		{
			name:     "undocumented status",
			verdict:  statusVerdict(15, "Unknown"),
			expected: models.SubmissionStatusWrongAnswer,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubRunner{respond: func(int, string) (judge.Verdict, error) { return tc.verdict, nil }}
			svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

			result, err := svc.Evaluate(context.Background(), problemWith(models.TestCase{Input: "x", ExpectedOutput: "y"}), "src", "cpp")
			require.NoError(t, err)

			rejected, ok := result.(Rejected)
			require.True(t, ok)
			require.Equal(t, tc.expected, rejected.Status)
			require.Equal(t, tc.output, rejected.Output)
			require.Equal(t, 1, rejected.FailedIndex)
		})
	}
}

func TestEvaluateSurfacesJudgeFailuresAsInfraFailure(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		target error
	}{
		{name: "timeout", err: fmt.Errorf("%w after 10 polls", judge.ErrTimeout), target: judge.ErrTimeout},
		{name: "transport", err: &judge.TransportError{Op: "submit", StatusCode: 503}, target: judge.ErrTransport},
		{name: "language", err: fmt.Errorf("%w: %q", judge.ErrUnsupportedLanguage, "ruby"), target: judge.ErrUnsupportedLanguage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &stubRunner{respond: func(call int, stdin string) (judge.Verdict, error) {
				if call == 1 {
					return acceptedVerdict("ok"), nil
				}
				return judge.Verdict{}, tc.err
			}}
			svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

			problem := problemWith(
				models.TestCase{ExpectedOutput: "ok"},
				models.TestCase{ExpectedOutput: "ok"},
				models.TestCase{ExpectedOutput: "ok"},
			)
			result, err := svc.Evaluate(context.Background(), problem, "src", "python")
			require.NoError(t, err)

			failure, ok := result.(InfraFailure)
			require.True(t, ok, "expected InfraFailure, got %T", result)
			require.ErrorIs(t, failure.Err, tc.target)
			require.Equal(t, 2, runner.callCount())
		})
	}
}

func TestEvaluateTreatsJudgeInternalStatusAsInfraFailure(t *testing.T) {
	runner := &stubRunner{respond: func(int, string) (judge.Verdict, error) {
		return statusVerdict(judge.StatusInternalError, "Internal Error"), nil
	}}
	svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

	result, err := svc.Evaluate(context.Background(), problemWith(models.TestCase{ExpectedOutput: "1"}), "src", "java")
	require.NoError(t, err)

	failure, ok := result.(InfraFailure)
	require.True(t, ok)
	require.ErrorIs(t, failure.Err, judge.ErrJudgeInternal)
}

func TestEvaluateRejectsProblemWithoutTestCases(t *testing.T) {
	runner := &stubRunner{}
	svc := NewEvaluationService(runner, judge.RunOptions{}, testLogger())

	result, err := svc.Evaluate(context.Background(), problemWith(), "src", "python")
	require.ErrorIs(t, err, ErrNoTestCases)
	require.Nil(t, result)
	require.Zero(t, runner.callCount())
}
