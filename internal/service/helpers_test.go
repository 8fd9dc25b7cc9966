package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/events"
	"github.com/noah-isme/codepractice-api/internal/middleware"
	"github.com/noah-isme/codepractice-api/internal/models"
	"github.com/noah-isme/codepractice-api/pkg/judge"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Problem{}, &models.Submission{}, &models.SolvedProblem{}))
	return db
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func createProblem(t *testing.T, db *gorm.DB, title, topic, difficulty string, cases ...models.TestCase) models.Problem {
	t.Helper()
	problem := models.Problem{
		Slug:       strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Title:      title,
		Topic:      topic,
		Difficulty: difficulty,
		TestCases:  cases,
	}
	require.NoError(t, db.Create(&problem).Error)
	return problem
}

type runCall struct {
	Source        string
	Language      string
	Stdin         string
	Options       judge.RunOptions
	CorrelationID string
}

// stubRunner answers judge runs from a script keyed by call order.
type stubRunner struct {
	mu      sync.Mutex
	calls   []runCall
	respond func(call int, stdin string) (judge.Verdict, error)
}

func (s *stubRunner) Run(ctx context.Context, source, language, stdin string, opts judge.RunOptions) (judge.Verdict, error) {
	s.mu.Lock()
	s.calls = append(s.calls, runCall{
		Source:        source,
		Language:      language,
		Stdin:         stdin,
		Options:       opts,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
	})
	call := len(s.calls)
	s.mu.Unlock()

	if s.respond == nil {
		return acceptedVerdict(""), nil
	}
	return s.respond(call, stdin)
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// echoRunner simulates a program whose stdout is produced by fn from stdin.
func echoRunner(fn func(stdin string) string) *stubRunner {
	return &stubRunner{respond: func(_ int, stdin string) (judge.Verdict, error) {
		return acceptedVerdict(fn(stdin)), nil
	}}
}

func strPtr(value string) *string {
	return &value
}

func acceptedVerdict(stdout string) judge.Verdict {
	return judge.Verdict{
		Token:  "tok",
		Status: judge.Status{ID: judge.StatusAccepted, Description: "Accepted"},
		Stdout: strPtr(stdout),
	}
}

func statusVerdict(id int, description string) judge.Verdict {
	return judge.Verdict{Token: "tok", Status: judge.Status{ID: id, Description: description}}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SubmissionEvent
}

func (p *recordingPublisher) PublishSubmission(ctx context.Context, event events.SubmissionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Listen(ctx context.Context, handler func(events.SubmissionEvent)) {}
