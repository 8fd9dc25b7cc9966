package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
)

func TestProblemRepositoryListFiltersAndPaginates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)
	ctx := context.Background()

	seedProblem(t, db, "Two Sum", "Arrays", models.DifficultyEasy)
	seedProblem(t, db, "Three Sum", "Arrays", models.DifficultyMedium)
	seedProblem(t, db, "Course Schedule", "Graphs", models.DifficultyMedium)

	items, total, err := repo.List(ctx, ProblemQuery{Topic: "arrays"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)

	items, total, err = repo.List(ctx, ProblemQuery{Difficulty: "medium", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 1)
	require.Equal(t, "Course Schedule", items[0].Title)

	items, _, err = repo.List(ctx, ProblemQuery{Search: "sum"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	topics, err := repo.Topics(ctx)
	require.NoError(t, err)
	require.Equal(t, []TopicCount{{Topic: "Arrays", Count: 2}, {Topic: "Graphs", Count: 1}}, topics)

	nth, err := repo.NthByID(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Course Schedule", nth.Title)
}

func TestProblemRepositoryUpsertBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)
	ctx := context.Background()

	batch := []models.Problem{{
		Slug:       "fizz-buzz",
		Title:      "Fizz Buzz",
		Topic:      "Math",
		Difficulty: models.DifficultyEasy,
		Hints:      []string{"Use modulo"},
		TestCases:  []models.TestCase{{Input: "3", ExpectedOutput: "1\n2\nFizz"}},
	}}

	affected, err := repo.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	update := []models.Problem{{
		Slug:       "fizz-buzz",
		Title:      "Fizz Buzz",
		Topic:      "Math",
		Difficulty: models.DifficultyMedium,
		TestCases:  []models.TestCase{{Input: "5", ExpectedOutput: "1\n2\nFizz\n4\nBuzz"}},
	}}
	_, err = repo.UpsertBatch(ctx, update)
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	stored, _, err := repo.List(ctx, ProblemQuery{})
	require.NoError(t, err)
	require.Equal(t, models.DifficultyMedium, stored[0].Difficulty)
	require.Len(t, stored[0].TestCases, 1)
	require.Equal(t, "5", stored[0].TestCases[0].Input)
}

func TestProblemRepositoryDeleteUnreferencedKeepsHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProblemRepository(db)
	ctx := context.Background()

	submitted := seedProblem(t, db, "Two Sum", "Arrays", models.DifficultyEasy)
	solved := seedProblem(t, db, "Valid Parentheses", "Stacks", models.DifficultyEasy)
	kept := seedProblem(t, db, "Merge Intervals", "Arrays", models.DifficultyMedium)
	stale := seedProblem(t, db, "Word Ladder", "Graphs", models.DifficultyHard)

	require.NoError(t, db.Omit("Problem").Create(&models.Submission{UserID: 1, ProblemID: submitted.ID, Code: "x", Language: "python", Status: models.SubmissionStatusWrongAnswer}).Error)
	require.NoError(t, db.Omit("Problem").Create(&models.SolvedProblem{UserID: 1, ProblemID: solved.ID, SolvedAt: time.Now()}).Error)

	removed, err := repo.DeleteUnreferenced(ctx, []string{kept.Slug})
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = repo.GetByID(ctx, stale.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	removed, err = repo.DeleteUnreferenced(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	remaining, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), remaining)
}
