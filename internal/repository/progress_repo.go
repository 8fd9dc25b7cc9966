package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// ProgressRepository manages the per-user solved set.
type ProgressRepository interface {
	AddSolved(ctx context.Context, userID, problemID uint, solvedAt time.Time) (bool, error)
	ListSolvedIDs(ctx context.Context, userID uint) ([]uint, error)
	ListSolvedProblems(ctx context.Context, userID uint) ([]models.Problem, error)
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

type progressRepository struct {
	db *gorm.DB
}

// AddSolved inserts the pair if absent and reports whether a row was added.
func (r *progressRepository) AddSolved(ctx context.Context, userID, problemID uint, solvedAt time.Time) (bool, error) {
	entry := models.SolvedProblem{UserID: userID, ProblemID: problemID, SolvedAt: solvedAt}
	result := r.db.WithContext(ctx).
		Omit("Problem").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *progressRepository) ListSolvedIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := make([]uint, 0)
	err := r.db.WithContext(ctx).Model(&models.SolvedProblem{}).
		Where("user_id = ?", userID).
		Order("solved_at ASC").
		Pluck("problem_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *progressRepository) ListSolvedProblems(ctx context.Context, userID uint) ([]models.Problem, error) {
	var problems []models.Problem
	err := r.db.WithContext(ctx).Model(&models.Problem{}).
		Joins("JOIN solved_problems ON solved_problems.problem_id = problems.id").
		Where("solved_problems.user_id = ?", userID).
		Order("problems.id ASC").
		Find(&problems).Error
	if err != nil {
		return nil, err
	}
	return problems, nil
}
