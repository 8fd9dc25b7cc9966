package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// ProblemQuery defines filters and pagination for the problem catalog.
type ProblemQuery struct {
	Topic      string
	Difficulty string
	Search     string
	Offset     int
	Limit      int
}

// TopicCount is the number of problems carrying a topic.
type TopicCount struct {
	Topic string
	Count int64
}

// ProblemRepository exposes persistence operations for problems.
type ProblemRepository interface {
	List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error)
	GetByID(ctx context.Context, id uint) (models.Problem, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Problem, error)
	Count(ctx context.Context) (int64, error)
	NthByID(ctx context.Context, offset int) (models.Problem, error)
	Topics(ctx context.Context) ([]TopicCount, error)
	Create(ctx context.Context, problem *models.Problem) error
	UpsertBatch(ctx context.Context, problems []models.Problem) (int64, error)
	DeleteUnreferenced(ctx context.Context, keepSlugs []string) (int64, error)
}

// NewProblemRepository constructs a problem repository.
func NewProblemRepository(db *gorm.DB) ProblemRepository {
	return &problemRepository{db: db}
}

type problemRepository struct {
	db *gorm.DB
}

func (r *problemRepository) List(ctx context.Context, query ProblemQuery) ([]models.Problem, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Problem{})

	if query.Topic != "" {
		db = db.Where("LOWER(topic) = ?", strings.ToLower(query.Topic))
	}

	if query.Difficulty != "" {
		db = db.Where("LOWER(difficulty) = ?", strings.ToLower(query.Difficulty))
	}

	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var problems []models.Problem
	if err := db.Order("id ASC").Find(&problems).Error; err != nil {
		return nil, 0, err
	}

	return problems, total, nil
}

func (r *problemRepository) GetByID(ctx context.Context, id uint) (models.Problem, error) {
	var problem models.Problem
	if err := r.db.WithContext(ctx).First(&problem, id).Error; err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var problems []models.Problem
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&problems).Error; err != nil {
		return nil, err
	}
	return problems, nil
}

func (r *problemRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Problem{}).Count(&total).Error
	return total, err
}

func (r *problemRepository) NthByID(ctx context.Context, offset int) (models.Problem, error) {
	var problem models.Problem
	err := r.db.WithContext(ctx).Order("id ASC").Offset(offset).Limit(1).Take(&problem).Error
	if err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}

func (r *problemRepository) Topics(ctx context.Context) ([]TopicCount, error) {
	var rows []TopicCount
	err := r.db.WithContext(ctx).Model(&models.Problem{}).
		Select("topic, COUNT(*) AS count").
		Group("topic").
		Order("topic ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *problemRepository) Create(ctx context.Context, problem *models.Problem) error {
	return r.db.WithContext(ctx).Create(problem).Error
}

func (r *problemRepository) UpsertBatch(ctx context.Context, problems []models.Problem) (int64, error) {
	if len(problems) == 0 {
		return 0, nil
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "topic", "difficulty", "hints", "starter_code", "test_cases", "updated_at"}),
	})

	result := tx.Create(&problems)
	return result.RowsAffected, result.Error
}

// DeleteUnreferenced removes problems whose slug is not in keepSlugs. Problems that a submission
// or solved entry points at are never removed.
func (r *problemRepository) DeleteUnreferenced(ctx context.Context, keepSlugs []string) (int64, error) {
	query := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM submissions WHERE submissions.problem_id = problems.id)").
		Where("NOT EXISTS (SELECT 1 FROM solved_problems WHERE solved_problems.problem_id = problems.id)")
	if len(keepSlugs) > 0 {
		query = query.Where("slug NOT IN ?", keepSlugs)
	}

	result := query.Delete(&models.Problem{})
	return result.RowsAffected, result.Error
}
