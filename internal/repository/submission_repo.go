package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/codepractice-api/internal/models"
)

// SubmissionFilter allows narrowing submission history queries.
type SubmissionFilter struct {
	UserID    uint
	ProblemID *uint
	Status    *models.SubmissionStatus
	Limit     int
}

// AcceptedEntry is an accepted submission reduced to what progress statistics need.
type AcceptedEntry struct {
	ProblemID uint
	CreatedAt time.Time
}

// SubmissionRepository is the append-only store of evaluation attempts.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
	AcceptedSince(ctx context.Context, userID uint, since time.Time) ([]AcceptedEntry, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Problem").Create(submission).Error
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Problem").
		Where("user_id = ?", filter.UserID)

	if filter.ProblemID != nil {
		query = query.Where("problem_id = ?", *filter.ProblemID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

func (r *submissionRepository) AcceptedSince(ctx context.Context, userID uint, since time.Time) ([]AcceptedEntry, error) {
	var rows []AcceptedEntry
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("problem_id, created_at").
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.SubmissionStatusAccepted, since).
		Order("created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
