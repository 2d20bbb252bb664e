package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/courselive-backend/internal/domain"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

type InteractionRecordRepo interface {
	GetBySubjectAndBlock(ctx context.Context, tx *gorm.DB, subjectID, blockID uuid.UUID) (*domain.InteractionRecord, error)
	ListBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) ([]*domain.InteractionRecord, error)
	ListByScope(ctx context.Context, tx *gorm.DB, scopeID uuid.UUID) ([]*domain.InteractionRecord, error)
	Upsert(ctx context.Context, tx *gorm.DB, row *domain.InteractionRecord) (*domain.InteractionRecord, error)
	DeleteBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) error
}

type interactionRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRecordRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRecordRepo {
	return &interactionRecordRepo{db: db, log: baseLog.With("repo", "InteractionRecordRepo")}
}

func (r *interactionRecordRepo) GetBySubjectAndBlock(ctx context.Context, tx *gorm.DB, subjectID, blockID uuid.UUID) (*domain.InteractionRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out domain.InteractionRecord
	if err := t.WithContext(ctx).
		Where("subject_id = ? AND block_id = ?", subjectID, blockID).
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *interactionRecordRepo) ListBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) ([]*domain.InteractionRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.InteractionRecord
	if err := t.WithContext(ctx).
		Where("subject_id = ? AND scope_id = ?", subjectID, scopeID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListByScope feeds facilitator-side live analytics: every participant's
// records for one session.
func (r *interactionRecordRepo) ListByScope(ctx context.Context, tx *gorm.DB, scopeID uuid.UUID) ([]*domain.InteractionRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.InteractionRecord
	if err := t.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert writes the record keyed by (subject_id, block_id); a second write
// for the same key replaces the mutable fields of the first.
func (r *interactionRecordRepo) Upsert(ctx context.Context, tx *gorm.DB, row *domain.InteractionRecord) (*domain.InteractionRecord, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "subject_id"}, {Name: "block_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_completed", "started_at", "completed_at", "time_spent_seconds",
				"score", "attempts", "state", "last_response", "completion_quality", "updated_at",
			}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteBySubjectAndScope backs the explicit lesson reset; records are never
// removed any other way.
func (r *interactionRecordRepo) DeleteBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Where("subject_id = ? AND scope_id = ?", subjectID, scopeID).
		Delete(&domain.InteractionRecord{}).Error
}
