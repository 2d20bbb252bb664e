package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *domain.Session) (*domain.Session, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Session, error)
	ListByFacilitator(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error)
	UpdateState(ctx context.Context, tx *gorm.DB, row *domain.Session) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Session) (*domain.Session, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Session, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out domain.Session
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) ListByFacilitator(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Session
	if err := t.WithContext(ctx).
		Where("facilitator_id = ?", facilitatorID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateState persists the state-machine fields of a committed transition.
func (r *sessionRepo) UpdateState(ctx context.Context, tx *gorm.DB, row *domain.Session) error {
	t := tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"status":           row.Status,
			"play_state":       row.PlayState,
			"current_block_id": row.CurrentBlockID,
		}).Error
}
