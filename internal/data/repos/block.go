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

type BlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*domain.Block) ([]*domain.Block, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Block, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerType string, ownerID uuid.UUID) ([]*domain.Block, error)
	UpdateStatuses(ctx context.Context, tx *gorm.DB, statuses map[uuid.UUID]string) error
}

type blockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &blockRepo{db: db, log: baseLog.With("repo", "BlockRepo")}
}

func (r *blockRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Block) ([]*domain.Block, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Block{}, nil
	}
	if err := t.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *blockRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Block, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out domain.Block
	if err := t.WithContext(ctx).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *blockRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerType string, ownerID uuid.UUID) ([]*domain.Block, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Block
	if err := t.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatuses applies the per-block status changes of one transition.
func (r *blockRepo) UpdateStatuses(ctx context.Context, tx *gorm.DB, statuses map[uuid.UUID]string) error {
	t := tx
	if t == nil {
		t = r.db
	}
	for id, status := range statuses {
		if err := t.WithContext(ctx).
			Model(&domain.Block{}).
			Where("id = ?", id).
			Update("status", status).Error; err != nil {
			return err
		}
	}
	return nil
}
