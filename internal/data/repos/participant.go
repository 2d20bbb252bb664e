package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/courselive-backend/internal/domain"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

type ParticipantRepo interface {
	Join(ctx context.Context, tx *gorm.DB, row *domain.Participant) (*domain.Participant, error)
	ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*domain.Participant, error)
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return &participantRepo{db: db, log: baseLog.With("repo", "ParticipantRepo")}
}

// Join is idempotent on (session_id, user_id); rejoining refreshes the
// display name and keeps the original joined_at.
func (r *participantRepo) Join(ctx context.Context, tx *gorm.DB, row *domain.Participant) (*domain.Participant, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	if err := t.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *participantRepo) ListBySession(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) ([]*domain.Participant, error) {
	t := tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Participant
	if err := t.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
