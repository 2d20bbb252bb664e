package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *domain.User {
	tb.Helper()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       email,
		Password:    "pw",
		DisplayName: "tester",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) *domain.Session {
	tb.Helper()
	s := &domain.Session{
		ID:            uuid.New(),
		FacilitatorID: facilitatorID,
		Title:         "session",
		Status:        domain.SessionStatusDraft,
		PlayState:     domain.PlayStateIdle,
		Mode:          domain.SessionModeLive,
		Visibility:    domain.SessionVisibilityPrivate,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedBlocks(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerType string, ownerID uuid.UUID, n int) []*domain.Block {
	tb.Helper()
	out := make([]*domain.Block, 0, n)
	for i := 0; i < n; i++ {
		b := &domain.Block{
			ID:         uuid.New(),
			OwnerType:  ownerType,
			OwnerID:    ownerID,
			Position:   i,
			PluginType: "single_choice",
			Weight:     1,
			Status:     domain.BlockStatusPending,
		}
		if err := tx.WithContext(ctx).Create(b).Error; err != nil {
			tb.Fatalf("seed block %d: %v", i, err)
		}
		out = append(out, b)
	}
	return out
}
