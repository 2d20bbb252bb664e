package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/sse"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*domain.Session
	failNext bool
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[uuid.UUID]*domain.Session)}
}

func (f *fakeSessionRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.Session) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *row
	f.rows[row.ID] = &cp
	return row, nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeSessionRepo) ListByFacilitator(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Session
	for _, row := range f.rows {
		if row.FacilitatorID == facilitatorID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) UpdateState(ctx context.Context, tx *gorm.DB, row *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("simulated write failure")
	}
	stored, ok := f.rows[row.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.Status = row.Status
	stored.PlayState = row.PlayState
	stored.CurrentBlockID = row.CurrentBlockID
	return nil
}

type fakeBlockRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Block
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{rows: make(map[uuid.UUID]*domain.Block)}
}

func (f *fakeBlockRepo) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Block) ([]*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range rows {
		cp := *b
		f.rows[b.ID] = &cp
	}
	return rows, nil
}

func (f *fakeBlockRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBlockRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerType string, ownerID uuid.UUID) ([]*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Block
	for _, b := range f.rows {
		if b.OwnerType == ownerType && b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	// callers expect position order
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Position < out[i].Position {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeBlockRepo) UpdateStatuses(ctx context.Context, tx *gorm.DB, statuses map[uuid.UUID]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, status := range statuses {
		if b, ok := f.rows[id]; ok {
			b.Status = status
		}
	}
	return nil
}

type fakeRecordRepo struct {
	mu       sync.Mutex
	rows     map[string]*domain.InteractionRecord
	failNext bool
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{rows: make(map[string]*domain.InteractionRecord)}
}

func recordKey(subjectID, blockID uuid.UUID) string {
	return subjectID.String() + "/" + blockID.String()
}

func (f *fakeRecordRepo) GetBySubjectAndBlock(ctx context.Context, tx *gorm.DB, subjectID, blockID uuid.UUID) (*domain.InteractionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[recordKey(subjectID, blockID)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecordRepo) ListBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) ([]*domain.InteractionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.InteractionRecord
	for _, rec := range f.rows {
		if rec.SubjectID == subjectID && rec.ScopeID == scopeID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) ListByScope(ctx context.Context, tx *gorm.DB, scopeID uuid.UUID) ([]*domain.InteractionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.InteractionRecord
	for _, rec := range f.rows {
		if rec.ScopeID == scopeID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Upsert(ctx context.Context, tx *gorm.DB, row *domain.InteractionRecord) (*domain.InteractionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, fmt.Errorf("simulated write failure")
	}
	cp := *row
	f.rows[recordKey(row.SubjectID, row.BlockID)] = &cp
	return row, nil
}

func (f *fakeRecordRepo) DeleteBySubjectAndScope(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, rec := range f.rows {
		if rec.SubjectID == subjectID && rec.ScopeID == scopeID {
			delete(f.rows, key)
		}
	}
	return nil
}

// fakeBus captures committed-change publications in order.
type fakeBus struct {
	mu        sync.Mutex
	published []sse.Envelope
}

func (f *fakeBus) Publish(ctx context.Context, env sse.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, env)
	return nil
}

func (f *fakeBus) StartForwarder(ctx context.Context, onMsg func(env sse.Envelope)) error {
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) envelopes() []sse.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sse.Envelope, len(f.published))
	copy(out, f.published)
	return out
}
