package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

// Room is one ephemeral test-mode session run. Nothing in it touches the
// store: the session, its blocks and every interaction record live here and
// vanish when the facilitator disconnects. Each run gets a fresh session id,
// so two facilitators rehearsing the same content never cross-talk.
type Room struct {
	mu      sync.Mutex
	session domain.Session
	blocks  []*domain.Block
	records map[uuid.UUID]map[uuid.UUID]*domain.InteractionRecord
}

// Apply runs cmd through the state machine and commits the transition to the
// room's in-memory state. The room mutex is the test-mode equivalent of the
// live-mode per-session serialization.
func (r *Room) Apply(cmd Command) (domain.SessionSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tr, err := Apply(&r.session, r.blocks, cmd)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	r.session = tr.Session
	r.session.UpdatedAt = time.Now().UTC()
	for _, b := range r.blocks {
		if status, ok := tr.BlockStatus[b.ID]; ok {
			b.Status = status
		}
	}
	return Snapshot(&r.session, r.blocks), nil
}

func (r *Room) Snapshot() domain.SessionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot(&r.session, r.blocks)
}

func (r *Room) SessionID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.ID
}

func (r *Room) FacilitatorID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.FacilitatorID
}

func (r *Room) Blocks() []*domain.Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

func (r *Room) Block(id uuid.UUID) (*domain.Block, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocks {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Record returns the room-local interaction record for a subject and block.
func (r *Room) Record(subjectID, blockID uuid.UUID) (*domain.InteractionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[subjectID][blockID]
	return rec, ok
}

func (r *Room) UpsertRecord(rec *domain.InteractionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byBlock, ok := r.records[rec.SubjectID]
	if !ok {
		byBlock = make(map[uuid.UUID]*domain.InteractionRecord)
		r.records[rec.SubjectID] = byBlock
	}
	byBlock[rec.BlockID] = rec
}

// RecordsBySubject returns every subject's room-local records, for the
// facilitator-side roll-up over a rehearsal.
func (r *Room) RecordsBySubject() map[uuid.UUID][]*domain.InteractionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID][]*domain.InteractionRecord, len(r.records))
	for subjectID, byBlock := range r.records {
		for _, rec := range byBlock {
			out[subjectID] = append(out[subjectID], rec)
		}
	}
	return out
}

func (r *Room) RecordsFor(subjectID uuid.UUID) []*domain.InteractionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.InteractionRecord
	for _, rec := range r.records[subjectID] {
		out = append(out, rec)
	}
	return out
}

// Rooms is the registry of live test-mode runs, keyed by session id.
type Rooms struct {
	mu    sync.RWMutex
	log   *logger.Logger
	rooms map[uuid.UUID]*Room
}

func NewRooms(log *logger.Logger) *Rooms {
	return &Rooms{
		log:   log.With("component", "TestRooms"),
		rooms: make(map[uuid.UUID]*Room),
	}
}

// Create opens a new test run over a copy of the given blocks. Block copies
// start pending regardless of any live status the originals carry.
func (rs *Rooms) Create(facilitatorID uuid.UUID, title string, blocks []*domain.Block) *Room {
	sessID := uuid.New()
	copies := make([]*domain.Block, 0, len(blocks))
	for _, b := range blocks {
		cp := *b
		cp.OwnerID = sessID
		cp.Status = domain.BlockStatusPending
		copies = append(copies, &cp)
	}
	room := &Room{
		session: domain.Session{
			ID:            sessID,
			FacilitatorID: facilitatorID,
			Title:         title,
			Status:        domain.SessionStatusDraft,
			PlayState:     domain.PlayStateIdle,
			Mode:          domain.SessionModeTest,
			Visibility:    domain.SessionVisibilityPrivate,
			UpdatedAt:     time.Now().UTC(),
		},
		blocks:  copies,
		records: make(map[uuid.UUID]map[uuid.UUID]*domain.InteractionRecord),
	}

	rs.mu.Lock()
	rs.rooms[sessID] = room
	rs.mu.Unlock()

	rs.log.Debug("test room created", "sessionID", sessID, "facilitatorID", facilitatorID, "blocks", len(copies))
	return room
}

func (rs *Rooms) Get(sessionID uuid.UUID) (*Room, error) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	room, ok := rs.rooms[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: test room %s", apperrors.ErrNotFound, sessionID)
	}
	return room, nil
}

// Close tears a run down. Called when the facilitator ends the rehearsal or
// drops the connection.
func (rs *Rooms) Close(sessionID uuid.UUID) {
	rs.mu.Lock()
	_, existed := rs.rooms[sessionID]
	delete(rs.rooms, sessionID)
	rs.mu.Unlock()
	if existed {
		rs.log.Debug("test room closed", "sessionID", sessionID)
	}
}
