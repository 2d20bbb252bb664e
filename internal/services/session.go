package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/clients/redis"
	"github.com/yungbote/courselive-backend/internal/data/repos"
	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/plugincat"
	"github.com/yungbote/courselive-backend/internal/session"
	"github.com/yungbote/courselive-backend/internal/sse"
)

// Authorizer is the external permission collaborator: only facilitators may
// drive a session's state machine.
type Authorizer interface {
	CanFacilitate(ctx context.Context, userID, sessionID uuid.UUID) (bool, error)
}

// BlockInput describes one block at session creation time.
type BlockInput struct {
	PluginType string  `json:"plugin_type"`
	Content    []byte  `json:"content,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
}

type SessionService interface {
	CreateSession(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID, title, visibility string, blocks []BlockInput) (*domain.Session, error)
	ListSessions(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error)
	GetSnapshot(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (domain.SessionSnapshot, error)
	Command(ctx context.Context, userID, sessionID uuid.UUID, cmd session.Command) (domain.SessionSnapshot, error)
	Join(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID, displayName string) (*domain.Participant, error)
	StartTestRun(ctx context.Context, facilitatorID uuid.UUID, title string, blocks []BlockInput) (domain.SessionSnapshot, error)
	CloseTestRun(facilitatorID, sessionID uuid.UUID)
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions repos.SessionRepo
	blocks   repos.BlockRepo
	parts    repos.ParticipantRepo
	users    repos.UserRepo
	auth     Authorizer
	catalog  *plugincat.Catalog
	hub      *sse.Hub
	bus      redis.ChangeBus // nil in single-instance deployments
	rooms    *session.Rooms

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessionRepo repos.SessionRepo,
	blockRepo repos.BlockRepo,
	participantRepo repos.ParticipantRepo,
	userRepo repos.UserRepo,
	auth Authorizer,
	catalog *plugincat.Catalog,
	hub *sse.Hub,
	bus redis.ChangeBus,
	rooms *session.Rooms,
) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		sessions: sessionRepo,
		blocks:   blockRepo,
		parts:    participantRepo,
		users:    userRepo,
		auth:     auth,
		catalog:  catalog,
		hub:      hub,
		bus:      bus,
		rooms:    rooms,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// sessionLock serializes facilitator commands per session. Commands for
// different sessions never contend.
func (s *sessionService) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

func (s *sessionService) buildBlocks(ownerType string, ownerID uuid.UUID, inputs []BlockInput) []*domain.Block {
	out := make([]*domain.Block, 0, len(inputs))
	for i, in := range inputs {
		weight := in.Weight
		if weight == 0 {
			weight = s.catalog.Policy(in.PluginType).Weight
		}
		out = append(out, &domain.Block{
			ID:         uuid.New(),
			OwnerType:  ownerType,
			OwnerID:    ownerID,
			Position:   i,
			PluginType: in.PluginType,
			Content:    in.Content,
			Weight:     weight,
			Status:     domain.BlockStatusPending,
		})
	}
	return out
}

func (s *sessionService) CreateSession(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID, title, visibility string, blocks []BlockInput) (*domain.Session, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: title required", apperrors.ErrInvalidArgument)
	}
	if visibility == "" {
		visibility = domain.SessionVisibilityPrivate
	}

	sess := &domain.Session{
		ID:            uuid.New(),
		FacilitatorID: facilitatorID,
		Title:         title,
		Status:        domain.SessionStatusDraft,
		PlayState:     domain.PlayStateIdle,
		Mode:          domain.SessionModeLive,
		Visibility:    visibility,
	}
	rows := s.buildBlocks(domain.BlockOwnerSession, sess.ID, blocks)

	err := s.transact(tx, func(t *gorm.DB) error {
		if _, err := s.sessions.Create(ctx, t, sess); err != nil {
			return err
		}
		_, err := s.blocks.Create(ctx, t, rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create session: %v", apperrors.ErrPersistenceFailure, err)
	}
	s.log.Info("session created", "sessionID", sess.ID, "facilitatorID", facilitatorID, "blocks", len(rows))
	return sess, nil
}

func (s *sessionService) transact(tx *gorm.DB, fn func(t *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	if s.db == nil {
		return fn(nil)
	}
	return s.db.Transaction(fn)
}

// ListSessions returns the caller's own sessions, newest first. Test runs
// never show up here, nothing about them is stored.
func (s *sessionService) ListSessions(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error) {
	return s.sessions.ListByFacilitator(ctx, tx, facilitatorID)
}

func (s *sessionService) GetSnapshot(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	if room, err := s.rooms.Get(sessionID); err == nil {
		return room.Snapshot(), nil
	}

	sess, err := s.sessions.GetByID(ctx, tx, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	blocks, err := s.blocks.ListByOwner(ctx, tx, domain.BlockOwnerSession, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	return session.Snapshot(sess, blocks), nil
}

// Command validates authorization, serializes against other commands for the
// same session, applies the state machine and, in live mode, commits before
// any notification goes out. A transition that fails to persist is never
// announced.
func (s *sessionService) Command(ctx context.Context, userID, sessionID uuid.UUID, cmd session.Command) (domain.SessionSnapshot, error) {
	if room, err := s.rooms.Get(sessionID); err == nil {
		return s.testCommand(room, userID, cmd)
	}

	ok, err := s.auth.CanFacilitate(ctx, userID, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	if !ok {
		s.log.Warn("command rejected, not a facilitator", "userID", userID, "sessionID", sessionID, "command", cmd.Kind)
		return domain.SessionSnapshot{}, fmt.Errorf("%w: user %s may not drive session %s", apperrors.ErrNotAuthorized, userID, sessionID)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}
	blocks, err := s.blocks.ListByOwner(ctx, nil, domain.BlockOwnerSession, sessionID)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	tr, err := session.Apply(sess, blocks, cmd)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	err = s.transact(nil, func(t *gorm.DB) error {
		if err := s.sessions.UpdateState(ctx, t, &tr.Session); err != nil {
			return err
		}
		return s.blocks.UpdateStatuses(ctx, t, tr.BlockStatus)
	})
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: commit %s: %v", apperrors.ErrPersistenceFailure, cmd.Kind, err)
	}

	for _, b := range blocks {
		if status, ok := tr.BlockStatus[b.ID]; ok {
			b.Status = status
		}
	}
	snap := session.Snapshot(&tr.Session, blocks)

	event := sse.EventSessionSnapshot
	if tr.Session.Status == domain.SessionStatusEnded {
		event = sse.EventSessionClosed
		// Terminal state: no further command will be accepted, so the
		// serialization entry can go. A racer already holding the old mutex
		// still fails the ended guard on reload.
		s.mu.Lock()
		delete(s.locks, sessionID)
		s.mu.Unlock()
	}
	s.notify(ctx, sse.Envelope{Channel: sessionID.String(), Event: event, Data: snap})
	s.log.Info("command applied", "sessionID", sessionID, "command", cmd.Kind, "status", tr.Session.Status, "playState", tr.Session.PlayState)
	return snap, nil
}

func (s *sessionService) testCommand(room *session.Room, userID uuid.UUID, cmd session.Command) (domain.SessionSnapshot, error) {
	if room.FacilitatorID() != userID {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: user %s may not drive test run %s", apperrors.ErrNotAuthorized, userID, room.SessionID())
	}
	snap, err := room.Apply(cmd)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	channel := room.SessionID().String()
	if snap.Status == domain.SessionStatusEnded {
		// Ephemeral run is over: push the terminal snapshot, then drop the
		// room and every subscription with it.
		s.hub.Broadcast(sse.Envelope{Channel: channel, Event: sse.EventSessionClosed, Data: snap})
		s.rooms.Close(room.SessionID())
		s.hub.CloseChannel(channel)
		return snap, nil
	}
	s.hub.Broadcast(sse.Envelope{Channel: channel, Event: sse.EventSessionSnapshot, Data: snap})
	return snap, nil
}

// notify publishes a committed change. With a bus configured the envelope
// travels through it and comes back to every instance's hub via the
// forwarder; without one the local hub is the only audience.
func (s *sessionService) notify(ctx context.Context, env sse.Envelope) {
	if s.bus != nil {
		if err := s.bus.Publish(ctx, env); err != nil {
			s.log.Error("change publish failed, falling back to local fanout", "channel", env.Channel, "error", err)
			s.hub.Broadcast(env)
			if env.Event == sse.EventSessionClosed {
				s.hub.CloseChannel(env.Channel)
			}
		}
		return
	}
	s.hub.Broadcast(env)
	if env.Event == sse.EventSessionClosed {
		s.hub.CloseChannel(env.Channel)
	}
}

func (s *sessionService) Join(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID, displayName string) (*domain.Participant, error) {
	if _, err := s.rooms.Get(sessionID); err == nil {
		// Test runs have no participant rows; joining is just subscribing.
		return nil, nil
	}

	sess, err := s.sessions.GetByID(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.SessionStatusEnded {
		return nil, fmt.Errorf("%w: session %s has ended", apperrors.ErrGuardViolation, sessionID)
	}
	if displayName == "" {
		if u, err := s.users.GetByID(ctx, tx, userID); err == nil {
			displayName = u.DisplayName
		}
	}

	p := &domain.Participant{
		ID:          uuid.New(),
		SessionID:   sessionID,
		UserID:      userID,
		DisplayName: displayName,
	}
	if _, err := s.parts.Join(ctx, tx, p); err != nil {
		return nil, fmt.Errorf("%w: join session: %v", apperrors.ErrPersistenceFailure, err)
	}
	return p, nil
}

// StartTestRun opens an ephemeral rehearsal over freshly built blocks. No
// row of any kind is written.
func (s *sessionService) StartTestRun(ctx context.Context, facilitatorID uuid.UUID, title string, blocks []BlockInput) (domain.SessionSnapshot, error) {
	if len(blocks) == 0 {
		return domain.SessionSnapshot{}, fmt.Errorf("%w: a test run needs at least one block", apperrors.ErrInvalidArgument)
	}
	rows := s.buildBlocks(domain.BlockOwnerSession, uuid.Nil, blocks)
	room := s.rooms.Create(facilitatorID, title, rows)
	return room.Snapshot(), nil
}

// CloseTestRun tears a rehearsal down when the initiating facilitator
// disconnects without ending it.
func (s *sessionService) CloseTestRun(facilitatorID, sessionID uuid.UUID) {
	room, err := s.rooms.Get(sessionID)
	if err != nil {
		return
	}
	if room.FacilitatorID() != facilitatorID {
		return
	}
	s.rooms.Close(sessionID)
	s.hub.CloseChannel(sessionID.String())
}
