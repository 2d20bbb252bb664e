package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/clients/redis"
	"github.com/yungbote/courselive-backend/internal/data/repos"
	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/plugincat"
	"github.com/yungbote/courselive-backend/internal/progression"
	"github.com/yungbote/courselive-backend/internal/session"
	"github.com/yungbote/courselive-backend/internal/sse"
)

// Submission is one participant answer. StartedAt comes from the client,
// captured when the block was first rendered; SubmittedAt is stamped
// server-side on arrival.
type Submission struct {
	SubjectID uuid.UUID
	BlockID   uuid.UUID
	ScopeID   uuid.UUID
	Payload   []byte
	State     []byte
	Score     *float64
	// CompletionQuality is the plugin's own judgement of how thoroughly the
	// block was worked, independent of correctness.
	CompletionQuality *float64
	StartedAt         time.Time
	SubmittedAt       time.Time
}

// RecordResult is what the submission surface returns: whether the answer
// counted, whether it is durable, and the subject's refreshed summary.
type RecordResult struct {
	Accepted  bool                         `json:"accepted"`
	Persisted bool                         `json:"persisted"`
	Record    *domain.InteractionRecord    `json:"record,omitempty"`
	Summary   *progression.ProgressSummary `json:"summary,omitempty"`
}

// SubjectProgress pairs one participant with their aggregated summary.
type SubjectProgress struct {
	SubjectID uuid.UUID                    `json:"subject_id"`
	Summary   *progression.ProgressSummary `json:"summary"`
}

// SessionAnalytics is the facilitator-side roll-up over every participant of
// one session. Subjects come back ordered by id so repeated reads of the same
// state render identically.
type SessionAnalytics struct {
	SessionID uuid.UUID         `json:"session_id"`
	Subjects  []SubjectProgress `json:"subjects"`
}

type RecorderService interface {
	Record(ctx context.Context, tx *gorm.DB, sub Submission) (*RecordResult, error)
	Summary(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID, ownerType string) (*progression.ProgressSummary, error)
	Analytics(ctx context.Context, tx *gorm.DB, requesterID, sessionID uuid.UUID) (*SessionAnalytics, error)
	Reset(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) error
}

type recorderService struct {
	db      *gorm.DB
	log     *logger.Logger
	records repos.InteractionRecordRepo
	blocks  repos.BlockRepo
	auth    Authorizer
	catalog *plugincat.Catalog
	hub     *sse.Hub
	bus     redis.ChangeBus // nil in single-instance deployments
	rooms   *session.Rooms
}

func NewRecorderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recordRepo repos.InteractionRecordRepo,
	blockRepo repos.BlockRepo,
	auth Authorizer,
	catalog *plugincat.Catalog,
	hub *sse.Hub,
	bus redis.ChangeBus,
	rooms *session.Rooms,
) RecorderService {
	return &recorderService{
		db:      db,
		log:     baseLog.With("service", "RecorderService"),
		records: recordRepo,
		blocks:  blockRepo,
		auth:    auth,
		catalog: catalog,
		hub:     hub,
		bus:     bus,
		rooms:   rooms,
	}
}

// Record applies the idempotency rule: at most one counted submission per
// (subject, block). A repeat on a completed block is either a retry (attempts
// increment, latest result supersedes) or RetryNotAllowed, depending on the
// plugin's policy. Live mode persists before the analytics notification goes
// out; test mode acknowledges without writing anything.
func (r *recorderService) Record(ctx context.Context, tx *gorm.DB, sub Submission) (*RecordResult, error) {
	if room, err := r.rooms.Get(sub.ScopeID); err == nil {
		return r.recordEphemeral(room, sub)
	}

	block, err := r.blocks.GetByID(ctx, tx, sub.BlockID)
	if err != nil {
		return nil, err
	}
	if block.OwnerID != sub.ScopeID {
		return nil, fmt.Errorf("%w: block %s does not belong to scope %s", apperrors.ErrInvalidArgument, sub.BlockID, sub.ScopeID)
	}

	existing, err := r.records.GetBySubjectAndBlock(ctx, tx, sub.SubjectID, sub.BlockID)
	if err != nil {
		return nil, err
	}
	rec, err := r.enrich(block, existing, sub)
	if err != nil {
		return nil, err
	}

	if _, err := r.records.Upsert(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("%w: record response: %v", apperrors.ErrPersistenceFailure, err)
	}

	summary, err := r.Summary(ctx, tx, sub.SubjectID, sub.ScopeID, block.OwnerType)
	if err != nil {
		return nil, err
	}

	// Write committed; now feed the facilitator-side live analytics.
	env := sse.Envelope{
		Channel: sub.ScopeID.String(),
		Event:   sse.EventInteractionChanged,
		Data: map[string]any{
			"subject_id": sub.SubjectID,
			"block_id":   sub.BlockID,
			"summary":    summary,
		},
	}
	if r.bus != nil {
		if err := r.bus.Publish(ctx, env); err != nil {
			r.log.Error("analytics publish failed, falling back to local fanout", "scopeID", sub.ScopeID, "error", err)
			r.hub.Broadcast(env)
		}
	} else {
		r.hub.Broadcast(env)
	}

	return &RecordResult{Accepted: true, Persisted: true, Record: rec, Summary: summary}, nil
}

func (r *recorderService) recordEphemeral(room *session.Room, sub Submission) (*RecordResult, error) {
	block, ok := room.Block(sub.BlockID)
	if !ok {
		return nil, fmt.Errorf("%w: block %s not in test run %s", apperrors.ErrInvalidArgument, sub.BlockID, sub.ScopeID)
	}
	existing, _ := room.Record(sub.SubjectID, sub.BlockID)
	rec, err := r.enrich(block, existing, sub)
	if err != nil {
		return nil, err
	}
	room.UpsertRecord(rec)

	summary, aggErr := progression.Aggregate(room.Blocks(), room.RecordsFor(sub.SubjectID))
	if aggErr != nil {
		return nil, aggErr
	}
	// Persisted stays false on purpose: the caller must not mistake a
	// rehearsal acknowledgement for durability.
	return &RecordResult{Accepted: true, Persisted: false, Record: rec, Summary: summary}, nil
}

func (r *recorderService) enrich(block *domain.Block, existing *domain.InteractionRecord, sub Submission) (*domain.InteractionRecord, error) {
	policy := r.catalog.Policy(block.PluginType)

	attempts := 1
	if existing != nil {
		if existing.IsCompleted {
			if !policy.AllowsRetry {
				return nil, fmt.Errorf("%w: plugin %s accepts a single submission per block", apperrors.ErrRetryNotAllowed, block.PluginType)
			}
			attempts = existing.Attempts + 1
		} else {
			attempts = existing.Attempts + 1
		}
	}

	// started_at survives from the first interaction; time spent always spans
	// first render to latest submission.
	startedAt := sub.StartedAt
	if existing != nil && existing.StartedAt != nil {
		startedAt = *existing.StartedAt
	}
	if startedAt.IsZero() || startedAt.After(sub.SubmittedAt) {
		startedAt = sub.SubmittedAt
	}
	completedAt := sub.SubmittedAt
	timeSpent := int(completedAt.Sub(startedAt) / time.Second)

	var score *float64
	if policy.Scored && sub.Score != nil {
		score = clampUnit(*sub.Score)
	}
	var quality *float64
	if sub.CompletionQuality != nil {
		quality = clampUnit(*sub.CompletionQuality)
	}

	rec := &domain.InteractionRecord{
		ID:                uuid.New(),
		SubjectID:         sub.SubjectID,
		BlockID:           sub.BlockID,
		ScopeID:           sub.ScopeID,
		PluginType:        block.PluginType,
		IsCompleted:       true,
		StartedAt:         &startedAt,
		CompletedAt:       &completedAt,
		TimeSpentSeconds:  timeSpent,
		Score:             score,
		Attempts:          attempts,
		State:             datatypes.JSON(sub.State),
		LastResponse:      datatypes.JSON(sub.Payload),
		CompletionQuality: quality,
	}
	if existing != nil {
		rec.ID = existing.ID
	}
	return rec, nil
}

func clampUnit(v float64) *float64 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}

func (r *recorderService) Summary(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID, ownerType string) (*progression.ProgressSummary, error) {
	if room, err := r.rooms.Get(scopeID); err == nil {
		return progression.Aggregate(room.Blocks(), room.RecordsFor(subjectID))
	}

	blocks, err := r.blocks.ListByOwner(ctx, tx, ownerType, scopeID)
	if err != nil {
		return nil, err
	}
	records, err := r.records.ListBySubjectAndScope(ctx, tx, subjectID, scopeID)
	if err != nil {
		return nil, err
	}
	return progression.Aggregate(blocks, records)
}

// Analytics rolls every participant's records for one session into per-subject
// summaries. Facilitator-only; participants read their own Summary instead.
func (r *recorderService) Analytics(ctx context.Context, tx *gorm.DB, requesterID, sessionID uuid.UUID) (*SessionAnalytics, error) {
	if room, err := r.rooms.Get(sessionID); err == nil {
		if room.FacilitatorID() != requesterID {
			return nil, fmt.Errorf("%w: user %s may not read analytics for test run %s", apperrors.ErrNotAuthorized, requesterID, sessionID)
		}
		return buildAnalytics(sessionID, room.Blocks(), room.RecordsBySubject())
	}

	ok, err := r.auth.CanFacilitate(ctx, requesterID, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user %s may not read analytics for session %s", apperrors.ErrNotAuthorized, requesterID, sessionID)
	}

	blocks, err := r.blocks.ListByOwner(ctx, tx, domain.BlockOwnerSession, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := r.records.ListByScope(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	bySubject := make(map[uuid.UUID][]*domain.InteractionRecord)
	for _, rec := range records {
		bySubject[rec.SubjectID] = append(bySubject[rec.SubjectID], rec)
	}
	return buildAnalytics(sessionID, blocks, bySubject)
}

func buildAnalytics(sessionID uuid.UUID, blocks []*domain.Block, bySubject map[uuid.UUID][]*domain.InteractionRecord) (*SessionAnalytics, error) {
	out := &SessionAnalytics{SessionID: sessionID, Subjects: make([]SubjectProgress, 0, len(bySubject))}
	for subjectID, recs := range bySubject {
		summary, err := progression.Aggregate(blocks, recs)
		if err != nil {
			return nil, err
		}
		out.Subjects = append(out.Subjects, SubjectProgress{SubjectID: subjectID, Summary: summary})
	}
	sort.Slice(out.Subjects, func(i, j int) bool {
		return out.Subjects[i].SubjectID.String() < out.Subjects[j].SubjectID.String()
	})
	return out, nil
}

// Reset clears every interaction record a subject holds for a scope. The one
// sanctioned way records are deleted.
func (r *recorderService) Reset(ctx context.Context, tx *gorm.DB, subjectID, scopeID uuid.UUID) error {
	if err := r.records.DeleteBySubjectAndScope(ctx, tx, subjectID, scopeID); err != nil {
		return fmt.Errorf("%w: reset progress: %v", apperrors.ErrPersistenceFailure, err)
	}
	r.log.Info("progress reset", "subjectID", subjectID, "scopeID", scopeID)
	return nil
}
