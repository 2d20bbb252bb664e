package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
)

const (
	CommandSchedule = "schedule"
	CommandStart    = "start"
	CommandPlay     = "play"
	CommandPause    = "pause"
	CommandResume   = "resume"
	CommandEnd      = "end"
)

// Command is one facilitator-issued instruction. BlockID is meaningful for
// play only; SkipPrevious marks the block being left as skipped instead of
// closed.
type Command struct {
	Kind         string    `json:"command"`
	BlockID      uuid.UUID `json:"block_id,omitempty"`
	SkipPrevious bool      `json:"skip_previous,omitempty"`
}

// Transition is the result of applying a command: the session's next field
// values plus the block status changes the command implies. Nothing is
// persisted here; the caller commits the transition and only then notifies
// subscribers.
type Transition struct {
	Session     domain.Session
	BlockStatus map[uuid.UUID]string
}

func guardErr(cmd Command, sess *domain.Session, reason string) error {
	return fmt.Errorf("%w: %s rejected (%s) while status=%s play_state=%s", apperrors.ErrGuardViolation, cmd.Kind, reason, sess.Status, sess.PlayState)
}

// Apply validates cmd against the session's current state and computes the
// resulting transition. The input session is never mutated; a rejected
// command yields ErrGuardViolation and no state change.
func Apply(sess *domain.Session, blocks []*domain.Block, cmd Command) (*Transition, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: nil session", apperrors.ErrInvalidArgument)
	}
	if sess.Status == domain.SessionStatusEnded {
		return nil, guardErr(cmd, sess, "session has ended")
	}

	next := *sess
	tr := &Transition{BlockStatus: map[uuid.UUID]string{}}

	switch cmd.Kind {
	case CommandSchedule:
		if sess.Status != domain.SessionStatusDraft {
			return nil, guardErr(cmd, sess, "only draft sessions can be scheduled")
		}
		next.Status = domain.SessionStatusWaiting

	case CommandStart:
		if sess.Status != domain.SessionStatusWaiting {
			return nil, guardErr(cmd, sess, "only waiting sessions can start")
		}
		next.Status = domain.SessionStatusActive
		next.PlayState = domain.PlayStateIdle
		next.CurrentBlockID = nil

	case CommandPlay:
		if sess.Status != domain.SessionStatusActive {
			return nil, guardErr(cmd, sess, "session is not active")
		}
		var target *domain.Block
		for _, b := range blocks {
			if b.ID == cmd.BlockID {
				target = b
				break
			}
		}
		if target == nil {
			return nil, guardErr(cmd, sess, "block does not belong to this session")
		}
		if prev := sess.CurrentBlockID; prev != nil && *prev != target.ID {
			if cmd.SkipPrevious {
				tr.BlockStatus[*prev] = domain.BlockStatusSkipped
			} else {
				tr.BlockStatus[*prev] = domain.BlockStatusClosed
			}
		}
		tr.BlockStatus[target.ID] = domain.BlockStatusActive
		id := target.ID
		next.CurrentBlockID = &id
		next.PlayState = domain.PlayStatePlaying

	case CommandPause:
		if sess.Status != domain.SessionStatusActive || sess.PlayState != domain.PlayStatePlaying {
			return nil, guardErr(cmd, sess, "nothing is playing")
		}
		next.PlayState = domain.PlayStatePaused

	case CommandResume:
		if sess.Status != domain.SessionStatusActive || sess.PlayState != domain.PlayStatePaused {
			return nil, guardErr(cmd, sess, "session is not paused")
		}
		next.PlayState = domain.PlayStatePlaying

	case CommandEnd:
		if sess.Status != domain.SessionStatusWaiting && sess.Status != domain.SessionStatusActive {
			return nil, guardErr(cmd, sess, "only waiting or active sessions can end")
		}
		if cur := sess.CurrentBlockID; cur != nil {
			tr.BlockStatus[*cur] = domain.BlockStatusClosed
		}
		next.Status = domain.SessionStatusEnded
		next.PlayState = domain.PlayStateIdle
		next.CurrentBlockID = nil

	default:
		return nil, fmt.Errorf("%w: unknown command %q", apperrors.ErrInvalidArgument, cmd.Kind)
	}

	tr.Session = next
	return tr, nil
}

// Snapshot builds the full state tuple clients receive on every push.
func Snapshot(sess *domain.Session, blocks []*domain.Block) domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		SessionID:      sess.ID,
		Status:         sess.Status,
		PlayState:      sess.PlayState,
		CurrentBlockID: sess.CurrentBlockID,
		Mode:           sess.Mode,
		UpdatedAt:      sess.UpdatedAt,
	}
	for _, b := range blocks {
		snap.Blocks = append(snap.Blocks, domain.BlockState{BlockID: b.ID, Position: b.Position, Status: b.Status})
	}
	return snap
}
