package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
)

func draftSession() *domain.Session {
	return &domain.Session{
		ID:        uuid.New(),
		Status:    domain.SessionStatusDraft,
		PlayState: domain.PlayStateIdle,
		Mode:      domain.SessionModeLive,
	}
}

func sessionBlocks(sessID uuid.UUID, n int) []*domain.Block {
	out := make([]*domain.Block, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &domain.Block{
			ID:        uuid.New(),
			OwnerType: domain.BlockOwnerSession,
			OwnerID:   sessID,
			Position:  i,
			Status:    domain.BlockStatusPending,
		})
	}
	return out
}

func TestDraftAcceptsOnlySchedule(t *testing.T) {
	sess := draftSession()
	blocks := sessionBlocks(sess.ID, 1)

	for _, kind := range []string{CommandStart, CommandPlay, CommandPause, CommandResume, CommandEnd} {
		cmd := Command{Kind: kind, BlockID: blocks[0].ID}
		if _, err := Apply(sess, blocks, cmd); !errors.Is(err, apperrors.ErrGuardViolation) {
			t.Fatalf("%s from draft: want ErrGuardViolation, got %v", kind, err)
		}
		if sess.Status != domain.SessionStatusDraft {
			t.Fatalf("%s from draft mutated status to %s", kind, sess.Status)
		}
	}

	tr, err := Apply(sess, blocks, Command{Kind: CommandSchedule})
	if err != nil {
		t.Fatalf("schedule from draft: %v", err)
	}
	if tr.Session.Status != domain.SessionStatusWaiting {
		t.Fatalf("schedule: want waiting, got %s", tr.Session.Status)
	}
}

func TestLinearLifecycle(t *testing.T) {
	sess := draftSession()
	blocks := sessionBlocks(sess.ID, 2)

	steps := []struct {
		cmd        Command
		wantStatus string
		wantPlay   string
	}{
		{Command{Kind: CommandSchedule}, domain.SessionStatusWaiting, domain.PlayStateIdle},
		{Command{Kind: CommandStart}, domain.SessionStatusActive, domain.PlayStateIdle},
		{Command{Kind: CommandPlay, BlockID: blocks[0].ID}, domain.SessionStatusActive, domain.PlayStatePlaying},
		{Command{Kind: CommandPause}, domain.SessionStatusActive, domain.PlayStatePaused},
		{Command{Kind: CommandResume}, domain.SessionStatusActive, domain.PlayStatePlaying},
		{Command{Kind: CommandEnd}, domain.SessionStatusEnded, domain.PlayStateIdle},
	}
	for _, step := range steps {
		tr, err := Apply(sess, blocks, step.cmd)
		if err != nil {
			t.Fatalf("%s: %v", step.cmd.Kind, err)
		}
		next := tr.Session
		if next.Status != step.wantStatus || next.PlayState != step.wantPlay {
			t.Fatalf("%s: got (%s,%s), want (%s,%s)", step.cmd.Kind, next.Status, next.PlayState, step.wantStatus, step.wantPlay)
		}
		sess = &next
	}
	if sess.CurrentBlockID != nil {
		t.Fatalf("ended session should clear current block, got %v", sess.CurrentBlockID)
	}
}

func TestPlayClosesPreviousBlock(t *testing.T) {
	sess := draftSession()
	sess.Status = domain.SessionStatusActive
	blocks := sessionBlocks(sess.ID, 2)

	tr, err := Apply(sess, blocks, Command{Kind: CommandPlay, BlockID: blocks[0].ID})
	if err != nil {
		t.Fatalf("play blockA: %v", err)
	}
	if tr.BlockStatus[blocks[0].ID] != domain.BlockStatusActive {
		t.Fatalf("play blockA: target status=%s", tr.BlockStatus[blocks[0].ID])
	}
	next := tr.Session

	tr, err = Apply(&next, blocks, Command{Kind: CommandPlay, BlockID: blocks[1].ID})
	if err != nil {
		t.Fatalf("play blockB: %v", err)
	}
	if tr.BlockStatus[blocks[0].ID] != domain.BlockStatusClosed {
		t.Fatalf("play blockB: previous block status=%s, want closed", tr.BlockStatus[blocks[0].ID])
	}
	if tr.BlockStatus[blocks[1].ID] != domain.BlockStatusActive {
		t.Fatalf("play blockB: target status=%s, want active", tr.BlockStatus[blocks[1].ID])
	}
	if tr.Session.CurrentBlockID == nil || *tr.Session.CurrentBlockID != blocks[1].ID {
		t.Fatalf("play blockB: current=%v", tr.Session.CurrentBlockID)
	}
}

func TestPlaySkipsPreviousBlockWhenAsked(t *testing.T) {
	sess := draftSession()
	sess.Status = domain.SessionStatusActive
	blocks := sessionBlocks(sess.ID, 2)
	cur := blocks[0].ID
	sess.CurrentBlockID = &cur
	sess.PlayState = domain.PlayStatePlaying

	tr, err := Apply(sess, blocks, Command{Kind: CommandPlay, BlockID: blocks[1].ID, SkipPrevious: true})
	if err != nil {
		t.Fatalf("play with skip: %v", err)
	}
	if tr.BlockStatus[blocks[0].ID] != domain.BlockStatusSkipped {
		t.Fatalf("skip previous: status=%s, want skipped", tr.BlockStatus[blocks[0].ID])
	}
}

func TestPlayRejectsForeignBlock(t *testing.T) {
	sess := draftSession()
	sess.Status = domain.SessionStatusActive
	blocks := sessionBlocks(sess.ID, 1)

	cmd := Command{Kind: CommandPlay, BlockID: uuid.New()}
	if _, err := Apply(sess, blocks, cmd); !errors.Is(err, apperrors.ErrGuardViolation) {
		t.Fatalf("foreign block: want ErrGuardViolation, got %v", err)
	}
}

func TestEndedIsTerminal(t *testing.T) {
	sess := draftSession()
	sess.Status = domain.SessionStatusEnded

	for _, kind := range []string{CommandSchedule, CommandStart, CommandPlay, CommandPause, CommandResume, CommandEnd} {
		if _, err := Apply(sess, nil, Command{Kind: kind}); !errors.Is(err, apperrors.ErrGuardViolation) {
			t.Fatalf("%s on ended session: want ErrGuardViolation, got %v", kind, err)
		}
	}
}

func TestEndClosesActiveBlock(t *testing.T) {
	sess := draftSession()
	sess.Status = domain.SessionStatusActive
	blocks := sessionBlocks(sess.ID, 1)
	cur := blocks[0].ID
	sess.CurrentBlockID = &cur
	sess.PlayState = domain.PlayStatePlaying

	tr, err := Apply(sess, blocks, Command{Kind: CommandEnd})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if tr.BlockStatus[blocks[0].ID] != domain.BlockStatusClosed {
		t.Fatalf("end: active block status=%s, want closed", tr.BlockStatus[blocks[0].ID])
	}
	if tr.Session.PlayState != domain.PlayStateIdle || tr.Session.CurrentBlockID != nil {
		t.Fatalf("end: play=%s current=%v", tr.Session.PlayState, tr.Session.CurrentBlockID)
	}
}

func TestUnknownCommand(t *testing.T) {
	sess := draftSession()
	if _, err := Apply(sess, nil, Command{Kind: "rewind"}); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("unknown command: want ErrInvalidArgument, got %v", err)
	}
}
