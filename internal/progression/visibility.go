package progression

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
)

// orderBlocks returns the blocks sorted by position after checking that
// positions are zero-based, dense and unique. Duplicate or gapped positions
// are a configuration error, not something to paper over.
func orderBlocks(blocks []*domain.Block) ([]*domain.Block, error) {
	ordered := make([]*domain.Block, len(blocks))
	copy(ordered, blocks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	for i, b := range ordered {
		if b.Position != i {
			return nil, fmt.Errorf("%w: block %s at position %d, expected %d", apperrors.ErrInvalidArgument, b.ID, b.Position, i)
		}
	}
	return ordered, nil
}

// VisibleBlocks computes which blocks the subject may currently see. The
// block at position 0 is always visible; each later block unlocks once the
// block before it has a completed interaction record. Unlocks are strictly
// sequential and monotonic: a visible block never re-locks.
//
// Pure and deterministic; records may be passed in any order.
func VisibleBlocks(blocks []*domain.Block, records []*domain.InteractionRecord) (map[uuid.UUID]bool, error) {
	ordered, err := orderBlocks(blocks)
	if err != nil {
		return nil, err
	}

	completed := make(map[uuid.UUID]bool, len(records))
	for _, r := range records {
		if r.IsCompleted {
			completed[r.BlockID] = true
		}
	}

	visible := make(map[uuid.UUID]bool, len(ordered))
	for i, b := range ordered {
		if i == 0 || completed[ordered[i-1].ID] {
			visible[b.ID] = true
		}
	}
	return visible, nil
}
