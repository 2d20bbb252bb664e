package progression

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
)

type RecommendedStep string

const (
	StepStartLearning   RecommendedStep = "start_learning"
	StepContinue        RecommendedStep = "continue_learning"
	StepCompleteCurrent RecommendedStep = "complete_current"
	StepLessonComplete  RecommendedStep = "lesson_complete"
)

// NextAction points at the lowest-position block that is visible and not yet
// completed.
type NextAction struct {
	BlockID    uuid.UUID `json:"block_id"`
	Position   int       `json:"position"`
	PluginType string    `json:"plugin_type"`
}

type ProgressSummary struct {
	TotalBlocks           int             `json:"total_blocks"`
	CompletedBlocks       int             `json:"completed_blocks"`
	CompletionPercentage  float64         `json:"completion_percentage"`
	TotalTimeSpentSeconds int             `json:"total_time_spent_seconds"`
	AverageScore          *float64        `json:"average_score,omitempty"`
	IsFullyCompleted      bool            `json:"is_fully_completed"`
	NextAction            *NextAction     `json:"next_action,omitempty"`
	RecommendedNextStep   RecommendedStep `json:"recommended_next_step"`
}

// Aggregate folds a subject's interaction records over the block list into a
// lesson-level summary. Deterministic over the same inputs as VisibleBlocks.
func Aggregate(blocks []*domain.Block, records []*domain.InteractionRecord) (*ProgressSummary, error) {
	ordered, err := orderBlocks(blocks)
	if err != nil {
		return nil, err
	}
	visible, err := VisibleBlocks(blocks, records)
	if err != nil {
		return nil, err
	}

	byBlock := make(map[uuid.UUID]*domain.InteractionRecord, len(records))
	for _, r := range records {
		byBlock[r.BlockID] = r
	}

	summary := &ProgressSummary{TotalBlocks: len(ordered)}

	var scoreSum float64
	var scoreCount int
	for _, b := range ordered {
		r, ok := byBlock[b.ID]
		if !ok {
			continue
		}
		summary.TotalTimeSpentSeconds += r.TimeSpentSeconds
		if r.IsCompleted {
			summary.CompletedBlocks++
			if r.Score != nil {
				scoreSum += *r.Score
				scoreCount++
			}
		}
	}
	if scoreCount > 0 {
		avg := scoreSum / float64(scoreCount)
		summary.AverageScore = &avg
	}
	if summary.TotalBlocks > 0 {
		summary.CompletionPercentage = float64(summary.CompletedBlocks) / float64(summary.TotalBlocks) * 100
	}
	summary.IsFullyCompleted = summary.TotalBlocks > 0 && summary.CompletedBlocks == summary.TotalBlocks

	if summary.IsFullyCompleted {
		summary.RecommendedNextStep = StepLessonComplete
		return summary, nil
	}

	for _, b := range ordered {
		if !visible[b.ID] {
			continue
		}
		r, ok := byBlock[b.ID]
		if ok && r.IsCompleted {
			continue
		}
		summary.NextAction = &NextAction{BlockID: b.ID, Position: b.Position, PluginType: b.PluginType}
		switch {
		case ok:
			summary.RecommendedNextStep = StepCompleteCurrent
		case len(records) > 0:
			summary.RecommendedNextStep = StepContinue
		default:
			summary.RecommendedNextStep = StepStartLearning
		}
		return summary, nil
	}

	if summary.TotalBlocks == 0 {
		summary.RecommendedNextStep = StepStartLearning
		return summary, nil
	}
	// Unreachable while VisibleBlocks holds its invariants: some block must be
	// visible and incomplete whenever the lesson is not fully completed.
	return nil, fmt.Errorf("progress aggregation inconsistency: %d/%d completed but no next action", summary.CompletedBlocks, summary.TotalBlocks)
}
