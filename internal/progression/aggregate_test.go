package progression

import (
	"testing"

	"github.com/yungbote/courselive-backend/internal/domain"
)

func TestAggregateEmptyLesson(t *testing.T) {
	summary, err := Aggregate(nil, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.CompletionPercentage != 0 || summary.IsFullyCompleted {
		t.Fatalf("empty lesson: pct=%v fully=%v", summary.CompletionPercentage, summary.IsFullyCompleted)
	}
	if summary.RecommendedNextStep != StepStartLearning {
		t.Fatalf("empty lesson step: got %s", summary.RecommendedNextStep)
	}
}

func TestAggregateNoRecords(t *testing.T) {
	blocks := makeBlocks(t, 3)
	summary, err := Aggregate(blocks, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.RecommendedNextStep != StepStartLearning {
		t.Fatalf("want start_learning, got %s", summary.RecommendedNextStep)
	}
	if summary.NextAction == nil || summary.NextAction.BlockID != blocks[0].ID {
		t.Fatalf("want next action at block 0, got %+v", summary.NextAction)
	}
}

func TestAggregateScenarioThreeBlocks(t *testing.T) {
	blocks := makeBlocks(t, 3)

	records := []*domain.InteractionRecord{completedRecord(blocks[0])}
	summary, err := Aggregate(blocks, records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.CompletedBlocks != 1 || summary.NextAction == nil || summary.NextAction.BlockID != blocks[1].ID {
		t.Fatalf("after block 0: completed=%d next=%+v", summary.CompletedBlocks, summary.NextAction)
	}
	if summary.RecommendedNextStep != StepContinue {
		t.Fatalf("after block 0: want continue_learning, got %s", summary.RecommendedNextStep)
	}

	records = append(records, completedRecord(blocks[1]))
	summary, err = Aggregate(blocks, records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.NextAction == nil || summary.NextAction.BlockID != blocks[2].ID {
		t.Fatalf("after blocks 0,1: next=%+v", summary.NextAction)
	}

	records = append(records, completedRecord(blocks[2]))
	summary, err = Aggregate(blocks, records)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !summary.IsFullyCompleted || summary.NextAction != nil {
		t.Fatalf("after all blocks: fully=%v next=%+v", summary.IsFullyCompleted, summary.NextAction)
	}
	if summary.CompletionPercentage != 100 {
		t.Fatalf("after all blocks: pct=%v", summary.CompletionPercentage)
	}
	if summary.RecommendedNextStep != StepLessonComplete {
		t.Fatalf("after all blocks: step=%s", summary.RecommendedNextStep)
	}
}

func TestAggregateCompleteCurrent(t *testing.T) {
	blocks := makeBlocks(t, 2)
	started := completedRecord(blocks[0])
	started.IsCompleted = false
	started.CompletedAt = nil

	summary, err := Aggregate(blocks, []*domain.InteractionRecord{started})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.RecommendedNextStep != StepCompleteCurrent {
		t.Fatalf("begun-but-unfinished block: want complete_current, got %s", summary.RecommendedNextStep)
	}
	if summary.NextAction == nil || summary.NextAction.BlockID != blocks[0].ID {
		t.Fatalf("begun-but-unfinished block: next=%+v", summary.NextAction)
	}
}

func TestAggregatePercentageBounds(t *testing.T) {
	blocks := makeBlocks(t, 4)
	var records []*domain.InteractionRecord
	for i := 0; i <= len(blocks); i++ {
		summary, err := Aggregate(blocks, records)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if summary.CompletionPercentage < 0 || summary.CompletionPercentage > 100 {
			t.Fatalf("pct out of range: %v", summary.CompletionPercentage)
		}
		if (summary.CompletionPercentage == 100) != summary.IsFullyCompleted {
			t.Fatalf("pct=%v but fully=%v", summary.CompletionPercentage, summary.IsFullyCompleted)
		}
		if i < len(blocks) {
			records = append(records, completedRecord(blocks[i]))
		}
	}
}

func TestAggregateScoresAndTime(t *testing.T) {
	blocks := makeBlocks(t, 3)
	r0 := completedRecord(blocks[0])
	s0 := 0.5
	r0.Score = &s0
	r0.TimeSpentSeconds = 30
	r1 := completedRecord(blocks[1])
	s1 := 1.0
	r1.Score = &s1
	r1.TimeSpentSeconds = 45

	summary, err := Aggregate(blocks, []*domain.InteractionRecord{r0, r1})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.TotalTimeSpentSeconds != 75 {
		t.Fatalf("time spent: want 75, got %d", summary.TotalTimeSpentSeconds)
	}
	if summary.AverageScore == nil || *summary.AverageScore != 0.75 {
		t.Fatalf("average score: want 0.75, got %v", summary.AverageScore)
	}
}

func TestAggregateNilAverageWhenUnscored(t *testing.T) {
	blocks := makeBlocks(t, 2)
	summary, err := Aggregate(blocks, []*domain.InteractionRecord{completedRecord(blocks[0])})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.AverageScore != nil {
		t.Fatalf("no scored records: want nil average, got %v", *summary.AverageScore)
	}
}
