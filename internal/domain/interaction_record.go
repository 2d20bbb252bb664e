package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InteractionRecord is the durable record of one subject's progress on one
// block. A row exists only once the subject has begun interacting with the
// block; it is mutated on every subsequent response and deleted only by an
// explicit lesson reset.
type InteractionRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_subject_block,unique" json:"subject_id"`
	BlockID   uuid.UUID `gorm:"type:uuid;not null;index:idx_subject_block,unique" json:"block_id"`
	Block     *Block    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BlockID;references:ID" json:"block,omitempty"`

	// ScopeID mirrors the owning lesson or session id so per-scope reads and
	// resets do not need a join through blocks.
	ScopeID uuid.UUID `gorm:"type:uuid;column:scope_id;not null;index" json:"scope_id"`

	PluginType        string         `gorm:"column:plugin_type;not null" json:"plugin_type"`
	IsCompleted       bool           `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	StartedAt         *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	TimeSpentSeconds  int            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	Score             *float64       `gorm:"column:score" json:"score,omitempty"`
	Attempts          int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	State             datatypes.JSON `gorm:"column:state;type:jsonb" json:"state,omitempty"`
	LastResponse      datatypes.JSON `gorm:"column:last_response;type:jsonb" json:"last_response,omitempty"`
	CompletionQuality *float64       `gorm:"column:completion_quality" json:"completion_quality,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (InteractionRecord) TableName() string { return "interaction_records" }
