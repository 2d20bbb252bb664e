package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BlockStatusPending = "pending"
	BlockStatusActive  = "active"
	BlockStatusClosed  = "closed"
	BlockStatusSkipped = "skipped"
)

// Block is one ordered unit of interactive content. It belongs either to a
// lesson (self-paced) or to a live session; OwnerID is whichever of the two
// scopes it. Positions are zero-based, dense and unique within an owner.
// Everything except Status is immutable once the owning session has started.
type Block struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerType string    `gorm:"column:owner_type;not null;index:idx_block_owner" json:"owner_type"` // "lesson" | "session"
	OwnerID   uuid.UUID `gorm:"type:uuid;column:owner_id;not null;index:idx_block_owner" json:"owner_id"`

	Position   int            `gorm:"column:position;not null" json:"position"`
	PluginType string         `gorm:"column:plugin_type;not null" json:"plugin_type"`
	Content    datatypes.JSON `gorm:"column:content;type:jsonb" json:"content,omitempty"`

	// Weight and Status are meaningful for session-owned blocks only.
	Weight float64 `gorm:"column:weight;not null;default:1" json:"weight"`
	Status string  `gorm:"column:status;not null;default:'pending'" json:"status"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Block) TableName() string { return "blocks" }

const (
	BlockOwnerLesson  = "lesson"
	BlockOwnerSession = "session"
)
