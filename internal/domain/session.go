package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusDraft   = "draft"
	SessionStatusWaiting = "waiting"
	SessionStatusActive  = "active"
	SessionStatusEnded   = "ended"

	PlayStateIdle    = "idle"
	PlayStatePlaying = "playing"
	PlayStatePaused  = "paused"

	SessionModeTest = "test"
	SessionModeLive = "live"

	SessionVisibilityPublic  = "public"
	SessionVisibilityPrivate = "private"
)

// Session is one live event. Participants never mutate it; every change goes
// through the session state machine driven by the facilitator.
type Session struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FacilitatorID uuid.UUID `gorm:"type:uuid;not null;index" json:"facilitator_id"`
	Facilitator   *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:FacilitatorID;references:ID" json:"facilitator,omitempty"`

	Title      string `gorm:"column:title;not null" json:"title"`
	Status     string `gorm:"column:status;not null;default:'draft';index" json:"status"`
	PlayState  string `gorm:"column:play_state;not null;default:'idle'" json:"play_state"`
	Mode       string `gorm:"column:mode;not null;default:'live'" json:"mode"`
	Visibility string `gorm:"column:visibility;not null;default:'private'" json:"visibility"`

	// CurrentBlockID, when set, references a block belonging to this session.
	CurrentBlockID *uuid.UUID `gorm:"type:uuid;column:current_block_id" json:"current_block_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "sessions" }

// BlockState is the per-block slice of a session snapshot.
type BlockState struct {
	BlockID  uuid.UUID `json:"block_id"`
	Position int       `json:"position"`
	Status   string    `json:"status"`
}

// SessionSnapshot is the full state tuple pushed to every subscriber on each
// transition. Clients replace their local state with it wholesale, which is
// what makes at-least-once, unordered delivery safe.
type SessionSnapshot struct {
	SessionID      uuid.UUID    `json:"session_id"`
	Status         string       `json:"status"`
	PlayState      string       `json:"play_state"`
	CurrentBlockID *uuid.UUID   `json:"current_block_id,omitempty"`
	Mode           string       `json:"mode"`
	Blocks         []BlockState `json:"blocks"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
