package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Participant binds a subject to a live session. Test-mode sessions never
// create rows here; their subjects are ephemeral.
type Participant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_session_user,unique" json:"session_id"`
	Session   *Session  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"session,omitempty"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_session_user,unique" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`

	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null;default:now()" json:"joined_at"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Participant) TableName() string { return "participants" }
