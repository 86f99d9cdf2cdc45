package models

import (
	"time"

	"gorm.io/gorm"
)

// Game statuses. Transitions are monotonic: draft -> live -> ended.
const (
	GameStatusDraft = "draft"
	GameStatusLive  = "live"
	GameStatusEnded = "ended"
)

type Game struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Status    string         `json:"status" gorm:"not null;default:'draft';index"` // draft, live, ended
	CreatedBy uint           `json:"created_by" gorm:"not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deletion_time" gorm:"index"`

	// Relationships
	Questions    []Question    `json:"questions,omitempty" gorm:"foreignKey:GameID"`
	Participants []Participant `json:"participants,omitempty" gorm:"foreignKey:GameID"`
}
