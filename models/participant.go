package models

import (
	"time"

	"gorm.io/gorm"
)

type Participant struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	GameID    uint           `json:"game_id" gorm:"not null;index;uniqueIndex:idx_participants_game_user,priority:1"`
	UserID    uint           `json:"user_id" gorm:"not null;index;uniqueIndex:idx_participants_game_user,priority:2"`
	Name      string         `json:"name" gorm:"not null"` // snapshot of the user's name at join time
	Score     float64        `json:"score" gorm:"not null;default:0"`
	JoinedAt  time.Time      `json:"joined_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deletion_time" gorm:"index"`

	// Relationships
	Game Game `json:"-" gorm:"foreignKey:GameID"`
}
