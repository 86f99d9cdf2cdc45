package models

import (
	"time"

	"gorm.io/gorm"
)

type Answer struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	QuestionID     uint           `json:"question_id" gorm:"not null;index;uniqueIndex:idx_answers_question_participant,priority:1"`
	ParticipantID  uint           `json:"participant_id" gorm:"not null;index;uniqueIndex:idx_answers_question_participant,priority:2"`
	SelectedOption int            `json:"selected_option" gorm:"not null"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"deletion_time" gorm:"index"`

	// Relationships
	Question    Question    `json:"-" gorm:"foreignKey:QuestionID"`
	Participant Participant `json:"-" gorm:"foreignKey:ParticipantID"`
}
