package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Question statuses. A closed question with IsAnswerRevealed=true is terminal.
const (
	QuestionStatusDraft  = "draft"
	QuestionStatusLive   = "live"
	QuestionStatusClosed = "closed"
)

// OptionCount is the required number of options per question.
const OptionCount = 4

// OptionList stores the answer options as a JSON column so the same model
// works on Postgres and the sqlite test database.
type OptionList []string

func (o OptionList) Value() (driver.Value, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (o *OptionList) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return errors.New("unsupported type for OptionList")
	}
}

// Question rows carry idx_questions_one_live, a partial unique index on
// game_id over live rows: the database itself rejects a second live question
// in a game, so the invariant holds under concurrent writers.
type Question struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	GameID           uint           `json:"game_id" gorm:"not null;index;index:idx_questions_game_status,priority:1;index:idx_questions_one_live,unique,where:status = 'live'"`
	Text             string         `json:"text" gorm:"not null"`
	Options          OptionList     `json:"options" gorm:"type:text;not null"`
	Status           string         `json:"status" gorm:"not null;default:'draft';index:idx_questions_game_status,priority:2"` // draft, live, closed
	CorrectOption    *int           `json:"correct_option,omitempty"`
	IsAnswerRevealed bool           `json:"is_answer_revealed" gorm:"not null;default:false"`
	BaseScore        float64        `json:"base_score" gorm:"not null;default:10"`
	Multiplier       float64        `json:"multiplier" gorm:"not null;default:1"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deletion_time" gorm:"index"`

	// Relationships
	Game    Game     `json:"-" gorm:"foreignKey:GameID"`
	Answers []Answer `json:"-" gorm:"foreignKey:QuestionID"`
}
