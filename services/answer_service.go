package services

import (
	"errors"

	"trivialive/models"

	"gorm.io/gorm"
)

type AnswerService struct {
	db *gorm.DB
}

func NewAnswerService(db *gorm.DB) *AnswerService {
	return &AnswerService{db: db}
}

type SubmitAnswerRequest struct {
	SelectedOption *int `json:"selected_option" binding:"required"`
}

// SubmitAnswer records the caller's choice for a live question. Resubmitting
// before the question closes overwrites the previous choice on the same row;
// the last write before close is what settlement sees. No score is touched
// here: scoring happens only at reveal time.
func (s *AnswerService) SubmitAnswer(questionID, userID uint, selectedOption int) (*models.Answer, error) {
	if selectedOption < 0 || selectedOption >= models.OptionCount {
		return nil, ErrOptionOutOfRange
	}

	var question models.Question
	if err := s.db.First(&question, questionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	if question.Status != models.QuestionStatusLive {
		return nil, ErrQuestionNotLive
	}

	var game models.Game
	if err := s.db.First(&game, question.GameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.Status != models.GameStatusLive {
		return nil, ErrGameNotLive
	}

	var participant models.Participant
	if err := s.db.Where("game_id = ? AND user_id = ?", question.GameID, userID).
		First(&participant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotJoined
		}
		return nil, err
	}

	// Insert first and let the unique index on (question_id, participant_id)
	// arbitrate: a resubmission, or the loser of two concurrent first
	// submissions, lands on the duplicate-key path and updates the one
	// existing row instead of surfacing an error.
	answer := models.Answer{
		QuestionID:     questionID,
		ParticipantID:  participant.ID,
		SelectedOption: selectedOption,
	}
	err := s.db.Create(&answer).Error
	if err == nil {
		return &answer, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	var existing models.Answer
	if err := s.db.Where("question_id = ? AND participant_id = ?", questionID, participant.ID).
		First(&existing).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&existing).Update("selected_option", selectedOption).Error; err != nil {
		return nil, err
	}
	existing.SelectedOption = selectedOption
	return &existing, nil
}
