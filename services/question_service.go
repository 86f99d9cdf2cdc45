package services

import (
	"errors"
	"log"
	"time"

	"trivialive/models"

	"gorm.io/gorm"
)

const (
	defaultBaseScore  = 10.0
	defaultMultiplier = 1.0
)

type QuestionService struct {
	db   *gorm.DB
	live *LiveState
}

func NewQuestionService(db *gorm.DB, live *LiveState) *QuestionService {
	return &QuestionService{
		db:   db,
		live: live,
	}
}

type CreateQuestionRequest struct {
	Text       string   `json:"text" binding:"required"`
	Options    []string `json:"options" binding:"required"`
	BaseScore  *float64 `json:"base_score"`
	Multiplier *float64 `json:"multiplier"`
}

type UpdateQuestionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=live closed"`
}

type SetCorrectAnswerRequest struct {
	CorrectOption *int `json:"correct_option" binding:"required"`
}

// QuestionView is the question shape returned to clients. For non-owners the
// correct option stays unset until the answer is revealed.
type QuestionView struct {
	ID               uint              `json:"id"`
	GameID           uint              `json:"game_id"`
	Text             string            `json:"text"`
	Options          models.OptionList `json:"options"`
	Status           string            `json:"status"`
	CorrectOption    *int              `json:"correct_option,omitempty"`
	IsAnswerRevealed bool              `json:"is_answer_revealed"`
	BaseScore        float64           `json:"base_score"`
	Multiplier       float64           `json:"multiplier"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewQuestionView builds the client view of a question. includeHidden is true
// only for the owning admin, who sees the correct option before reveal.
func NewQuestionView(q models.Question, includeHidden bool) QuestionView {
	view := QuestionView{
		ID:               q.ID,
		GameID:           q.GameID,
		Text:             q.Text,
		Options:          q.Options,
		Status:           q.Status,
		IsAnswerRevealed: q.IsAnswerRevealed,
		BaseScore:        q.BaseScore,
		Multiplier:       q.Multiplier,
		CreatedAt:        q.CreatedAt,
	}
	if includeHidden || q.IsAnswerRevealed {
		view.CorrectOption = q.CorrectOption
	}
	return view
}

func (s *QuestionService) CreateQuestion(gameID, userID uint, req *CreateQuestionRequest) (*models.Question, error) {
	var game models.Game
	if err := s.db.First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.CreatedBy != userID {
		return nil, ErrNotYourGame
	}
	if game.Status == models.GameStatusEnded {
		return nil, ErrGameEnded
	}

	if len(req.Options) != models.OptionCount {
		return nil, ErrOptionCount
	}

	baseScore := defaultBaseScore
	if req.BaseScore != nil {
		baseScore = *req.BaseScore
	}
	if baseScore <= 0 {
		return nil, ErrScoreNotPositive
	}

	multiplier := defaultMultiplier
	if req.Multiplier != nil {
		multiplier = *req.Multiplier
	}
	if multiplier < 1 {
		return nil, ErrBadMultiplier
	}

	question := models.Question{
		GameID:           gameID,
		Text:             req.Text,
		Options:          models.OptionList(req.Options),
		Status:           models.QuestionStatusDraft,
		IsAnswerRevealed: false,
		BaseScore:        baseScore,
		Multiplier:       multiplier,
	}

	if err := s.db.Create(&question).Error; err != nil {
		return nil, err
	}

	return &question, nil
}

// UpdateQuestionStatus moves a question draft -> live -> closed. The
// single-live-question invariant is enforced by the idx_questions_one_live
// partial unique index, so a concurrent writer cannot slip a second live
// question past a read-then-write check; the losing write comes back as a
// unique violation and is reported as ErrAnotherQuestionLive.
func (s *QuestionService) UpdateQuestionStatus(questionID, userID uint, status string, hub *Hub) (*models.Question, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var question models.Question
	if err := tx.First(&question, questionID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	var game models.Game
	if err := tx.First(&game, question.GameID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.CreatedBy != userID {
		tx.Rollback()
		return nil, ErrNotYourGame
	}
	if game.Status != models.GameStatusLive {
		tx.Rollback()
		return nil, ErrGameNotLive
	}

	switch status {
	case models.QuestionStatusLive:
		if question.Status != models.QuestionStatusDraft {
			tx.Rollback()
			return nil, ErrQuestionNotDraft
		}
	case models.QuestionStatusClosed:
		if question.Status != models.QuestionStatusLive {
			tx.Rollback()
			return nil, ErrQuestionCantClose
		}
	default:
		tx.Rollback()
		return nil, ErrInvalidStatus
	}

	if err := tx.Model(&question).Update("status", status).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAnotherQuestionLive
		}
		return nil, err
	}
	question.Status = status

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.publishState(question.GameID, hub, "question_status")

	return &question, nil
}

// SetCorrectAnswer reveals a closed question's answer and settles scores:
// every participant whose recorded answer matches the correct option is
// credited baseScore * multiplier, exactly once, inside one transaction.
func (s *QuestionService) SetCorrectAnswer(questionID, userID uint, correctOption int, hub *Hub) (*models.Question, error) {
	if correctOption < 0 || correctOption >= models.OptionCount {
		return nil, ErrOptionOutOfRange
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var question models.Question
	if err := tx.First(&question, questionID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	var game models.Game
	if err := tx.First(&game, question.GameID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.CreatedBy != userID {
		tx.Rollback()
		return nil, ErrNotYourGame
	}
	if question.Status != models.QuestionStatusClosed {
		tx.Rollback()
		return nil, ErrQuestionNotClosed
	}

	// Compare-and-swap on the revealed flag. A concurrent reveal committing
	// after our read leaves zero rows matching is_answer_revealed = false, so
	// the second caller bails here without re-running settlement.
	res := tx.Model(&question).
		Where("is_answer_revealed = ?", false).
		Updates(map[string]interface{}{
			"correct_option":     correctOption,
			"is_answer_revealed": true,
		})
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return nil, ErrAlreadyRevealed
	}
	question.CorrectOption = &correctOption
	question.IsAnswerRevealed = true

	// Settlement: scan every answer for this question and credit the
	// participants who picked the correct option.
	var answers []models.Answer
	if err := tx.Where("question_id = ?", questionID).Find(&answers).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	pointsEarned := question.BaseScore * question.Multiplier
	credited := 0
	for _, answer := range answers {
		if answer.SelectedOption != correctOption {
			continue
		}
		if err := tx.Model(&models.Participant{}).
			Where("id = ?", answer.ParticipantID).
			Update("score", gorm.Expr("score + ?", pointsEarned)).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		credited++
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	log.Printf("Revealed answer for question %d: %d of %d answers credited %v points",
		questionID, credited, len(answers), pointsEarned)

	s.publishState(question.GameID, hub, "answer_revealed")

	return &question, nil
}

func (s *QuestionService) publishState(gameID uint, hub *Hub, event string) {
	if s.live == nil {
		return
	}
	state, err := s.live.Refresh(gameID)
	if err != nil {
		log.Printf("Failed to refresh game state for game %d: %v", gameID, err)
		return
	}
	if hub != nil {
		hub.BroadcastToGame(gameID, event, state)
	}
}
