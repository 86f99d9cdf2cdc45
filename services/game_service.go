package services

import (
	"errors"
	"log"
	"time"

	"trivialive/models"

	"gorm.io/gorm"
)

type GameService struct {
	db   *gorm.DB
	live *LiveState
}

func NewGameService(db *gorm.DB, live *LiveState) *GameService {
	return &GameService{
		db:   db,
		live: live,
	}
}

type CreateGameRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateGameStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=live ended"`
}

// Viewer is the caller's verified identity, injected by the auth middleware.
// A nil *Viewer means an anonymous caller.
type Viewer struct {
	UserID uint
	Role   string
}

// GameDetail is a game plus its questions, filtered for the viewer.
type GameDetail struct {
	models.Game
	Questions []QuestionView `json:"questions"`
}

func (s *GameService) CreateGame(userID uint, req *CreateGameRequest) (*models.Game, error) {
	game := models.Game{
		Name:      req.Name,
		Status:    models.GameStatusDraft,
		CreatedBy: userID,
	}

	if err := s.db.Create(&game).Error; err != nil {
		return nil, err
	}

	return &game, nil
}

func (s *GameService) UpdateGameStatus(gameID, userID uint, status string, hub *Hub) (*models.Game, error) {
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

	// Status only ever moves draft -> live -> ended.
	switch status {
	case models.GameStatusLive:
		if game.Status != models.GameStatusDraft {
			return nil, ErrGameNotDraft
		}
	case models.GameStatusEnded:
		if game.Status != models.GameStatusLive {
			return nil, ErrGameCannotEnd
		}
	default:
		return nil, ErrInvalidStatus
	}

	if err := s.db.Model(&game).Update("status", status).Error; err != nil {
		return nil, err
	}
	game.Status = status

	s.publishGameState(game.ID, hub, "game_status")

	return &game, nil
}

// DeleteGame soft-deletes a game and everything under it: questions, the
// answers of those questions, and participants all receive the same deletion
// timestamp inside one transaction.
func (s *GameService) DeleteGame(gameID, userID uint, hub *Hub) error {
	var game models.Game
	if err := s.db.Unscoped().First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGameNotFound
		}
		return err
	}
	if game.CreatedBy != userID {
		return ErrNotYourGame
	}
	if game.DeletedAt.Valid {
		return ErrGameAlreadyDeleted
	}

	deletionTime := time.Now()

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Collect question ids before stamping them, so the answer sweep still
	// sees them through the soft-delete scope.
	var questionIDs []uint
	if err := tx.Model(&models.Question{}).Where("game_id = ?", gameID).
		Pluck("id", &questionIDs).Error; err != nil {
		tx.Rollback()
		return err
	}

	if len(questionIDs) > 0 {
		if err := tx.Model(&models.Answer{}).Where("question_id IN ?", questionIDs).
			Update("deleted_at", deletionTime).Error; err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Model(&models.Question{}).Where("game_id = ?", gameID).
			Update("deleted_at", deletionTime).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Model(&models.Participant{}).Where("game_id = ?", gameID).
		Update("deleted_at", deletionTime).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Model(&models.Game{}).Where("id = ?", gameID).
		Update("deleted_at", deletionTime).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	if s.live != nil {
		// Drops the snapshot; the game no longer resolves.
		if _, err := s.live.Refresh(gameID); err != nil && !errors.Is(err, ErrGameNotFound) {
			log.Printf("Failed to refresh game state after delete: %v", err)
		}
	}
	if hub != nil {
		hub.BroadcastToGame(gameID, "game_deleted", map[string]interface{}{
			"game_id": gameID,
		})
	}

	return nil
}

func (s *GameService) ListLiveGames() ([]models.Game, error) {
	games := []models.Game{}
	err := s.db.Where("status = ?", models.GameStatusLive).Find(&games).Error
	return games, err
}

// ListEndedGames returns ended games the user participated in, newest first.
func (s *GameService) ListEndedGames(userID uint) ([]models.Game, error) {
	var gameIDs []uint
	if err := s.db.Model(&models.Participant{}).Where("user_id = ?", userID).
		Pluck("game_id", &gameIDs).Error; err != nil {
		return nil, err
	}

	games := []models.Game{}
	if len(gameIDs) == 0 {
		return games, nil
	}

	err := s.db.Where("status = ? AND id IN ?", models.GameStatusEnded, gameIDs).
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// GetMyGames returns every game the admin created, soft-deleted ones
// included, for the owner dashboard.
func (s *GameService) GetMyGames(userID uint) ([]models.Game, error) {
	games := []models.Game{}
	err := s.db.Unscoped().Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&games).Error
	return games, err
}

// GetGame returns the game with its questions filtered for the viewer, or
// (nil, nil) when the id does not resolve. The owning admin sees every
// question unfiltered; everyone else never sees draft questions and never
// sees a correct option before reveal.
func (s *GameService) GetGame(gameID uint, viewer *Viewer) (*GameDetail, error) {
	var game models.Game
	if err := s.db.First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var questions []models.Question
	if err := s.db.Where("game_id = ?", gameID).Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	isOwner := viewer != nil && viewer.Role == models.RoleAdmin && game.CreatedBy == viewer.UserID

	views := []QuestionView{}
	for _, q := range questions {
		if !isOwner && q.Status == models.QuestionStatusDraft {
			continue
		}
		views = append(views, NewQuestionView(q, isOwner))
	}

	return &GameDetail{
		Game:      game,
		Questions: views,
	}, nil
}

// publishGameState refreshes the Redis snapshot and broadcasts it.
func (s *GameService) publishGameState(gameID uint, hub *Hub, event string) {
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
