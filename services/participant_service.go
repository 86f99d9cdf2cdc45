package services

import (
	"errors"
	"log"
	"time"

	"trivialive/models"

	"gorm.io/gorm"
)

const (
	defaultLeaderboardPageSize = 20
	maxLeaderboardPageSize     = 100
)

type ParticipantService struct {
	db   *gorm.DB
	live *LiveState
}

func NewParticipantService(db *gorm.DB, live *LiveState) *ParticipantService {
	return &ParticipantService{
		db:   db,
		live: live,
	}
}

type LeaderboardEntry struct {
	ParticipantID uint    `json:"participant_id"`
	UserID        uint    `json:"user_id"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
}

type LeaderboardPage struct {
	Entries           []LeaderboardEntry `json:"entries"`
	Page              int                `json:"page"`
	PageSize          int                `json:"page_size"`
	TotalParticipants int64              `json:"total_participants"`
}

type PlayerStats struct {
	TotalAnswered     int     `json:"total_answered"`
	TotalCorrect      int     `json:"total_correct"`
	Score             float64 `json:"score"`
	Rank              int     `json:"rank"`
	TotalParticipants int     `json:"total_participants"`
}

// JoinGame adds the user to a live game. Joining twice is a no-op that
// returns the existing row: the score and the name snapshot are kept.
func (s *ParticipantService) JoinGame(gameID, userID uint, hub *Hub) (*models.Participant, error) {
	var game models.Game
	if err := s.db.First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	if game.Status != models.GameStatusLive {
		return nil, ErrGameNotLive
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	participant := models.Participant{
		GameID:   gameID,
		UserID:   userID,
		Name:     user.Name, // snapshot, not kept in sync with profile edits
		Score:    0,
		JoinedAt: time.Now(),
	}
	// The unique index on (game_id, user_id) arbitrates rejoins and concurrent
	// first joins alike: the insert loser falls through to the existing row,
	// keeping its score and name snapshot.
	err := s.db.Create(&participant).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing models.Participant
		if err := s.db.Where("game_id = ? AND user_id = ?", gameID, userID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}

	if s.live != nil {
		if _, err := s.live.Refresh(gameID); err != nil {
			log.Printf("Failed to refresh game state after join: %v", err)
		}
	}
	if hub != nil {
		hub.BroadcastPlayerUpdate(gameID, participant, "joined")
	}

	return &participant, nil
}

// GetLeaderboard returns one page of participants ordered by score
// descending. Rank is 1-based over the full ordering; ties break by
// insertion order (ascending id), so ranks are deterministic.
func (s *ParticipantService) GetLeaderboard(gameID uint, page, pageSize int) (*LeaderboardPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultLeaderboardPageSize
	}
	if pageSize > maxLeaderboardPageSize {
		pageSize = maxLeaderboardPageSize
	}

	var total int64
	if err := s.db.Model(&models.Participant{}).Where("game_id = ?", gameID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (page - 1) * pageSize

	var participants []models.Participant
	if err := s.db.Where("game_id = ?", gameID).
		Order("score DESC, id ASC").
		Limit(pageSize).
		Offset(offset).
		Find(&participants).Error; err != nil {
		return nil, err
	}

	entries := []LeaderboardEntry{}
	for i, p := range participants {
		entries = append(entries, LeaderboardEntry{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Name:          p.Name,
			Score:         p.Score,
			Rank:          offset + i + 1,
		})
	}

	return &LeaderboardPage{
		Entries:           entries,
		Page:              page,
		PageSize:          pageSize,
		TotalParticipants: total,
	}, nil
}

func (s *ParticipantService) GetParticipantCount(gameID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Participant{}).Where("game_id = ?", gameID).
		Count(&count).Error
	return count, err
}

// GetMyStats returns the caller's standing in a game, or nil when the caller
// never joined it.
func (s *ParticipantService) GetMyStats(gameID, userID uint) (*PlayerStats, error) {
	var participant models.Participant
	err := s.db.Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var answers []models.Answer
	if err := s.db.Where("participant_id = ?", participant.ID).
		Preload("Question").
		Find(&answers).Error; err != nil {
		return nil, err
	}

	totalCorrect := 0
	for _, answer := range answers {
		q := answer.Question
		if q.IsAnswerRevealed && q.CorrectOption != nil && answer.SelectedOption == *q.CorrectOption {
			totalCorrect++
		}
	}

	// Rank over the same ordering the leaderboard uses, so the two agree.
	var allParticipants []models.Participant
	if err := s.db.Where("game_id = ?", gameID).
		Order("score DESC, id ASC").
		Find(&allParticipants).Error; err != nil {
		return nil, err
	}

	rank := 0
	for i, p := range allParticipants {
		if p.ID == participant.ID {
			rank = i + 1
			break
		}
	}

	return &PlayerStats{
		TotalAnswered:     len(answers),
		TotalCorrect:      totalCorrect,
		Score:             participant.Score,
		Rank:              rank,
		TotalParticipants: len(allParticipants),
	}, nil
}
