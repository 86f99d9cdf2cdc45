package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"trivialive/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// liveStateTTL bounds how long a stale snapshot can outlive its game.
const liveStateTTL = 2 * time.Hour

// leaderboardSnapshotSize is how many rows the cached snapshot carries;
// clients needing more page through the leaderboard endpoint.
const leaderboardSnapshotSize = 10

// GameState is the participant-facing snapshot pushed to websocket clients
// and cached in Redis. It never contains unrevealed correct options.
type GameState struct {
	GameID           uint               `json:"game_id"`
	Status           string             `json:"status"`
	CurrentQuestion  *QuestionView      `json:"current_question,omitempty"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	ParticipantCount int64              `json:"participant_count"`
}

// LiveState keeps the per-game snapshot in Redis, rebuilding it from the
// database whenever a mutation changes what spectators should see.
type LiveState struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewLiveState(db *gorm.DB, redisClient *redis.Client) *LiveState {
	return &LiveState{
		db:    db,
		redis: redisClient,
	}
}

// Refresh rebuilds the snapshot for a game from the database and stores it.
func (l *LiveState) Refresh(gameID uint) (*GameState, error) {
	var game models.Game
	if err := l.db.First(&game, gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deleted or never existed: drop any stale snapshot.
			l.drop(gameID)
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	state := &GameState{
		GameID:      game.ID,
		Status:      game.Status,
		Leaderboard: []LeaderboardEntry{},
	}

	var liveQuestion models.Question
	err := l.db.Where("game_id = ? AND status = ?", gameID, models.QuestionStatusLive).
		First(&liveQuestion).Error
	switch {
	case err == nil:
		view := NewQuestionView(liveQuestion, false)
		state.CurrentQuestion = &view
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var participants []models.Participant
	if err := l.db.Where("game_id = ?", gameID).
		Order("score DESC, id ASC").
		Limit(leaderboardSnapshotSize).
		Find(&participants).Error; err != nil {
		return nil, err
	}
	for i, p := range participants {
		state.Leaderboard = append(state.Leaderboard, LeaderboardEntry{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Name:          p.Name,
			Score:         p.Score,
			Rank:          i + 1,
		})
	}

	if err := l.db.Model(&models.Participant{}).
		Where("game_id = ?", gameID).
		Count(&state.ParticipantCount).Error; err != nil {
		return nil, err
	}

	if err := l.store(state); err != nil {
		// The cache is a delivery surface, not the source of truth.
		log.Printf("Failed to store game state in Redis: %v", err)
	}

	return state, nil
}

// Current returns the cached snapshot, rebuilding it on a miss.
func (l *LiveState) Current(gameID uint) (*GameState, error) {
	if state := l.get(gameID); state != nil {
		return state, nil
	}
	return l.Refresh(gameID)
}

func (l *LiveState) store(state *GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal game state: %w", err)
	}

	if err := l.redis.Set(context.Background(), liveStateKey(state.GameID), data, liveStateTTL).Err(); err != nil {
		return fmt.Errorf("failed to store in Redis: %w", err)
	}

	return nil
}

func (l *LiveState) get(gameID uint) *GameState {
	data, err := l.redis.Get(context.Background(), liveStateKey(gameID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting game state for game %d: %v", gameID, err)
		}
		return nil
	}

	var state GameState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		log.Printf("Failed to unmarshal game state for game %d: %v", gameID, err)
		return nil
	}

	return &state
}

func (l *LiveState) drop(gameID uint) {
	if err := l.redis.Del(context.Background(), liveStateKey(gameID)).Err(); err != nil {
		log.Printf("Redis error dropping game state for game %d: %v", gameID, err)
	}
}

func liveStateKey(gameID uint) string {
	return fmt.Sprintf("game:%d", gameID)
}
