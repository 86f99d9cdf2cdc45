package handlers

import (
	"net/http"
	"strconv"

	"trivialive/services"

	"github.com/gin-gonic/gin"
)

type ParticipantHandler struct {
	participantService *services.ParticipantService
	hub                *services.Hub
}

func NewParticipantHandler(participantService *services.ParticipantService, hub *services.Hub) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		hub:                hub,
	}
}

func (h *ParticipantHandler) JoinGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	participant, err := h.participantService.JoinGame(gameID, userID, h.hub)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, participant)
}

func (h *ParticipantHandler) GetLeaderboard(c *gin.Context) {
	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	leaderboard, err := h.participantService.GetLeaderboard(gameID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, leaderboard)
}

func (h *ParticipantHandler) GetParticipantCount(c *gin.Context) {
	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	count, err := h.participantService.GetParticipantCount(gameID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetMyStats returns 200 with a null body when the caller never joined the
// game, mirroring GetGame's treatment of unresolved lookups.
func (h *ParticipantHandler) GetMyStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.participantService.GetMyStats(gameID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, stats)
}
