package handlers

import (
	"net/http"

	"trivialive/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
	hub         *services.Hub
}

func NewGameHandler(gameService *services.GameService, hub *services.Hub) *GameHandler {
	return &GameHandler{
		gameService: gameService,
		hub:         hub,
	}
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

func (h *GameHandler) UpdateGameStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateGameStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	game, err := h.gameService.UpdateGameStatus(gameID, userID, req.Status, h.hub)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, game)
}

func (h *GameHandler) DeleteGame(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.gameService.DeleteGame(gameID, userID, h.hub); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Game deleted"})
}

func (h *GameHandler) ListLiveGames(c *gin.Context) {
	games, err := h.gameService.ListLiveGames()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, games)
}

func (h *GameHandler) ListEndedGames(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	games, err := h.gameService.ListEndedGames(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, games)
}

func (h *GameHandler) GetMyGames(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	games, err := h.gameService.GetMyGames(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, games)
}

// GetGame returns 200 with a null body when the game does not resolve; a
// missing game is not an error for this endpoint.
func (h *GameHandler) GetGame(c *gin.Context) {
	gameID, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.gameService.GetGame(gameID, currentViewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if detail == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, detail)
}
