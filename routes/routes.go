package routes

import (
	"log"
	"net/http"
	"strconv"

	"trivialive/handlers"
	"trivialive/middleware"
	"trivialive/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	questionHandler *handlers.QuestionHandler,
	participantHandler *handlers.ParticipantHandler,
	hub *services.Hub,
	gameService *services.GameService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Public game routes
		api.GET("/games/live", gameHandler.ListLiveGames)
		api.GET("/games/:id", middleware.OptionalAuth(jwtSecret), gameHandler.GetGame)
		api.GET("/games/:id/leaderboard", participantHandler.GetLeaderboard)
		api.GET("/games/:id/participants/count", participantHandler.GetParticipantCount)

		// Authenticated routes
		authed := api.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtSecret))
		{
			authed.GET("/auth/profile", authHandler.GetProfile)
			authed.GET("/games/ended", gameHandler.ListEndedGames)
			authed.POST("/games/:id/join", participantHandler.JoinGame)
			authed.GET("/games/:id/stats", participantHandler.GetMyStats)
			authed.POST("/questions/:id/answers", questionHandler.SubmitAnswer)
		}

		// Admin routes
		admin := api.Group("/")
		admin.Use(middleware.AuthMiddleware(jwtSecret), middleware.AdminRequired())
		{
			admin.POST("/games", gameHandler.CreateGame)
			admin.GET("/games/mine", gameHandler.GetMyGames)
			admin.PATCH("/games/:id/status", gameHandler.UpdateGameStatus)
			admin.DELETE("/games/:id", gameHandler.DeleteGame)
			admin.POST("/games/:id/questions", questionHandler.CreateQuestion)
			admin.PATCH("/questions/:id/status", questionHandler.UpdateQuestionStatus)
			admin.POST("/questions/:id/answer", questionHandler.SetCorrectAnswer)
		}
	}

	// WebSocket endpoint for live game updates. Identity is optional: anyone
	// can spectate, a token identifies the connection for logging.
	router.GET("/ws/:gameID", func(c *gin.Context) {
		gameID, err := strconv.ParseUint(c.Param("gameID"), 10, 32)
		if err != nil || gameID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid game ID"})
			return
		}

		detail, err := gameService.GetGame(uint(gameID), nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game"})
			return
		}
		if detail == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
			return
		}

		var userID uint
		name := c.Query("name")
		if token := c.Query("token"); token != "" {
			if id, _, err := middleware.ParseToken(token, jwtSecret); err == nil {
				userID = id
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for game %d: %v", gameID, err)
			return
		}

		client := hub.RegisterClient(conn, uint(gameID), userID, name)
		hub.SendGameStateSync(client)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
