package main

import (
	"log"

	"trivialive/config"
	"trivialive/handlers"
	"trivialive/middleware"
	"trivialive/models"
	"trivialive/routes"
	"trivialive/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.Question{},
		&models.Participant{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	liveState := services.NewLiveState(db, redisClient)
	authService := services.NewAuthService(db, cfg.JWTSecret)
	gameService := services.NewGameService(db, liveState)
	questionService := services.NewQuestionService(db, liveState)
	answerService := services.NewAnswerService(db)
	participantService := services.NewParticipantService(db, liveState)

	// Initialize WebSocket hub
	hub := services.NewHub(liveState)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	gameHandler := handlers.NewGameHandler(gameService, hub)
	questionHandler := handlers.NewQuestionHandler(questionService, answerService, hub)
	participantHandler := handlers.NewParticipantHandler(participantService, hub)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, gameHandler, questionHandler, participantHandler, hub, gameService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
