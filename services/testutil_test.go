package services

import (
	"testing"

	"trivialive/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// TranslateError matches the production connection: services depend on
	// unique violations arriving as gorm.ErrDuplicatedKey.
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Game{},
		&models.Question{},
		&models.Participant{},
		&models.Answer{},
	))

	return db
}

type testEnv struct {
	db           *gorm.DB
	games        *GameService
	questions    *QuestionService
	answers      *AnswerService
	participants *ParticipantService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	return &testEnv{
		db:           db,
		games:        NewGameService(db, nil),
		questions:    NewQuestionService(db, nil),
		answers:      NewAnswerService(db),
		participants: NewParticipantService(db, nil),
	}
}

func (e *testEnv) createUser(t *testing.T, name, role string) *models.User {
	t.Helper()

	user := &models.User{
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
		Name:     name,
		Role:     role,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createGame(t *testing.T, admin *models.User, name string) *models.Game {
	t.Helper()

	game, err := e.games.CreateGame(admin.ID, &CreateGameRequest{Name: name})
	require.NoError(t, err)
	return game
}

func (e *testEnv) createLiveGame(t *testing.T, admin *models.User, name string) *models.Game {
	t.Helper()

	game := e.createGame(t, admin, name)
	game, err := e.games.UpdateGameStatus(game.ID, admin.ID, models.GameStatusLive, nil)
	require.NoError(t, err)
	return game
}

func fourOptions() []string {
	return []string{"Red", "Green", "Blue", "Yellow"}
}

func floatPtr(v float64) *float64 { return &v }
