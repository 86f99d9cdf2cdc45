package services

import (
	"testing"

	"trivialive/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateQuestion_Defaults(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:    "What color is the sky?",
		Options: fourOptions(),
	})
	require.NoError(t, err)

	assert.Equal(t, models.QuestionStatusDraft, q.Status)
	assert.False(t, q.IsAnswerRevealed)
	assert.Nil(t, q.CorrectOption)
	assert.Equal(t, 10.0, q.BaseScore)
	assert.Equal(t, 1.0, q.Multiplier)
}

func TestCreateQuestion_Validation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	other := env.createUser(t, "mallory", models.RoleAdmin)
	game := env.createGame(t, admin, "Quiz Night")

	_, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:    "Too few options",
		Options: []string{"A", "B", "C"},
	})
	assert.ErrorIs(t, err, ErrOptionCount)

	_, err = env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:      "Bad score",
		Options:   fourOptions(),
		BaseScore: floatPtr(0),
	})
	assert.ErrorIs(t, err, ErrScoreNotPositive)

	_, err = env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:       "Bad multiplier",
		Options:    fourOptions(),
		Multiplier: floatPtr(0.5),
	})
	assert.ErrorIs(t, err, ErrBadMultiplier)

	_, err = env.questions.CreateQuestion(game.ID, other.ID, &CreateQuestionRequest{
		Text:    "Not my game",
		Options: fourOptions(),
	})
	assert.ErrorIs(t, err, ErrNotYourGame)

	_, err = env.questions.CreateQuestion(999, admin.ID, &CreateQuestionRequest{
		Text:    "No game",
		Options: fourOptions(),
	})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestCreateQuestion_EndedGame(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")
	_, err := env.games.UpdateGameStatus(game.ID, admin.ID, models.GameStatusEnded, nil)
	require.NoError(t, err)

	_, err = env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:    "Too late",
		Options: fourOptions(),
	})
	assert.ErrorIs(t, err, ErrGameEnded)
}

func TestUpdateQuestionStatus_RequiresLiveGame(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q", Options: fourOptions(),
	})
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	assert.ErrorIs(t, err, ErrGameNotLive)
}

func TestUpdateQuestionStatus_SingleLiveQuestion(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q1, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q1", Options: fourOptions(),
	})
	require.NoError(t, err)
	q2, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q2", Options: fourOptions(),
	})
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q1.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	// Second live question in the same game is a write-time conflict.
	_, err = env.questions.UpdateQuestionStatus(q2.ID, admin.ID, models.QuestionStatusLive, nil)
	assert.ErrorIs(t, err, ErrAnotherQuestionLive)

	// Closing the first frees the slot.
	_, err = env.questions.UpdateQuestionStatus(q1.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q2.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	// A question in another game does not occupy the slot.
	otherGame := env.createLiveGame(t, admin, "Other Game")
	q3, err := env.questions.CreateQuestion(otherGame.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q3", Options: fourOptions(),
	})
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q3.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)
}

func TestUpdateQuestionStatus_LiveSlotEnforcedBySchema(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q1, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q1", Options: fourOptions(),
	})
	require.NoError(t, err)
	q2, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q2", Options: fourOptions(),
	})
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q1.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	// A writer that never looked for another live question, like the loser of
	// two concurrent go-live calls, still cannot commit a second live row:
	// idx_questions_one_live rejects it.
	err = env.db.Model(&models.Question{}).Where("id = ?", q2.ID).
		Update("status", models.QuestionStatusLive).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var liveCount int64
	require.NoError(t, env.db.Model(&models.Question{}).
		Where("game_id = ? AND status = ?", game.ID, models.QuestionStatusLive).
		Count(&liveCount).Error)
	assert.EqualValues(t, 1, liveCount)
}

func TestUpdateQuestionStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q", Options: fourOptions(),
	})
	require.NoError(t, err)

	// draft cannot close
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	assert.ErrorIs(t, err, ErrQuestionCantClose)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)

	// closed cannot go live again
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	assert.ErrorIs(t, err, ErrQuestionNotDraft)
}

func TestSetCorrectAnswer_Settlement(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createGame(t, admin, "Quiz A")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text:       "Worth double",
		Options:    fourOptions(),
		BaseScore:  floatPtr(10),
		Multiplier: floatPtr(2),
	})
	require.NoError(t, err)

	_, err = env.games.UpdateGameStatus(game.ID, admin.ID, models.GameStatusLive, nil)
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	winner := env.createUser(t, "bob", models.RoleUser)
	loser := env.createUser(t, "carol", models.RoleUser)
	winnerP, err := env.participants.JoinGame(game.ID, winner.ID, nil)
	require.NoError(t, err)
	loserP, err := env.participants.JoinGame(game.ID, loser.ID, nil)
	require.NoError(t, err)

	_, err = env.answers.SubmitAnswer(q.ID, winner.ID, 1)
	require.NoError(t, err)
	_, err = env.answers.SubmitAnswer(q.ID, loser.ID, 2)
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)

	revealed, err := env.questions.SetCorrectAnswer(q.ID, admin.ID, 1, nil)
	require.NoError(t, err)
	assert.True(t, revealed.IsAnswerRevealed)
	require.NotNil(t, revealed.CorrectOption)
	assert.Equal(t, 1, *revealed.CorrectOption)

	var got models.Participant
	require.NoError(t, env.db.First(&got, winnerP.ID).Error)
	assert.Equal(t, 20.0, got.Score)
	got = models.Participant{}
	require.NoError(t, env.db.First(&got, loserP.ID).Error)
	assert.Equal(t, 0.0, got.Score)
}

func TestSetCorrectAnswer_Guards(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q", Options: fourOptions(),
	})
	require.NoError(t, err)

	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 4, nil)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)
	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, -1, nil)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)

	// Not closed yet.
	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 1, nil)
	assert.ErrorIs(t, err, ErrQuestionNotClosed)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)
	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 1, nil)
	assert.ErrorIs(t, err, ErrQuestionNotClosed)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)

	_, err = env.questions.SetCorrectAnswer(q.ID, 999, 1, nil)
	assert.ErrorIs(t, err, ErrNotYourGame)

	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 1, nil)
	require.NoError(t, err)

	// Reveal is once only.
	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 1, nil)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)
}

func TestSetCorrectAnswer_ScoresAdjustedOnce(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q", Options: fourOptions(),
	})
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	user := env.createUser(t, "bob", models.RoleUser)
	p, err := env.participants.JoinGame(game.ID, user.ID, nil)
	require.NoError(t, err)
	_, err = env.answers.SubmitAnswer(q.ID, user.ID, 3)
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)
	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 3, nil)
	require.NoError(t, err)

	// However many times reveal is attempted, the credit lands once.
	for i := 0; i < 3; i++ {
		_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 3, nil)
		assert.ErrorIs(t, err, ErrAlreadyRevealed)
	}

	var got models.Participant
	require.NoError(t, env.db.First(&got, p.ID).Error)
	assert.Equal(t, 10.0, got.Score)
}

func TestSetCorrectAnswer_ConcurrentRevealSettlesOnce(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "alice", models.RoleAdmin)
	game := env.createLiveGame(t, admin, "Quiz Night")

	q, err := env.questions.CreateQuestion(game.ID, admin.ID, &CreateQuestionRequest{
		Text: "Q", Options: fourOptions(),
	})
	require.NoError(t, err)
	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusLive, nil)
	require.NoError(t, err)

	user := env.createUser(t, "bob", models.RoleUser)
	p, err := env.participants.JoinGame(game.ID, user.ID, nil)
	require.NoError(t, err)
	_, err = env.answers.SubmitAnswer(q.ID, user.ID, 3)
	require.NoError(t, err)

	_, err = env.questions.UpdateQuestionStatus(q.ID, admin.ID, models.QuestionStatusClosed, nil)
	require.NoError(t, err)

	// Flip the revealed flag behind the service's back, the way a reveal
	// committed on another connection would land between this caller's read
	// and its write. The reveal update matches zero unrevealed rows, so the
	// caller gets the conflict and settlement does not run again.
	require.NoError(t, env.db.Model(&models.Question{}).Where("id = ?", q.ID).
		Updates(map[string]interface{}{
			"correct_option":     3,
			"is_answer_revealed": true,
		}).Error)

	_, err = env.questions.SetCorrectAnswer(q.ID, admin.ID, 3, nil)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)

	var got models.Participant
	require.NoError(t, env.db.First(&got, p.ID).Error)
	assert.Equal(t, 0.0, got.Score)
}
