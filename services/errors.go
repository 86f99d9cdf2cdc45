package services

import "errors"

// Sentinel errors shared across services and the HTTP status mapping.
var (
	// Not found
	ErrGameNotFound     = errors.New("game not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrUserNotFound     = errors.New("user not found")

	// Authentication and authorization
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailConflict      = errors.New("email address is already in use")
	ErrNotYourGame        = errors.New("unauthorized: not your game")
	ErrNotJoined          = errors.New("must join game before answering")

	// Validation
	ErrOptionCount      = errors.New("question must have exactly 4 options")
	ErrOptionOutOfRange = errors.New("selected option must be 0-3")
	ErrInvalidStatus    = errors.New("invalid status value")
	ErrScoreNotPositive = errors.New("base score must be positive")
	ErrBadMultiplier    = errors.New("multiplier must be at least 1")

	// Invalid state
	ErrGameEnded          = errors.New("cannot add questions to ended game")
	ErrGameNotLive        = errors.New("game must be live")
	ErrQuestionNotLive    = errors.New("can only answer live questions")
	ErrQuestionNotClosed  = errors.New("question must be closed before setting answer")
	ErrGameAlreadyDeleted = errors.New("game already deleted")
	ErrAlreadyRevealed    = errors.New("answer already revealed")

	// Invalid transitions
	ErrGameNotDraft      = errors.New("can only make draft games live")
	ErrGameCannotEnd     = errors.New("can only end live games")
	ErrQuestionNotDraft  = errors.New("can only make draft questions live")
	ErrQuestionCantClose = errors.New("can only close live questions")

	// Write-time conflicts
	ErrAnotherQuestionLive = errors.New("another question is already live")
)
