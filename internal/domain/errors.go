package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound is returned when no room exists for a code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a connection acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidPhase is returned when an operation does not apply to the room's current phase.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
	// ErrNoQuestions is returned when a quiz is started without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrNotOwner is returned when an instructor action carries no valid owner token.
	ErrNotOwner = errors.New("not the room owner")
	// ErrAlreadyAnswered rejects a second submission for the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrOptionOutOfRange indicates a submitted option index is invalid.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrInvalidJoin is returned when required join fields are missing.
	ErrInvalidJoin = errors.New("room code and display name are required")
	// ErrMalformedContent marks generator output that failed validation.
	ErrMalformedContent = errors.New("malformed quiz content")
)

// ContentError describes which generated record failed validation.
type ContentError struct {
	Index  int
	Reason string
}

func (e *ContentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedContent, e.Reason)
	}
	return fmt.Sprintf("%s: question %d: %s", ErrMalformedContent, e.Index, e.Reason)
}

func (e *ContentError) Unwrap() error { return ErrMalformedContent }
