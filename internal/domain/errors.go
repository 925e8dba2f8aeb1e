package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned for a missing, malformed or expired token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller acts on another user's data.
	ErrForbidden = errors.New("forbidden")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates the referenced question does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoActiveQuizzes is returned when no quiz is currently active.
	ErrNoActiveQuizzes = errors.New("no active quizzes")
	// ErrQuizNotActive is returned when starting or submitting a quiz that is not active.
	ErrQuizNotActive = errors.New("quiz is not active")
	// ErrAlreadyAttempted is returned when a result already exists for (user, quiz).
	ErrAlreadyAttempted = errors.New("quiz already attempted")
	// ErrTimeLimitExceeded is returned when a submission arrives after the quiz time plus grace.
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	// ErrSessionNotFound is returned when no active session exists for (user, quiz).
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNoActiveSession is returned for sessionless submissions when the legacy path is disabled.
	ErrNoActiveSession = errors.New("no active session for quiz")
	// ErrSessionExists signals a storage-level conflict on the active-session constraint.
	ErrSessionExists = errors.New("active session already exists")

	ErrPhoneTaken         = errors.New("phone already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrProfileTaken       = errors.New("profile url already registered")
	ErrPasswordAlreadySet = errors.New("password already set")
	ErrPasswordNotSet     = errors.New("password not set")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
