package service

import "errors"

// Domain errors. Handlers map these onto response codes with errors.Is.
var (
	// Not found.
	ErrExamNotFound     = errors.New("exam not found")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found in this exam")

	// Unauthorized.
	ErrNotAttemptOwner = errors.New("attempt belongs to another student")
	ErrNotExamOwner    = errors.New("exam belongs to another teacher")

	// Invalid state.
	ErrAttemptAlreadyStarted = errors.New("attempt already started")
	ErrAttemptCompleted      = errors.New("attempt already completed")

	// Exam window.
	ErrExamNotOpen     = errors.New("exam has not started yet")
	ErrExamClosed      = errors.New("exam is closed")
	ErrInvalidLateCode = errors.New("invalid or already used late code")
	ErrLateCodeTaken   = errors.New("late code already issued for this exam")

	// Auth.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)
