package util

import "errors"

var (
	ErrModuleNotFound       = errors.New("module not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrExamNotYetOpen       = errors.New("exam not open yet")
	ErrExamEnded            = errors.New("exam is over")
	ErrExamAlreadyCompleted = errors.New("exam already submitted and cannot be reopened")
	ErrExamNoQuestions      = errors.New("exam has no questions")
	ErrEmptyAnswer          = errors.New("answer must not be empty")
	ErrSessionNotFound      = errors.New("session not found")
	ErrScoresNotAvailable   = errors.New("scores not yet available")
	ErrReviewWindowExpired  = errors.New("answer viewing window has expired")
	ErrImportFormat         = errors.New("invalid import file format")
	ErrInvalidCredentials   = errors.New("invalid username or password")
)
