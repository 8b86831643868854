package util

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailRegistered = errors.New("email already registered")

	ErrQuizNotFound     = errors.New("quiz not found")
	ErrQuizNotPublished = errors.New("quiz not published")
	ErrQuizNotStarted   = errors.New("quiz has not started yet")
	ErrQuizEnded        = errors.New("quiz has ended")
	ErrQuizNoQuestions  = errors.New("quiz has no questions")

	ErrQuestionNotFound = errors.New("question not found")

	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrMaxAttemptsReached   = errors.New("maximum attempts reached")
	ErrAttemptSubmitted     = errors.New("attempt already submitted")
	ErrAttemptNotSubmitted  = errors.New("attempt not submitted yet")
	ErrAttemptTimeExpired   = errors.New("attempt time expired")
	ErrAnswerNotFound       = errors.New("answer not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidAnswerPayload = errors.New("invalid answer payload")
)
