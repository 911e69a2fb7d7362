package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrUserDisabled        = errors.New("account disabled")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrQuizNotFound        = errors.New("quiz attempt not found")
	ErrQuizFinished        = errors.New("quiz already finished")
	ErrQuestionNotInQuiz   = errors.New("question does not belong to this quiz")
	ErrChoiceNotInQuestion = errors.New("choice does not belong to this question")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrNoPendingSelection  = errors.New("no pending selection to confirm")
	ErrRequestInFlight     = errors.New("another request is still in flight")
	ErrNotEnoughQuestions  = errors.New("not enough questions for the requested quiz")
	ErrSessionNotLoaded    = errors.New("quiz session not loaded")
)
