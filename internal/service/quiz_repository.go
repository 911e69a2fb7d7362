package service

import (
	"context"
	"exam_prep_backend/internal/model"
)

// QuizRepository 会话控制器依赖的测验仓储边界。
// 实现方：repository.QuizAttemptRepository（本地库）、apiclient.Client（远程API）。
type QuizRepository interface {
	// LoadQuiz 拉取测验快照。测验不存在时返回 util.ErrQuizNotFound。
	LoadQuiz(ctx context.Context, quizID string) (*model.QuizSnapshot, error)

	// SubmitAnswer 提交某题的最终选择。仅即时反馈模式返回非 nil 的反馈。
	// 已作答返回 util.ErrAlreadyAnswered，已交卷返回 util.ErrQuizFinished。
	SubmitAnswer(ctx context.Context, quizID string, questionID, choiceID uint) (*model.AnswerFeedback, error)

	// SetMark 持久化标记状态
	SetMark(ctx context.Context, quizID string, questionID uint, marked bool) error

	// FinishQuiz 交卷并返回成绩。重复交卷返回 util.ErrQuizFinished，
	// 调用方应将其视为交卷已完成而非失败。
	FinishQuiz(ctx context.Context, quizID string) (*model.QuizResultSummary, error)
}
