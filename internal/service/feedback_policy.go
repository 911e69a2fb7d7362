package service

import (
	"exam_prep_backend/internal/model"
)

// feedbackPolicy 把"即时反馈/交卷后反馈"两种模式的分支集中到一处，
// 控制器在答案确认和交卷两个节点回调对应钩子。
type feedbackPolicy interface {
	// onAnswerConfirmed 在仓储确认答案提交成功后调用。
	// wasCurrent 表示该题在结果返回时是否仍是当前题（提交期间允许导航）。
	onAnswerConfirmed(c *QuizSessionController, q *model.SessionQuestion, fb *model.AnswerFeedback, wasCurrent bool)

	// onQuizFinished 在交卷成功（含重复交卷被归一化为成功）后调用，
	// res 可能为 nil（重复交卷时远端不再返回成绩）。
	onQuizFinished(c *QuizSessionController, res *model.QuizResultSummary)
}

func policyFor(mode model.FeedbackMode) feedbackPolicy {
	if mode == model.FeedbackImmediate {
		return immediatePolicy{}
	}
	return endPolicy{}
}

// immediatePolicy 每题确认后立即展示批改结果，不自动跳题
type immediatePolicy struct{}

func (immediatePolicy) onAnswerConfirmed(c *QuizSessionController, q *model.SessionQuestion, fb *model.AnswerFeedback, wasCurrent bool) {
	q.Feedback = fb
}

func (immediatePolicy) onQuizFinished(c *QuizSessionController, res *model.QuizResultSummary) {
	if res != nil {
		c.result = res
		return
	}
	// 重复交卷拿不到远端成绩，用已存的反馈在本地重建
	summary := &model.QuizResultSummary{TotalCount: len(c.questions)}
	for _, q := range c.questions {
		if q.Feedback != nil && q.Feedback.IsCorrect {
			summary.CorrectCount++
		}
	}
	c.result = summary
}

// endPolicy 不展示单题反馈，确认后自动前进，成绩交卷后才可见
type endPolicy struct{}

func (endPolicy) onAnswerConfirmed(c *QuizSessionController, q *model.SessionQuestion, fb *model.AnswerFeedback, wasCurrent bool) {
	// 提交期间用户可能已导航到别的题，此时不强制跳转
	if wasCurrent {
		c.currentIndex = clampIndex(c.currentIndex+1, len(c.questions))
	}
}

func (endPolicy) onQuizFinished(c *QuizSessionController, res *model.QuizResultSummary) {
	c.result = res
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i > length-1 {
		return length - 1
	}
	return i
}
