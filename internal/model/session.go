package model

// SessionChoice 会话中呈现给学生的选项，不携带正确性
type SessionChoice struct {
	ID          uint   `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// SessionQuestion 会话中某题的完整状态。
// SelectedChoiceID 一旦写入便不再变更；Marked 与作答状态相互独立；
// Feedback 仅在即时反馈模式且已作答时非 nil。
type SessionQuestion struct {
	ID               uint            `json:"id"`
	Statement        string          `json:"statement"`
	Choices          []SessionChoice `json:"choices"`
	SelectedChoiceID *uint           `json:"selectedChoiceId,omitempty"`
	Marked           bool            `json:"marked"`
	Feedback         *AnswerFeedback `json:"feedback,omitempty"`
}

func (q *SessionQuestion) Answered() bool {
	return q.SelectedChoiceID != nil
}

// HasChoice 检查选项是否属于本题
func (q *SessionQuestion) HasChoice(choiceID uint) bool {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// QuizSnapshot 从仓储加载的测验快照，会话控制器以此初始化。
// UserID 是尝试的属主，会话管理器建立会话前据此校验归属。
type QuizSnapshot struct {
	QuizID         string             `json:"quizId"`
	UserID         uint               `json:"userId"`
	FeedbackMode   FeedbackMode       `json:"feedbackMode"`
	Questions      []*SessionQuestion `json:"questions"`
	ElapsedSeconds int64              `json:"elapsedSeconds"`
}

// QuizResultSummary 交卷后的成绩摘要
type QuizResultSummary struct {
	CorrectCount int `json:"correctCount"`
	TotalCount   int `json:"totalCount"`
}
