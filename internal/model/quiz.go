package model

import (
	"time"
)

// FeedbackMode 反馈模式：创建测验时确定，会话期间不变
type FeedbackMode string

const (
	// FeedbackImmediate 每题提交后立即显示对错和解析
	FeedbackImmediate FeedbackMode = "immediate"
	// FeedbackEnd 全部答完交卷后才显示结果
	FeedbackEnd FeedbackMode = "end"
)

func (m FeedbackMode) Valid() bool {
	return m == FeedbackImmediate || m == FeedbackEnd
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptFinished   AttemptStatus = "finished"
)

// QuizAttempt 一次测验尝试，题目集合和顺序在创建时固定
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	UserID         uint          `gorm:"index;not null" json:"userId"`
	SubjectID      uint          `gorm:"index;not null" json:"subjectId"`
	FeedbackMode   FeedbackMode  `gorm:"size:20;not null" json:"feedbackMode"`
	Status         AttemptStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	CorrectCount   int           `gorm:"default:0" json:"correctCount"`
	TotalCount     int           `gorm:"default:0" json:"totalCount"`
	ElapsedSeconds int64         `gorm:"default:0" json:"elapsedSeconds"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     *time.Time    `json:"finishedAt,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// AttemptQuestion 测验中某题的作答状态，Position 决定导航顺序
type AttemptQuestion struct {
	BaseModel
	AttemptID        string     `gorm:"index;type:varchar(36);not null" json:"attemptId"`
	QuestionID       uint       `gorm:"index;not null" json:"questionId"`
	Position         int        `gorm:"not null" json:"position"`
	SelectedChoiceID *uint      `json:"selectedChoiceId,omitempty"`
	IsCorrect        *bool      `json:"isCorrect,omitempty"`
	Marked           bool       `gorm:"default:false" json:"marked"`
	AnsweredAt       *time.Time `json:"answeredAt,omitempty"`
}

func (AttemptQuestion) TableName() string {
	return "attempt_questions"
}

// AnswerFeedback 即时反馈模式下提交答案后返回的批改信息。
// 只有已答题才会持有该结构，未答题一律为 nil，避免读到残缺字段。
type AnswerFeedback struct {
	IsCorrect       bool   `json:"isCorrect"`
	CorrectChoiceID uint   `json:"correctChoiceId"`
	Explanation     string `json:"explanation"`
	VideoLessonID   *uint  `json:"videoLessonId,omitempty"`
}
