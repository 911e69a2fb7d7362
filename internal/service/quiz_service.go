package service

import (
	"exam_prep_backend/internal/config"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"time"
)

// QuizService 组卷和成绩查询。会话期间的命令走 QuizSessionManager，
// 这里只负责会话之外的生命周期。
type QuizService struct {
	AttemptRepo  *repository.QuizAttemptRepository
	QuestionRepo *repository.QuestionRepository
	Cfg          *config.Config
}

func NewQuizService(attemptRepo *repository.QuizAttemptRepository, questionRepo *repository.QuestionRepository, cfg *config.Config) *QuizService {
	return &QuizService{
		AttemptRepo:  attemptRepo,
		QuestionRepo: questionRepo,
		Cfg:          cfg,
	}
}

type CreateQuizRequest struct {
	SubjectID     uint               `json:"subjectId" binding:"required"`
	TopicIDs      []uint             `json:"topicIds"`
	QuestionCount int                `json:"questionCount"`
	FeedbackMode  model.FeedbackMode `json:"feedbackMode" binding:"required"`
}

// CreateQuiz 按科目/主题过滤随机组卷。题目顺序在创建时固定，反馈模式此后不可变。
func (s *QuizService) CreateQuiz(userID uint, req CreateQuizRequest) (*model.QuizAttempt, error) {
	count := req.QuestionCount
	if count <= 0 {
		count = s.Cfg.Quiz.DefaultQuestionCount
	}
	if count > s.Cfg.Quiz.MaxQuestionCount {
		count = s.Cfg.Quiz.MaxQuestionCount
	}

	questions, err := s.QuestionRepo.PickRandom(req.SubjectID, req.TopicIDs, count)
	if err != nil {
		return nil, err
	}
	if len(questions) < count {
		return nil, util.ErrNotEnoughQuestions
	}

	attempt := &model.QuizAttempt{
		UserID:       userID,
		SubjectID:    req.SubjectID,
		FeedbackMode: req.FeedbackMode,
		Status:       model.AttemptInProgress,
		TotalCount:   len(questions),
		StartedAt:    time.Now(),
	}

	questionIDs := make([]uint, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}

	if err := s.AttemptRepo.CreateAttempt(attempt, questionIDs); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *QuizService) GetAttempt(id string) (*model.QuizAttempt, error) {
	return s.AttemptRepo.FindAttemptByID(id)
}

func (s *QuizService) ListAttempts(userID uint, page, limit int) ([]model.QuizAttempt, int64, error) {
	return s.AttemptRepo.ListAttemptsByUser(userID, page, limit)
}

type QuizResultResponse struct {
	Attempt *model.QuizAttempt `json:"attempt"`
	Summary model.QuizResultSummary `json:"summary"`
}

// GetResult 交卷后的成绩视图
func (s *QuizService) GetResult(userID uint, quizID string) (*QuizResultResponse, error) {
	attempt, err := s.AttemptRepo.FindAttemptByID(quizID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	return &QuizResultResponse{
		Attempt: attempt,
		Summary: model.QuizResultSummary{
			CorrectCount: attempt.CorrectCount,
			TotalCount:   attempt.TotalCount,
		},
	}, nil
}
