package service

import (
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
)

type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

type ChoiceRequest struct {
	Label       string `json:"label" binding:"required"`
	Description string `json:"description" binding:"required"`
	IsCorrect   bool   `json:"isCorrect"`
}

type QuestionRequest struct {
	SubjectID     uint            `json:"subjectId" binding:"required"`
	TopicID       uint            `json:"topicId"`
	Statement     string          `json:"statement" binding:"required"`
	Explanation   string          `json:"explanation"`
	VideoLessonID *uint           `json:"videoLessonId"`
	Enabled       *bool           `json:"enabled"`
	Choices       []ChoiceRequest `json:"choices" binding:"required"`
}

func validateChoices(choices []ChoiceRequest) error {
	if len(choices) < 2 {
		return errors.New("question needs at least two choices")
	}
	correct := 0
	for _, c := range choices {
		if c.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return errors.New("question must have exactly one correct choice")
	}
	return nil
}

func (s *QuestionService) Create(req QuestionRequest) (*model.Question, error) {
	if err := validateChoices(req.Choices); err != nil {
		return nil, err
	}

	q := &model.Question{
		SubjectID:     req.SubjectID,
		TopicID:       req.TopicID,
		Statement:     req.Statement,
		Explanation:   req.Explanation,
		VideoLessonID: req.VideoLessonID,
		Enabled:       true,
	}
	if req.Enabled != nil {
		q.Enabled = *req.Enabled
	}
	for _, c := range req.Choices {
		q.Choices = append(q.Choices, model.Choice{
			Label:       c.Label,
			Description: c.Description,
			IsCorrect:   c.IsCorrect,
		})
	}

	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Get(id uint) (*model.Question, error) {
	return s.Repo.FindByID(id)
}

func (s *QuestionService) List(subjectID, topicID uint, page, limit int) ([]model.Question, int64, error) {
	return s.Repo.List(subjectID, topicID, page, limit)
}

func (s *QuestionService) Update(id uint, req QuestionRequest) (*model.Question, error) {
	if err := validateChoices(req.Choices); err != nil {
		return nil, err
	}

	q, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	q.SubjectID = req.SubjectID
	q.TopicID = req.TopicID
	q.Statement = req.Statement
	q.Explanation = req.Explanation
	q.VideoLessonID = req.VideoLessonID
	if req.Enabled != nil {
		q.Enabled = *req.Enabled
	}
	q.Choices = nil
	for _, c := range req.Choices {
		q.Choices = append(q.Choices, model.Choice{
			QuestionID:  q.ID,
			Label:       c.Label,
			Description: c.Description,
			IsCorrect:   c.IsCorrect,
		})
	}

	if err := s.Repo.Update(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Delete(id uint) error {
	return s.Repo.Delete(id)
}
