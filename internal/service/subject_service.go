package service

import (
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/repository"
)

type SubjectService struct {
	Repo *repository.SubjectRepository
}

func NewSubjectService(repo *repository.SubjectRepository) *SubjectService {
	return &SubjectService{Repo: repo}
}

type SubjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Enabled     *bool  `json:"enabled"`
}

func (s *SubjectService) Create(req SubjectRequest) (*model.Subject, error) {
	subject := &model.Subject{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Enabled:     true,
	}
	if req.Enabled != nil {
		subject.Enabled = *req.Enabled
	}
	if err := s.Repo.Create(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SubjectService) List(page, limit int, enabledOnly bool) ([]model.Subject, int64, error) {
	return s.Repo.List(page, limit, enabledOnly)
}

func (s *SubjectService) Get(id uint) (*model.Subject, error) {
	return s.Repo.FindByID(id)
}

func (s *SubjectService) Update(id uint, req SubjectRequest) (*model.Subject, error) {
	subject, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	subject.Name = req.Name
	subject.Description = req.Description
	subject.Icon = req.Icon
	if req.Enabled != nil {
		subject.Enabled = *req.Enabled
	}
	if err := s.Repo.Update(subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *SubjectService) Delete(id uint) error {
	return s.Repo.Delete(id)
}

type TopicRequest struct {
	SubjectID uint   `json:"subjectId" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Order     int    `json:"order"`
}

func (s *SubjectService) CreateTopic(req TopicRequest) (*model.Topic, error) {
	if _, err := s.Repo.FindByID(req.SubjectID); err != nil {
		return nil, err
	}
	topic := &model.Topic{
		SubjectID: req.SubjectID,
		Name:      req.Name,
		Order:     req.Order,
	}
	if err := s.Repo.CreateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *SubjectService) ListTopics(subjectID uint) ([]model.Topic, error) {
	return s.Repo.ListTopics(subjectID)
}

func (s *SubjectService) DeleteTopic(id uint) error {
	return s.Repo.DeleteTopic(id)
}
