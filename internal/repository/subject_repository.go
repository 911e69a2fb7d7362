package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) Create(s *model.Subject) error {
	return r.DB.Create(s).Error
}

func (r *SubjectRepository) FindByID(id uint) (*model.Subject, error) {
	var s model.Subject
	err := r.DB.First(&s, id).Error
	return &s, err
}

func (r *SubjectRepository) List(page, limit int, enabledOnly bool) ([]model.Subject, int64, error) {
	var subjects []model.Subject
	var total int64

	query := r.DB.Model(&model.Subject{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("name asc").Offset(offset).Limit(limit).Find(&subjects).Error
	return subjects, total, err
}

func (r *SubjectRepository) Update(s *model.Subject) error {
	return r.DB.Save(s).Error
}

func (r *SubjectRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Subject{}, id).Error
}

func (r *SubjectRepository) CreateTopic(t *model.Topic) error {
	return r.DB.Create(t).Error
}

func (r *SubjectRepository) ListTopics(subjectID uint) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Where("subject_id = ?", subjectID).Order("`order` asc, created_at asc").Find(&topics).Error
	return topics, err
}

func (r *SubjectRepository) DeleteTopic(id uint) error {
	return r.DB.Delete(&model.Topic{}, id).Error
}
