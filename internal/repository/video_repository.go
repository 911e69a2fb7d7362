package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) Create(v *model.VideoLesson) error {
	return r.DB.Create(v).Error
}

func (r *VideoRepository) FindByID(id uint) (*model.VideoLesson, error) {
	var v model.VideoLesson
	err := r.DB.First(&v, id).Error
	return &v, err
}

func (r *VideoRepository) List(subjectID, topicID uint, publishedOnly bool, page, limit int) ([]model.VideoLesson, int64, error) {
	var videos []model.VideoLesson
	var total int64

	query := r.DB.Model(&model.VideoLesson{})
	if subjectID > 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if topicID > 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&videos).Error
	return videos, total, err
}

func (r *VideoRepository) Update(v *model.VideoLesson) error {
	return r.DB.Save(v).Error
}

func (r *VideoRepository) Delete(id uint) error {
	return r.DB.Delete(&model.VideoLesson{}, id).Error
}

func (r *VideoRepository) AddViews(id uint, delta int64) error {
	return r.DB.Model(&model.VideoLesson{}).
		Where("id = ?", id).
		Update("views", gorm.Expr("views + ?", delta)).
		Error
}
