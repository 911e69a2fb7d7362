package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// Create 题目和选项在同一事务里落库
func (r *QuestionRepository) Create(q *model.Question) error {
	return r.DB.Create(q).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.Preload("Choices").First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) List(subjectID, topicID uint, page, limit int) ([]model.Question, int64, error) {
	var qs []model.Question
	var total int64

	query := r.DB.Model(&model.Question{})
	if subjectID > 0 {
		query = query.Where("subject_id = ?", subjectID)
	}
	if topicID > 0 {
		query = query.Where("topic_id = ?", topicID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Preload("Choices").Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

// PickRandom 按科目/主题过滤随机抽题，组卷时题目顺序即抽取顺序
func (r *QuestionRepository) PickRandom(subjectID uint, topicIDs []uint, count int) ([]model.Question, error) {
	var qs []model.Question
	query := r.DB.Where("subject_id = ? AND enabled = ?", subjectID, true)
	if len(topicIDs) > 0 {
		query = query.Where("topic_id IN ?", topicIDs)
	}
	err := query.Preload("Choices").Order("RAND()").Limit(count).Find(&qs).Error
	return qs, err
}

func (r *QuestionRepository) Update(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", q.ID).Delete(&model.Choice{}).Error; err != nil {
			return err
		}
		return tx.Save(q).Error
	})
}

func (r *QuestionRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&model.Choice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, id).Error
	})
}

func (r *QuestionRepository) CountBySubject(subjectID uint, topicIDs []uint) (int64, error) {
	var total int64
	query := r.DB.Model(&model.Question{}).Where("subject_id = ? AND enabled = ?", subjectID, true)
	if len(topicIDs) > 0 {
		query = query.Where("topic_id IN ?", topicIDs)
	}
	err := query.Count(&total).Error
	return total, err
}
