package repository

import (
	"exam_prep_backend/internal/model"

	"gorm.io/gorm"
)

type StatsRepository struct {
	DB *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{DB: db}
}

// SubjectAccuracy 某科目下的答题正确率汇总
type SubjectAccuracy struct {
	SubjectID    uint    `json:"subjectId"`
	SubjectName  string  `json:"subjectName"`
	AttemptCount int64   `json:"attemptCount"`
	CorrectCount int64   `json:"correctCount"`
	TotalCount   int64   `json:"totalCount"`
	Accuracy     float64 `json:"accuracy"`
}

func (r *StatsRepository) CountAttempts(userID uint) (finished int64, inProgress int64, err error) {
	if err = r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND status = ?", userID, model.AttemptFinished).
		Count(&finished).Error; err != nil {
		return
	}
	err = r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND status = ?", userID, model.AttemptInProgress).
		Count(&inProgress).Error
	return
}

func (r *StatsRepository) OverallAccuracy(userID uint) (correct int64, total int64, err error) {
	type sums struct {
		Correct int64
		Total   int64
	}
	var s sums
	err = r.DB.Model(&model.QuizAttempt{}).
		Select("COALESCE(SUM(correct_count),0) as correct, COALESCE(SUM(total_count),0) as total").
		Where("user_id = ? AND status = ?", userID, model.AttemptFinished).
		Scan(&s).Error
	return s.Correct, s.Total, err
}

func (r *StatsRepository) AccuracyBySubject(userID uint) ([]SubjectAccuracy, error) {
	var rows []SubjectAccuracy
	err := r.DB.Table("quiz_attempts").
		Select("quiz_attempts.subject_id, subjects.name as subject_name, COUNT(*) as attempt_count, COALESCE(SUM(quiz_attempts.correct_count),0) as correct_count, COALESCE(SUM(quiz_attempts.total_count),0) as total_count").
		Joins("LEFT JOIN subjects ON subjects.id = quiz_attempts.subject_id").
		Where("quiz_attempts.user_id = ? AND quiz_attempts.status = ?", userID, model.AttemptFinished).
		Where("quiz_attempts.deleted_at IS NULL").
		Group("quiz_attempts.subject_id, subjects.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].TotalCount > 0 {
			rows[i].Accuracy = float64(rows[i].CorrectCount) / float64(rows[i].TotalCount)
		}
	}
	return rows, nil
}

func (r *StatsRepository) MarkedQuestionCount(userID uint) (int64, error) {
	var count int64
	err := r.DB.Table("attempt_questions").
		Joins("JOIN quiz_attempts ON quiz_attempts.id = attempt_questions.attempt_id").
		Where("quiz_attempts.user_id = ? AND attempt_questions.marked = ?", userID, true).
		Where("attempt_questions.deleted_at IS NULL").
		Count(&count).Error
	return count, err
}

func (r *StatsRepository) RecentAttempts(userID uint, limit int) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ?", userID).
		Order("started_at desc").Limit(limit).Find(&attempts).Error
	return attempts, err
}
