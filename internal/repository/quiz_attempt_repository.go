package repository

import (
	"context"
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// QuizAttemptRepository 测验尝试仓储，同时是会话控制器的 QuizRepository 本地实现
type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

// CreateAttempt 建立一次尝试：题目集合与顺序在此刻固定
func (r *QuizAttemptRepository) CreateAttempt(attempt *model.QuizAttempt, questionIDs []uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		for i, qid := range questionIDs {
			aq := &model.AttemptQuestion{
				AttemptID:  attempt.ID,
				QuestionID: qid,
				Position:   i,
			}
			if err := tx.Create(aq).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuizAttemptRepository) FindAttemptByID(id string) (*model.QuizAttempt, error) {
	var a model.QuizAttempt
	err := r.DB.Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *QuizAttemptRepository) ListAttemptsByUser(userID uint, page, limit int) ([]model.QuizAttempt, int64, error) {
	var attempts []model.QuizAttempt
	var total int64

	query := r.DB.Model(&model.QuizAttempt{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

// ---- QuizRepository 实现 ----

// LoadQuiz 组装测验快照：按 Position 排序的题目、已有的作答/标记状态，
// 以及（即时模式下已答题的）批改反馈。
func (r *QuizAttemptRepository) LoadQuiz(ctx context.Context, quizID string) (*model.QuizSnapshot, error) {
	attempt, err := r.FindAttemptByID(quizID)
	if err != nil {
		return nil, err
	}

	var rows []model.AttemptQuestion
	if err := r.DB.WithContext(ctx).
		Where("attempt_id = ?", quizID).
		Order("position asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	questionIDs := make([]uint, len(rows))
	for i, row := range rows {
		questionIDs[i] = row.QuestionID
	}

	var questions []model.Question
	if err := r.DB.WithContext(ctx).Preload("Choices").
		Where("id IN ?", questionIDs).
		Find(&questions).Error; err != nil {
		return nil, err
	}
	questionMap := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		questionMap[questions[i].ID] = &questions[i]
	}

	snap := &model.QuizSnapshot{
		QuizID:         attempt.ID,
		UserID:         attempt.UserID,
		FeedbackMode:   attempt.FeedbackMode,
		ElapsedSeconds: attempt.ElapsedSeconds,
	}

	for _, row := range rows {
		q, ok := questionMap[row.QuestionID]
		if !ok {
			continue
		}

		sq := &model.SessionQuestion{
			ID:               q.ID,
			Statement:        q.Statement,
			SelectedChoiceID: row.SelectedChoiceID,
			Marked:           row.Marked,
		}
		for _, c := range q.Choices {
			sq.Choices = append(sq.Choices, model.SessionChoice{
				ID:          c.ID,
				Label:       c.Label,
				Description: c.Description,
			})
		}
		if attempt.FeedbackMode == model.FeedbackImmediate && row.SelectedChoiceID != nil {
			sq.Feedback = buildFeedback(q, row)
		}
		snap.Questions = append(snap.Questions, sq)
	}

	return snap, nil
}

// SubmitAnswer 批改并落库。selected_choice_id 只允许从 NULL 写一次，
// 数据库层兜底"答案不可变更"。
func (r *QuizAttemptRepository) SubmitAnswer(ctx context.Context, quizID string, questionID, choiceID uint) (*model.AnswerFeedback, error) {
	attempt, err := r.FindAttemptByID(quizID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptFinished {
		return nil, util.ErrQuizFinished
	}

	var row model.AttemptQuestion
	err = r.DB.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", quizID, questionID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuestionNotInQuiz
	}
	if err != nil {
		return nil, err
	}
	if row.SelectedChoiceID != nil {
		return nil, util.ErrAlreadyAnswered
	}

	var question model.Question
	if err := r.DB.WithContext(ctx).Preload("Choices").First(&question, questionID).Error; err != nil {
		return nil, err
	}

	var chosen *model.Choice
	for i := range question.Choices {
		if question.Choices[i].ID == choiceID {
			chosen = &question.Choices[i]
			break
		}
	}
	if chosen == nil {
		return nil, util.ErrChoiceNotInQuestion
	}

	isCorrect := chosen.IsCorrect
	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.AttemptQuestion{}).
		Where("attempt_id = ? AND question_id = ? AND selected_choice_id IS NULL", quizID, questionID).
		Updates(map[string]interface{}{
			"selected_choice_id": choiceID,
			"is_correct":         isCorrect,
			"answered_at":        now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, util.ErrAlreadyAnswered
	}

	if attempt.FeedbackMode != model.FeedbackImmediate {
		return nil, nil
	}

	row.SelectedChoiceID = &choiceID
	row.IsCorrect = &isCorrect
	return buildFeedback(&question, row), nil
}

func (r *QuizAttemptRepository) SetMark(ctx context.Context, quizID string, questionID uint, marked bool) error {
	attempt, err := r.FindAttemptByID(quizID)
	if err != nil {
		return err
	}
	if attempt.Status == model.AttemptFinished {
		return util.ErrQuizFinished
	}

	res := r.DB.WithContext(ctx).Model(&model.AttemptQuestion{}).
		Where("attempt_id = ? AND question_id = ?", quizID, questionID).
		Update("marked", marked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrQuestionNotInQuiz
	}
	return nil
}

// FinishQuiz 交卷并统计成绩。重复交卷返回 ErrQuizFinished，由调用方归一化。
func (r *QuizAttemptRepository) FinishQuiz(ctx context.Context, quizID string) (*model.QuizResultSummary, error) {
	attempt, err := r.FindAttemptByID(quizID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == model.AttemptFinished {
		return nil, util.ErrQuizFinished
	}

	var correct int64
	if err := r.DB.WithContext(ctx).Model(&model.AttemptQuestion{}).
		Where("attempt_id = ? AND is_correct = ?", quizID, true).
		Count(&correct).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	res := r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND status = ?", quizID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":        model.AttemptFinished,
			"correct_count": correct,
			"finished_at":   now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 并发交卷被别的请求抢先，等价于重复交卷
		return nil, util.ErrQuizFinished
	}

	return &model.QuizResultSummary{
		CorrectCount: int(correct),
		TotalCount:   attempt.TotalCount,
	}, nil
}

// SaveElapsed 回写答题用时，只增不减
func (r *QuizAttemptRepository) SaveElapsed(ctx context.Context, quizID string, seconds int64) error {
	return r.DB.WithContext(ctx).Model(&model.QuizAttempt{}).
		Where("id = ? AND elapsed_seconds < ?", quizID, seconds).
		Update("elapsed_seconds", seconds).Error
}

func buildFeedback(q *model.Question, row model.AttemptQuestion) *model.AnswerFeedback {
	fb := &model.AnswerFeedback{
		Explanation:   q.Explanation,
		VideoLessonID: q.VideoLessonID,
	}
	for _, c := range q.Choices {
		if c.IsCorrect {
			fb.CorrectChoiceID = c.ID
			break
		}
	}
	if row.IsCorrect != nil {
		fb.IsCorrect = *row.IsCorrect
	}
	return fb
}
