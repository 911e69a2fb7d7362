package controller

import (
	"errors"
	"exam_prep_backend/internal/repository"
	"exam_prep_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SyncController 暴露仓储粒度的同步接口，服务于在本地运行答题引擎的
// 客户端（桌面端/命令行）。与 /session 命令接口互斥使用：同一测验
// 要么由服务端会话驱动，要么由客户端引擎经这里读写。
type SyncController struct {
	AttemptRepo *repository.QuizAttemptRepository
}

func NewSyncController(attemptRepo *repository.QuizAttemptRepository) *SyncController {
	return &SyncController{AttemptRepo: attemptRepo}
}

// owns 校验当前用户对测验的所有权
func (c *SyncController) owns(ctx *gin.Context) (string, bool) {
	quizID := ctx.Param("id")
	attempt, err := c.AttemptRepo.FindAttemptByID(quizID)
	if err != nil {
		if errors.Is(err, util.ErrQuizNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return "", false
	}

	user := util.GetUserFromContext(ctx)
	if attempt.UserID != user.UserID {
		util.Forbidden(ctx)
		return "", false
	}
	return quizID, true
}

func (c *SyncController) syncError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrQuizFinished):
		util.Conflict(ctx, "测验已交卷")
	case errors.Is(err, util.ErrAlreadyAnswered):
		util.Error(ctx, http.StatusUnprocessableEntity, "该题已作答")
	case errors.Is(err, util.ErrQuestionNotInQuiz):
		util.BadRequest(ctx, "题目不属于本次测验")
	case errors.Is(err, util.ErrChoiceNotInQuestion):
		util.BadRequest(ctx, "选项不属于该题目")
	default:
		util.LogInternalError(ctx, err)
	}
}

// GetSnapshot godoc
// @Summary 测验快照
// @Description 客户端答题引擎的初始加载：题目、选项、已答状态和用时
// @Tags 同步接口
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizSnapshot}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/quizzes/{id}/snapshot [get]
func (c *SyncController) GetSnapshot(ctx *gin.Context) {
	quizID, ok := c.owns(ctx)
	if !ok {
		return
	}

	snap, err := c.AttemptRepo.LoadQuiz(ctx.Request.Context(), quizID)
	if err != nil {
		c.syncError(ctx, err)
		return
	}
	util.Success(ctx, snap)
}

// SubmitAnswerRequest 同步提交作答
type SubmitAnswerRequest struct {
	QuestionID uint `json:"questionId" binding:"required"`
	ChoiceID   uint `json:"choiceId" binding:"required"`
}

// SubmitAnswer godoc
// @Summary 提交作答
// @Description 即时反馈模式返回对错和解析，统一模式 data 为空
// @Tags 同步接口
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path string              true "测验ID"
// @Param   body body SubmitAnswerRequest true "作答"
// @Success 200 {object} util.Response{data=model.AnswerFeedback}
// @Failure 409 {object} util.Response "测验已交卷"
// @Failure 422 {object} util.Response "该题已作答"
// @Router /api/quizzes/{id}/answers [post]
func (c *SyncController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quizID, ok := c.owns(ctx)
	if !ok {
		return
	}

	fb, err := c.AttemptRepo.SubmitAnswer(ctx.Request.Context(), quizID, req.QuestionID, req.ChoiceID)
	if err != nil {
		c.syncError(ctx, err)
		return
	}
	util.Success(ctx, fb)
}

// SetMarkRequest 标记状态
type SetMarkRequest struct {
	Marked *bool `json:"marked" binding:"required"`
}

// SetMark godoc
// @Summary 设置标记
// @Tags 同步接口
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id         path string         true "测验ID"
// @Param   questionId path int            true "题目ID"
// @Param   body       body SetMarkRequest true "标记状态"
// @Success 200 {object} util.Response{data=object}
// @Router /api/quizzes/{id}/questions/{questionId}/mark [put]
func (c *SyncController) SetMark(ctx *gin.Context) {
	questionID, err := strconv.Atoi(ctx.Param("questionId"))
	if err != nil {
		util.BadRequest(ctx, "无效的题目ID")
		return
	}

	var req SetMarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quizID, ok := c.owns(ctx)
	if !ok {
		return
	}

	if err := c.AttemptRepo.SetMark(ctx.Request.Context(), quizID, uint(questionID), *req.Marked); err != nil {
		c.syncError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"marked": *req.Marked})
}

// Finish godoc
// @Summary 交卷
// @Description 重复交卷返回 409，客户端应视为已交卷成功
// @Tags 同步接口
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizResultSummary}
// @Failure 409 {object} util.Response "测验已交卷"
// @Router /api/quizzes/{id}/finish [post]
func (c *SyncController) Finish(ctx *gin.Context) {
	quizID, ok := c.owns(ctx)
	if !ok {
		return
	}

	summary, err := c.AttemptRepo.FinishQuiz(ctx.Request.Context(), quizID)
	if err != nil {
		c.syncError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
