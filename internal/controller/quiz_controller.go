package controller

import (
	"errors"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService      *service.QuizService
	SessionManager   *service.QuizSessionManager
	DashboardService *service.DashboardService
}

func NewQuizController(quizService *service.QuizService, sessionManager *service.QuizSessionManager, dashboardService *service.DashboardService) *QuizController {
	return &QuizController{
		QuizService:      quizService,
		SessionManager:   sessionManager,
		DashboardService: dashboardService,
	}
}

// quizError 把会话层的哨兵错误翻译成 HTTP 状态
func quizError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrQuizFinished):
		util.Conflict(ctx, "测验已交卷")
	case errors.Is(err, util.ErrAlreadyAnswered):
		util.Conflict(ctx, "该题已作答")
	case errors.Is(err, util.ErrRequestInFlight):
		util.Conflict(ctx, "上一个请求尚未完成")
	case errors.Is(err, util.ErrNoPendingSelection):
		util.BadRequest(ctx, "请先选择一个选项")
	case errors.Is(err, util.ErrChoiceNotInQuestion):
		util.BadRequest(ctx, "选项不属于当前题目")
	case errors.Is(err, util.ErrQuestionNotInQuiz):
		util.BadRequest(ctx, "题目不属于本次测验")
	case errors.Is(err, util.ErrNotEnoughQuestions):
		util.BadRequest(ctx, "题库数量不足，无法组卷")
	default:
		util.LogInternalError(ctx, err)
	}
}

// CreateQuiz godoc
// @Summary 创建测验
// @Description 按科目和主题随机组卷，反馈模式创建后不可更改
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CreateQuizRequest true "组卷参数"
// @Success 201 {object} util.Response{data=model.QuizAttempt}
// @Failure 400 {object} util.Response "参数错误或题库不足"
// @Router /api/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	var req service.CreateQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if !req.FeedbackMode.Valid() {
		util.BadRequest(ctx, "反馈模式必须是 immediate 或 end")
		return
	}

	user := util.GetUserFromContext(ctx)
	attempt, err := c.QuizService.CreateQuiz(user.UserID, req)
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

// ListQuizzes godoc
// @Summary 我的测验列表
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object}
// @Router /api/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	user := util.GetUserFromContext(ctx)
	attempts, total, err := c.QuizService.ListAttempts(user.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": attempts, "total": total})
}

// GetResult godoc
// @Summary 测验成绩
// @Description 交卷后的成绩汇总
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizResultResponse}
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/quizzes/{id}/result [get]
func (c *QuizController) GetResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	result, err := c.QuizService.GetResult(user.UserID, ctx.Param("id"))
	if err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// session 获取（或恢复）当前用户的答题会话
func (c *QuizController) session(ctx *gin.Context) (*service.QuizSessionController, bool) {
	user := util.GetUserFromContext(ctx)
	ctrl, err := c.SessionManager.Open(ctx.Request.Context(), user.UserID, ctx.Param("id"))
	if err != nil {
		quizError(ctx, err)
		return nil, false
	}
	return ctrl, true
}

// OpenSession godoc
// @Summary 打开答题会话
// @Description 加载测验并定位到第一道未作答题目，重复打开幂等
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response "测验不存在"
// @Failure 403 {object} util.Response "无权访问他人测验"
// @Router /api/quizzes/{id}/session [post]
func (c *QuizController) OpenSession(ctx *gin.Context) {
	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	util.Success(ctx, ctrl.View())
}

// GetSession godoc
// @Summary 会话当前视图
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quizzes/{id}/session [get]
func (c *QuizController) GetSession(ctx *gin.Context) {
	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	util.Success(ctx, ctrl.View())
}

// SelectChoiceRequest 选中待确认选项
type SelectChoiceRequest struct {
	ChoiceID uint `json:"choiceId" binding:"required"`
}

// SelectChoice godoc
// @Summary 选中选项
// @Description 仅记录待确认选项，不提交答案；已作答题目拒绝重选
// @Tags 答题会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path string              true "测验ID"
// @Param   body body SelectChoiceRequest true "选项"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 409 {object} util.Response "该题已作答"
// @Router /api/quizzes/{id}/session/select [post]
func (c *QuizController) SelectChoice(ctx *gin.Context) {
	var req SelectChoiceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := ctrl.SelectChoice(req.ChoiceID); err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, ctrl.View())
}

// ConfirmAnswer godoc
// @Summary 确认作答
// @Description 提交当前待确认选项。即时模式返回对错和解析，统一模式只推进进度。
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response "没有待确认的选项"
// @Failure 409 {object} util.Response "请求在途或已作答"
// @Router /api/quizzes/{id}/session/confirm [post]
func (c *QuizController) ConfirmAnswer(ctx *gin.Context) {
	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := ctrl.ConfirmAnswer(ctx.Request.Context()); err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, ctrl.View())
}

// ToggleMark godoc
// @Summary 标记/取消标记当前题
// @Description 乐观更新，持久化失败自动回滚
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quizzes/{id}/session/mark [post]
func (c *QuizController) ToggleMark(ctx *gin.Context) {
	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	if err := ctrl.ToggleMark(ctx.Request.Context()); err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, ctrl.View())
}

// NavigateRequest 导航指令：delta 相对移动或 index 绝对跳转，二选一
type NavigateRequest struct {
	Delta *int `json:"delta"`
	Index *int `json:"index"`
}

// Navigate godoc
// @Summary 题目导航
// @Description 相对移动或绝对跳转，越界收敛到边界
// @Tags 答题会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path string          true "测验ID"
// @Param   body body NavigateRequest true "导航指令"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Router /api/quizzes/{id}/session/navigate [post]
func (c *QuizController) Navigate(ctx *gin.Context) {
	var req NavigateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Delta == nil && req.Index == nil {
		util.BadRequest(ctx, "必须提供 delta 或 index")
		return
	}

	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	if req.Index != nil {
		ctrl.NavigateTo(*req.Index)
	} else {
		ctrl.Navigate(*req.Delta)
	}
	util.Success(ctx, ctrl.View())
}

// FinishQuiz godoc
// @Summary 交卷
// @Description 幂等：重复交卷或后端已判交卷均返回成绩
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 409 {object} util.Response "请求在途"
// @Router /api/quizzes/{id}/session/finish [post]
func (c *QuizController) FinishQuiz(ctx *gin.Context) {
	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	if _, err := ctrl.FinishQuiz(ctx.Request.Context()); err != nil {
		quizError(ctx, err)
		return
	}

	user := util.GetUserFromContext(ctx)
	c.DashboardService.InvalidateStats(ctx.Request.Context(), user.UserID)
	util.Success(ctx, ctrl.View())
}

// InputRequest 键盘输入事件
type InputRequest struct {
	Key string `json:"key" binding:"required"`
}

// HandleInput godoc
// @Summary 键盘输入事件
// @Description 把按键映射为会话命令，不可用的按键静默忽略
// @Tags 答题会话
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path string       true "测验ID"
// @Param   body body InputRequest true "按键"
// @Success 200 {object} util.Response{data=object}
// @Router /api/quizzes/{id}/session/input [post]
func (c *QuizController) HandleInput(ctx *gin.Context) {
	var req InputRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ctrl, ok := c.session(ctx)
	if !ok {
		return
	}
	outcome, err := ctrl.HandleInput(ctx.Request.Context(), service.InputKey(req.Key))
	if err != nil {
		quizError(ctx, err)
		return
	}

	if ctrl.Completed() {
		user := util.GetUserFromContext(ctx)
		c.DashboardService.InvalidateStats(ctx.Request.Context(), user.UserID)
	}
	util.Success(ctx, gin.H{"outcome": outcome, "view": ctrl.View()})
}

// CloseSession godoc
// @Summary 关闭会话
// @Description 仅释放内存中的会话，进度已随每次操作持久化
// @Tags 答题会话
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "测验ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 403 {object} util.Response "无权关闭他人会话"
// @Router /api/quizzes/{id}/session [delete]
func (c *QuizController) CloseSession(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if err := c.SessionManager.Close(user.UserID, ctx.Param("id")); err != nil {
		quizError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"closed": true})
}
