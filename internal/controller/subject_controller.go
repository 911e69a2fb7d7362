package controller

import (
	"errors"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SubjectController struct {
	SubjectService *service.SubjectService
}

func NewSubjectController(subjectService *service.SubjectService) *SubjectController {
	return &SubjectController{SubjectService: subjectService}
}

// ListSubjects godoc
// @Summary 科目列表
// @Tags 科目
// @Produce  json
// @Security BearerAuth
// @Param   page  query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object}
// @Router /api/subjects [get]
func (c *SubjectController) ListSubjects(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	user := util.GetUserFromContext(ctx)
	// 学生只看启用的科目
	enabledOnly := user == nil || user.Role == "student"

	subjects, total, err := c.SubjectService.List(page, limit, enabledOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": subjects, "total": total})
}

// GetSubject godoc
// @Summary 科目详情
// @Tags 科目
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=model.Subject}
// @Failure 404 {object} util.Response "科目不存在"
// @Router /api/subjects/{id} [get]
func (c *SubjectController) GetSubject(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的科目ID")
		return
	}

	subject, err := c.SubjectService.Get(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, subject)
}

// CreateSubject godoc
// @Summary 创建科目
// @Tags 科目
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.SubjectRequest true "科目信息"
// @Success 201 {object} util.Response{data=model.Subject}
// @Router /api/subjects [post]
func (c *SubjectController) CreateSubject(ctx *gin.Context) {
	var req service.SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.SubjectService.Create(req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// UpdateSubject godoc
// @Summary 更新科目
// @Tags 科目
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                    true "科目ID"
// @Param   body body service.SubjectRequest true "科目信息"
// @Success 200 {object} util.Response{data=model.Subject}
// @Router /api/subjects/{id} [put]
func (c *SubjectController) UpdateSubject(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的科目ID")
		return
	}

	var req service.SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	subject, err := c.SubjectService.Update(uint(id), req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, subject)
}

// DeleteSubject godoc
// @Summary 删除科目
// @Tags 科目
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/subjects/{id} [delete]
func (c *SubjectController) DeleteSubject(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的科目ID")
		return
	}
	if err := c.SubjectService.Delete(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// ListTopics godoc
// @Summary 科目下的主题列表
// @Tags 科目
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "科目ID"
// @Success 200 {object} util.Response{data=[]model.Topic}
// @Router /api/subjects/{id}/topics [get]
func (c *SubjectController) ListTopics(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的科目ID")
		return
	}

	topics, err := c.SubjectService.ListTopics(uint(id))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, topics)
}

// CreateTopic godoc
// @Summary 创建主题
// @Tags 科目
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.TopicRequest true "主题信息"
// @Success 201 {object} util.Response{data=model.Topic}
// @Router /api/topics [post]
func (c *SubjectController) CreateTopic(ctx *gin.Context) {
	var req service.TopicRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	topic, err := c.SubjectService.CreateTopic(req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.BadRequest(ctx, "科目不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, topic)
}

// DeleteTopic godoc
// @Summary 删除主题
// @Tags 科目
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "主题ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/topics/{id} [delete]
func (c *SubjectController) DeleteTopic(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的主题ID")
		return
	}
	if err := c.SubjectService.DeleteTopic(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
