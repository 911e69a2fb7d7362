package controller

import (
	"errors"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type VideoController struct {
	VideoService *service.VideoService
}

func NewVideoController(videoService *service.VideoService) *VideoController {
	return &VideoController{VideoService: videoService}
}

// UploadVideo godoc
// @Summary 上传讲解视频
// @Description multipart 上传，自动探测时长并生成封面
// @Tags 视频
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   file        formData file   true  "视频文件"
// @Param   subjectId   formData int    true  "科目ID"
// @Param   topicId     formData int    false "主题ID"
// @Param   title       formData string true  "标题"
// @Param   description formData string false "简介"
// @Success 201 {object} util.Response{data=model.VideoLesson}
// @Router /api/videos [post]
func (c *VideoController) UploadVideo(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少视频文件")
		return
	}

	subjectID, err := strconv.Atoi(ctx.PostForm("subjectId"))
	if err != nil || subjectID <= 0 {
		util.BadRequest(ctx, "无效的科目ID")
		return
	}
	topicID, _ := strconv.Atoi(ctx.PostForm("topicId"))

	title := ctx.PostForm("title")
	if title == "" {
		util.BadRequest(ctx, "标题不能为空")
		return
	}

	lesson, err := c.VideoService.Upload(ctx.Request.Context(), service.VideoUploadRequest{
		SubjectID:   uint(subjectID),
		TopicID:     uint(topicID),
		Title:       title,
		Description: ctx.PostForm("description"),
	}, file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// ListVideos godoc
// @Summary 视频列表
// @Tags 视频
// @Produce  json
// @Security BearerAuth
// @Param   subjectId query int false "科目ID"
// @Param   topicId   query int false "主题ID"
// @Param   page      query int false "页码"
// @Param   limit     query int false "每页数量"
// @Success 200 {object} util.Response{data=object}
// @Router /api/videos [get]
func (c *VideoController) ListVideos(ctx *gin.Context) {
	subjectID, _ := strconv.Atoi(ctx.Query("subjectId"))
	topicID, _ := strconv.Atoi(ctx.Query("topicId"))
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	user := util.GetUserFromContext(ctx)
	publishedOnly := user == nil || user.Role == "student"

	videos, total, err := c.VideoService.List(uint(subjectID), uint(topicID), publishedOnly, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": videos, "total": total})
}

// GetVideo godoc
// @Summary 视频详情
// @Description 返回播放地址并累计播放量
// @Tags 视频
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response{data=model.VideoLesson}
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/videos/{id} [get]
func (c *VideoController) GetVideo(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的视频ID")
		return
	}

	lesson, err := c.VideoService.Get(ctx.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, lesson)
}

// SetPublishedRequest 上架/下架
type SetPublishedRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// SetPublished godoc
// @Summary 上架/下架视频
// @Tags 视频
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                 true "视频ID"
// @Param   body body SetPublishedRequest true "上架状态"
// @Success 200 {object} util.Response{data=object}
// @Router /api/videos/{id}/published [put]
func (c *VideoController) SetPublished(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的视频ID")
		return
	}

	var req SetPublishedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.VideoService.SetPublished(uint(id), *req.Published); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"published": *req.Published})
}

// DeleteVideo godoc
// @Summary 删除视频
// @Tags 视频
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response{data=object}
// @Router /api/videos/{id} [delete]
func (c *VideoController) DeleteVideo(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的视频ID")
		return
	}
	if err := c.VideoService.Delete(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}
