package controller

import (
	"errors"
	"exam_prep_backend/internal/model"
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.UpdateProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Router /api/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	user, err := c.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, user)
}

// ListUsers godoc
// @Summary 用户列表
// @Description 管理端用户管理，支持角色过滤和关键字搜索
// @Tags 用户
// @Produce  json
// @Security BearerAuth
// @Param   role    query string false "角色过滤"
// @Param   keyword query string false "姓名或邮箱关键字"
// @Param   page    query int    false "页码"
// @Param   limit   query int    false "每页数量"
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	users, total, err := c.UserService.ListUsers(page, limit, ctx.Query("role"), ctx.Query("keyword"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"items": users, "total": total})
}

// SetDisabledRequest 启用/禁用账号
type SetDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// SetDisabled godoc
// @Summary 启用/禁用账号
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                true "用户ID"
// @Param   body body SetDisabledRequest true "禁用状态"
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/users/{id}/disabled [put]
func (c *UserController) SetDisabled(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	var req SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(uint(id), *req.Disabled); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"disabled": *req.Disabled})
}

// SetRoleRequest 调整用户角色
type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=student teacher admin"`
}

// SetRole godoc
// @Summary 调整用户角色
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int            true "用户ID"
// @Param   body body SetRoleRequest true "角色"
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/users/{id}/role [put]
func (c *UserController) SetRole(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	var req SetRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetRole(uint(id), model.UserRole(req.Role)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"role": req.Role})
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// ResetPassword godoc
// @Summary 重置用户密码
// @Tags 用户
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id   path int                  true "用户ID"
// @Param   body body ResetPasswordRequest true "新密码"
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/users/{id}/password [put]
func (c *UserController) ResetPassword(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.ResetPassword(uint(id), req.Password); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"reset": true})
}
