package controller

import (
	"exam_prep_backend/internal/service"
	"exam_prep_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	DashboardService *service.DashboardService
}

func NewDashboardController(dashboardService *service.DashboardService) *DashboardController {
	return &DashboardController{DashboardService: dashboardService}
}

// GetStats godoc
// @Summary 个人学习看板
// @Description 答题量、正确率、分科目统计和最近测验
// @Tags 看板
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DashboardStats}
// @Router /api/dashboard [get]
func (c *DashboardController) GetStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	stats, err := c.DashboardService.GetStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}
