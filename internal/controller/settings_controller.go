package controller

import (
	"limit_backend/internal/service"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SettingsController struct {
	Service *service.SettingsService
}

func NewSettingsController(svc *service.SettingsService) *SettingsController {
	return &SettingsController{Service: svc}
}

// @Summary 读取主题
// @Tags 设置
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/theme [get]
func (c *SettingsController) GetTheme(ctx *gin.Context) {
	theme, err := c.Service.Theme()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"theme": theme})
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

// @Summary 更新主题
// @Tags 设置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body themeRequest true "主题"
// @Success 200 {object} util.Response
// @Router /api/admin/theme [put]
func (c *SettingsController) SetTheme(ctx *gin.Context) {
	var req themeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.Service.SetTheme(req.Theme); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"theme": req.Theme})
}
