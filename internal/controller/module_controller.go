package controller

import (
	"errors"

	"limit_backend/internal/model"
	"limit_backend/internal/service"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	Service   *service.ModuleService
	Lifecycle *service.LifecycleService
}

func NewModuleController(svc *service.ModuleService, lifecycle *service.LifecycleService) *ModuleController {
	return &ModuleController{Service: svc, Lifecycle: lifecycle}
}

// @Summary 创建模块
// @Tags 模块管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.Module true "模块"
// @Success 201 {object} util.Response
// @Router /api/admin/modules [post]
func (c *ModuleController) Create(ctx *gin.Context) {
	var m model.Module
	if err := ctx.ShouldBindJSON(&m); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m.ID = 0

	if err := c.Service.Create(&m); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, m)
}

// @Summary 管理端模块列表
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/modules [get]
func (c *ModuleController) List(ctx *gin.Context) {
	entries, err := c.Service.ManageList()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary 模块详情
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [get]
func (c *ModuleController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	m, err := c.Service.Get(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, m)
}

// @Summary 更新模块
// @Tags 模块管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Param body body model.Module true "模块"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [put]
func (c *ModuleController) Update(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	var m model.Module
	if err := ctx.ShouldBindJSON(&m); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m.ID = id

	if err := c.Service.Update(&m); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, m)
}

// @Summary 删除模块及其进度
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id} [delete]
func (c *ModuleController) Delete(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	if err := c.Service.Delete(id); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 锁定/解锁模块
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/lock [post]
func (c *ModuleController) ToggleLock(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	m, err := c.Service.ToggleLock(id)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// @Summary 重置模块进度
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/restart [post]
func (c *ModuleController) Restart(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	if err := c.Lifecycle.Restart(id); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 模块题目展开
// @Tags 模块管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/modules/{id}/questions [get]
func (c *ModuleController) Questions(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	qs, err := c.Service.ListQuestions(id)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}
