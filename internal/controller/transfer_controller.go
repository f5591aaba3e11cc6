package controller

import (
	"errors"
	"io"

	"limit_backend/internal/service"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TransferController struct {
	Service *service.TransferService
}

func NewTransferController(svc *service.TransferService) *TransferController {
	return &TransferController{Service: svc}
}

// @Summary 全量导出
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ExportDocument
// @Router /api/admin/export [get]
func (c *TransferController) ExportAll(ctx *gin.Context) {
	doc, err := c.Service.ExportAll(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="limit_export.json"`)
	ctx.JSON(200, doc)
}

// @Summary 单模块导出
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/export/modules/{id} [get]
func (c *TransferController) ExportModule(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	m, err := c.Service.ExportModule(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	ctx.JSON(200, m)
}

// @Summary 单题导出
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/export/questions/{id} [get]
func (c *TransferController) ExportQuestion(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	q, err := c.Service.ExportQuestion(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	ctx.JSON(200, q)
}

// @Summary 全量导入
// @Tags 导入导出
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/import [post]
func (c *TransferController) ImportAll(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	report, err := c.Service.ImportAll(ctx.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, util.ErrImportFormat) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 备份到存储后端
// @Tags 导入导出
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/admin/backup [post]
func (c *TransferController) Backup(ctx *gin.Context) {
	url, err := c.Service.Backup(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
