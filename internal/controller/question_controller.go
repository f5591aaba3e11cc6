package controller

import (
	"errors"
	"strconv"

	"limit_backend/internal/model"
	"limit_backend/internal/service"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	Service *service.QuestionService
}

func NewQuestionController(svc *service.QuestionService) *QuestionController {
	return &QuestionController{Service: svc}
}

// @Summary 创建题目
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.Question true "题目"
// @Success 201 {object} util.Response
// @Router /api/admin/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var q model.Question
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q.ID = 0

	if err := c.Service.Create(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, q)
}

// @Summary 题目列表，支持标签/题干检索
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param q query string false "检索词"
// @Success 200 {object} util.Response
// @Router /api/admin/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	qs, err := c.Service.Search(ctx.Query("q"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// @Summary 题目详情
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{id} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	q, err := c.Service.Get(id)
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, q)
}

// @Summary 更新题目
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Param body body model.Question true "题目"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{id} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	var q model.Question
	if err := ctx.ShouldBindJSON(&q); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q.ID = id

	if err := c.Service.Update(&q); err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{id} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	if err := c.Service.Delete(id); err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func paramID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid id")
		return 0, false
	}
	return uint(id), true
}
