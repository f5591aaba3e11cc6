package controller

import (
	"errors"
	"net/http"

	"limit_backend/internal/service"
	"limit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Sessions  *service.SessionService
	Lifecycle *service.LifecycleService
}

func NewSessionController(sessions *service.SessionService, lifecycle *service.LifecycleService) *SessionController {
	return &SessionController{Sessions: sessions, Lifecycle: lifecycle}
}

// @Summary 首页模块列表
// @Tags 答题
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/home [get]
func (c *SessionController) Home(ctx *gin.Context) {
	cards, err := c.Lifecycle.HomeList()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// @Summary 开始答题会话
// @Tags 答题
// @Produce json
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{id}/session [post]
func (c *SessionController) Start(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	step, err := c.Sessions.Start(id)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, step)
}

// @Summary 取下一题
// @Tags 答题
// @Produce json
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sid}/next [get]
func (c *SessionController) Next(ctx *gin.Context) {
	step, err := c.Sessions.NextQuestion(ctx.Param("sid"))
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, step)
}

// @Summary 提交答案
// @Tags 答题
// @Accept json
// @Produce json
// @Param sid path string true "会话ID"
// @Param body body service.AnswerInput true "答案"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sid}/answer [post]
func (c *SessionController) Answer(ctx *gin.Context) {
	var input service.AnswerInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.Sessions.SubmitAnswer(ctx.Param("sid"), input)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 退出会话
// @Tags 答题
// @Produce json
// @Param sid path string true "会话ID"
// @Success 200 {object} util.Response
// @Router /api/sessions/{sid}/exit [post]
func (c *SessionController) Exit(ctx *gin.Context) {
	if err := c.Sessions.Exit(ctx.Param("sid")); err != nil {
		writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 查看考试成绩
// @Tags 答题
// @Produce json
// @Param id path int true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/modules/{id}/scores [get]
func (c *SessionController) ViewScores(ctx *gin.Context) {
	id, ok := paramID(ctx)
	if !ok {
		return
	}
	view, err := c.Lifecycle.ViewScores(id)
	if err != nil {
		writeSessionError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// writeSessionError 会话相关的业务错误映射到 HTTP 语义
func writeSessionError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrModuleNotFound),
		errors.Is(err, util.ErrQuestionNotFound),
		errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrEmptyAnswer):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrExamNotYetOpen),
		errors.Is(err, util.ErrExamEnded),
		errors.Is(err, util.ErrExamAlreadyCompleted),
		errors.Is(err, util.ErrScoresNotAvailable):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrReviewWindowExpired):
		util.Error(ctx, http.StatusGone, err.Error())
	case errors.Is(err, util.ErrExamNoQuestions):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
