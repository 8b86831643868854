package controller

import (
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"
	"eduquiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Attempts *service.AttemptService
}

func NewAttemptController(attempts *service.AttemptService) *AttemptController {
	return &AttemptController{Attempts: attempts}
}

type answersPayload struct {
	Answers      []service.AnswerSubmission `json:"answers"`
	IsAutoSubmit bool                       `json:"isAutoSubmit"`
}

// StartAttempt 开始或恢复一次答题尝试
// @Summary 开始答题
// @Tags attempt
// @Produce json
// @Security BearerAuth
// @Router /api/v1/quizzes/{id}/attempts/start [post]
func (ctrl *AttemptController) StartAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	result, err := ctrl.Attempts.StartAttempt(claims.UserID, c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	if result.Resumed {
		util.Success(c, result)
		return
	}
	util.Created(c, result)
}

// SaveProgress 保存作答进度
// @Summary 保存进度
// @Tags attempt
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/attempts/{id}/progress [put]
func (ctrl *AttemptController) SaveProgress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var payload answersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	remaining, err := ctrl.Attempts.SaveProgress(claims.UserID, c.Param("id"), payload.Answers)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, gin.H{"timeRemaining": remaining})
}

// SubmitAttempt 提交答卷并自动判分
// @Summary 提交答卷
// @Tags attempt
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/attempts/{id}/submit [post]
func (ctrl *AttemptController) SubmitAttempt(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var payload answersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	view, err := ctrl.Attempts.Submit(claims.UserID, c.Param("id"),
		payload.Answers, payload.IsAutoSubmit)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	monitoring.AttemptSubmissions.WithLabelValues(string(view.Status)).Inc()
	util.Success(c, view)
}

// GetStatus 查询尝试状态与剩余时间
// @Summary 尝试状态
// @Tags attempt
// @Produce json
// @Security BearerAuth
// @Router /api/v1/attempts/{id}/status [get]
func (ctrl *AttemptController) GetStatus(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	status, err := ctrl.Attempts.GetStatus(claims.UserID, c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, status)
}

// GetResults 查询尝试结果（按角色投影可见性）
// @Summary 尝试结果
// @Tags attempt
// @Produce json
// @Security BearerAuth
// @Router /api/v1/attempts/{id}/results [get]
func (ctrl *AttemptController) GetResults(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	view, err := ctrl.Attempts.GetResults(claims.UserID, claims.Role, c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, view)
}

// ListMyAttempts 当前学生在某测验下的全部尝试
// @Summary 我的尝试列表
// @Tags attempt
// @Produce json
// @Security BearerAuth
// @Router /api/v1/quizzes/{id}/attempts/mine [get]
func (ctrl *AttemptController) ListMyAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attempts, err := ctrl.Attempts.ListStudentAttempts(claims.UserID, c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempts)
}
