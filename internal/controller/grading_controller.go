package controller

import (
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradingController struct {
	Grading *service.GradingService
}

func NewGradingController(grading *service.GradingService) *GradingController {
	return &GradingController{Grading: grading}
}

type gradeAnswerPayload struct {
	QuestionID    string `json:"questionId" binding:"required"`
	PointsAwarded int    `json:"pointsAwarded"`
	Feedback      string `json:"feedback"`
}

type gradeOverallPayload struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// GradeAnswer 人工评定单题
// @Summary 单题评分
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/attempts/{id}/grade-answer [post]
func (ctrl *GradingController) GradeAnswer(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var payload gradeAnswerPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	attempt, err := ctrl.Grading.GradeAnswer(claims.UserID, c.Param("id"),
		payload.QuestionID, payload.PointsAwarded, payload.Feedback)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempt)
}

// GradeOverall 整卷人工给分
// @Summary 整卷评分
// @Tags grading
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/attempts/{id}/grade [post]
func (ctrl *GradingController) GradeOverall(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var payload gradeOverallPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	attempt, err := ctrl.Grading.GradeOverall(claims.UserID, c.Param("id"),
		payload.Score, payload.Feedback)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempt)
}

// Regrade 按当前题目定义重判（丢弃整卷人工分）
// @Summary 重新判分
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/attempts/{id}/regrade [post]
func (ctrl *GradingController) Regrade(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attempt, err := ctrl.Grading.Regrade(claims.UserID, c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempt)
}

// ListPendingGrading 待人工评分的尝试
// @Summary 待评分列表
// @Tags grading
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/pending-grading [get]
func (ctrl *GradingController) ListPendingGrading(c *gin.Context) {
	attempts, err := ctrl.Grading.ListPendingGrading(c.Param("id"))
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempts)
}
