package controller

import (
	"strconv"

	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Quizzes *service.QuizService
}

func NewQuizController(quizzes *service.QuizService) *QuizController {
	return &QuizController{Quizzes: quizzes}
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, limit
}

// CreateQuiz 创建测验（可随卷附题）
// @Summary 创建测验
// @Tags quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes [post]
func (ctrl *QuizController) CreateQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var in service.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	quiz, err := ctrl.Quizzes.CreateQuiz(claims.UserID, &in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Created(c, quiz)
}

// ListQuizzes 列出当前教师的测验
// @Summary 测验列表
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes [get]
func (ctrl *QuizController) ListQuizzes(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	page, limit := pagination(c)
	rows, total, err := ctrl.Quizzes.ListByCreator(claims.UserID, page, limit)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, gin.H{"items": rows, "total": total, "page": page, "limit": limit})
}

// ListPublished 学生可见的已发布测验
// @Summary 已发布测验列表
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/quizzes [get]
func (ctrl *QuizController) ListPublished(c *gin.Context) {
	page, limit := pagination(c)
	quizzes, total, err := ctrl.Quizzes.ListPublished(page, limit)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, gin.H{"items": quizzes, "total": total, "page": page, "limit": limit})
}

// GetQuiz 测验详情
// @Summary 测验详情（含题目）
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id} [get]
func (ctrl *QuizController) GetQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	detail, err := ctrl.Quizzes.GetQuiz(c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, detail)
}

// UpdateQuiz 更新测验配置
// @Summary 更新测验
// @Tags quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id} [put]
func (ctrl *QuizController) UpdateQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var in service.QuizInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	quiz, err := ctrl.Quizzes.UpdateQuiz(c.Param("id"), claims.UserID, claims.Role, &in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, quiz)
}

// DeleteQuiz 删除测验（软删，历史尝试保留）
// @Summary 删除测验
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id} [delete]
func (ctrl *QuizController) DeleteQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if err := ctrl.Quizzes.DeleteQuiz(c.Param("id"), claims.UserID, claims.Role); err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, nil)
}

// AddQuestion 添加题目
// @Summary 添加题目
// @Tags quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/questions [post]
func (ctrl *QuizController) AddQuestion(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var in service.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	q, err := ctrl.Quizzes.AddQuestion(c.Param("id"), claims.UserID, claims.Role, &in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Created(c, q)
}

// UpdateQuestion 更新题目
// @Summary 更新题目
// @Tags quiz
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/questions/{questionId} [put]
func (ctrl *QuizController) UpdateQuestion(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	var in service.QuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	q, err := ctrl.Quizzes.UpdateQuestion(c.Param("id"), c.Param("questionId"),
		claims.UserID, claims.Role, &in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, q)
}

// DeleteQuestion 删除题目
// @Summary 删除题目
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/questions/{questionId} [delete]
func (ctrl *QuizController) DeleteQuestion(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if err := ctrl.Quizzes.DeleteQuestion(c.Param("id"), c.Param("questionId"),
		claims.UserID, claims.Role); err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, nil)
}

// PublishQuiz 发布测验，固定 maxScore
// @Summary 发布测验
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/publish [post]
func (ctrl *QuizController) PublishQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	quiz, err := ctrl.Quizzes.Publish(c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, quiz)
}

// CloseQuiz 关闭测验
// @Summary 关闭测验
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/close [post]
func (ctrl *QuizController) CloseQuiz(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	quiz, err := ctrl.Quizzes.Close(c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, quiz)
}

// ListQuizAttempts 某测验的全部尝试（教师）
// @Summary 测验尝试列表
// @Tags quiz
// @Produce json
// @Security BearerAuth
// @Router /api/v1/teacher/quizzes/{id}/attempts [get]
func (ctrl *QuizController) ListQuizAttempts(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	attempts, err := ctrl.Quizzes.ListQuizAttempts(c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, attempts)
}
