package app

import (
	"eduquiz_backend/internal/middleware"
	"eduquiz_backend/internal/model"
	"eduquiz_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Health)

	// 1. 公共路由（无需登录）
	public := router.Group("/api/v1")
	{
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api/v1")
	authGroup.Use(middleware.AuthMiddleware(a.Store), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/auth/profile", c.auth.Profile)

		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/quizzes", c.quiz.ListPublished)
	group.POST("/quizzes/:id/attempts/start", c.attempt.StartAttempt)
	group.GET("/quizzes/:id/attempts/mine", c.attempt.ListMyAttempts)

	attempts := group.Group("/attempts")
	{
		attempts.PUT("/:id/progress", c.attempt.SaveProgress)
		attempts.POST("/:id/submit", c.attempt.SubmitAttempt)
		attempts.GET("/:id/status", c.attempt.GetStatus)
		attempts.GET("/:id/results", c.attempt.GetResults)
	}
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/quizzes", c.quiz.CreateQuiz)
		teacher.GET("/quizzes", c.quiz.ListQuizzes)
		teacher.GET("/quizzes/:id", c.quiz.GetQuiz)
		teacher.PUT("/quizzes/:id", c.quiz.UpdateQuiz)
		teacher.DELETE("/quizzes/:id", c.quiz.DeleteQuiz)
		teacher.POST("/quizzes/:id/publish", c.quiz.PublishQuiz)
		teacher.POST("/quizzes/:id/close", c.quiz.CloseQuiz)

		teacher.POST("/quizzes/:id/questions", c.quiz.AddQuestion)
		teacher.PUT("/quizzes/:id/questions/:questionId", c.quiz.UpdateQuestion)
		teacher.DELETE("/quizzes/:id/questions/:questionId", c.quiz.DeleteQuestion)

		teacher.GET("/quizzes/:id/attempts", c.quiz.ListQuizAttempts)
		teacher.GET("/quizzes/:id/pending-grading", c.grading.ListPendingGrading)

		teacher.POST("/attempts/:id/grade-answer", c.grading.GradeAnswer)
		teacher.POST("/attempts/:id/grade", c.grading.GradeOverall)
		teacher.POST("/attempts/:id/regrade", c.grading.Regrade)
	}
}
