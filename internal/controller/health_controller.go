package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthController struct {
	DB *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{DB: db}
}

// Health 健康检查（含数据库连通性）
// @Summary 健康检查
// @Tags health
// @Produce json
// @Router /health [get]
func (ctrl *HealthController) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	sqlDB, err := ctrl.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
