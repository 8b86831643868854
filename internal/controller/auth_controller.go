package controller

import (
	"eduquiz_backend/internal/service"
	"eduquiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Auth *service.AuthService
}

func NewAuthController(auth *service.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

// Register 用户注册
// @Summary 注册新用户
// @Tags auth
// @Accept json
// @Produce json
// @Router /api/v1/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctrl.Auth.Register(&in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Created(c, result)
}

// Login 用户登录
// @Summary 登录并签发 JWT
// @Tags auth
// @Accept json
// @Produce json
// @Router /api/v1/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	result, err := ctrl.Auth.Login(&in)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, result)
}

// Profile 当前用户信息
// @Summary 获取当前登录用户
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Router /api/v1/auth/profile [get]
func (ctrl *AuthController) Profile(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	user, err := ctrl.Auth.GetProfile(claims.UserID)
	if err != nil {
		util.BusinessError(c, err)
		return
	}
	util.Success(c, user)
}
