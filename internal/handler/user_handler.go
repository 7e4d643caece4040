package handler

import (
	"casinha-go/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 负责处理用户资料与个人积分相关的 API 请求。
type UserHandler struct {
	userService   service.UserService
	pointsService service.PointsService
}

// NewUserHandler 创建一个新的 UserHandler 实例。
func NewUserHandler(userService service.UserService, pointsService service.PointsService) *UserHandler {
	return &UserHandler{userService: userService, pointsService: pointsService}
}

// GetProfile 返回当前登录用户的资料。
func (h *UserHandler) GetProfile(c *gin.Context) {
	user := mustUser(c)
	respondOK(c, user)
}

// UpdateProfile 更新当前登录用户的资料。
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "无效的请求负载")
		return
	}

	user := mustUser(c)
	updated, err := h.userService.UpdateProfile(user.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, updated)
}

// GetMyPoints 返回当前登录用户的积分聚合与台账历史。
func (h *UserHandler) GetMyPoints(c *gin.Context) {
	user := mustUser(c)
	points, tags, err := h.pointsService.UserPoints(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"totalPoints": points.TotalPoints,
		"tags":        tags,
	})
}
