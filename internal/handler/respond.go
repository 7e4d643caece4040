// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"casinha-go/internal/model"
	"casinha-go/internal/service"

	"github.com/gin-gonic/gin"
)

// respondOK 按统一结构返回成功响应。
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    data,
	})
}

// respondError 将 service 层的哨兵错误映射为 HTTP 状态码。
// NotFound->404, Conflict->409, Forbidden->403, Validation->400, 其余 500。
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
	})
}

// respondBadRequest 用于请求体绑定失败的场景。
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": message,
	})
}

// mustUser 取出 AuthMiddleware 注入的当前用户。
func mustUser(c *gin.Context) *model.User {
	value, exists := c.Get("user")
	if !exists {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}
