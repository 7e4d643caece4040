package middleware

import (
	"net/http"

	"casinha-go/internal/model"

	"github.com/gin-gonic/gin"
)

// currentUser 从上下文取出 AuthMiddleware 注入的 User 对象。
func currentUser(c *gin.Context) (*model.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法获取用户信息"})
		return nil, false
	}
	user, ok := value.(*model.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "用户数据类型错误"})
		return nil, false
	}
	return user, true
}

// DirectorAuthMiddleware 检查用户是否具有董事权限（DIRECTOR 或 ADMIN）。
// 此中间件必须在 AuthMiddleware 之后使用。
func DirectorAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		if !user.IsDirector() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "权限不足，需要董事权限"})
			return
		}
		c.Next()
	}
}

// AdminAuthMiddleware 检查用户是否具有管理员权限。
// 此中间件必须在 AuthMiddleware 之后使用。
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		if user.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "权限不足，需要管理员权限"})
			return
		}
		c.Next()
	}
}
