// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dumeirei/weekly-report-backend/internal/common/jwt"
	"github.com/dumeirei/weekly-report-backend/internal/common/response"
)

// 上下文键
const (
	ContextKeyOperatorID = "operator_id"
	ContextKeyClaims     = "claims"
)

// OperatorAuth 运营人员认证中间件
// 只接受 Authorization: Bearer 头，访问日志会记录查询串，因此不读取 ?token=
func OperatorAuth(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseToken(token)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			response.Unauthorized(c, "token expired")
			c.Abort()
			return
		case err != nil:
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set(ContextKeyOperatorID, claims.OperatorID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetOperatorID 从上下文获取运营人员 ID，未认证时返回 0
func GetOperatorID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyOperatorID)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	if claims, ok := c.Get(ContextKeyClaims); ok {
		return claims.(*jwt.Claims)
	}
	return nil
}
