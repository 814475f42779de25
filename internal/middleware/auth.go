package middleware

import (
	"log"
	"net/http"
	"strings"

	"farm_market/internal/auth"
	"farm_market/internal/model"
	"farm_market/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

const principalKey = "auth.principal"

// SessionAuth 解析 Bearer 令牌（或 fm_token Cookie），查 Redis 会话后
// 把 Principal 放进请求上下文。令牌缺失或过期一律 401，不区分原因。
func SessionAuth(rdb *rd.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthenticated(c)
			return
		}

		s, found, err := redis.GetSession(c.Request.Context(), rdb, token)
		if err != nil {
			log.Printf("[auth] session lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code": 500,
				"msg":  "会话服务暂不可用",
			})
			return
		}
		if !found {
			abortUnauthenticated(c)
			return
		}

		role, err := model.ToRole(s.Role)
		if err != nil {
			// 会话数据被篡改或版本不兼容，按未登录处理
			abortUnauthenticated(c)
			return
		}

		c.Set(principalKey, auth.Principal{
			ID:      model.CanonicalPartyID(s.UserID),
			Name:    s.Name,
			Email:   s.Email,
			Contact: s.Contact,
			Role:    role,
		})
		c.Next()
	}
}

// PrincipalFrom 取出 SessionAuth 放入的身份。只在挂了 SessionAuth 的
// 路由组里调用，取不到说明路由配置有误。
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if h != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(h, prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return ""
	}
	if cookie, err := c.Cookie("fm_token"); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": 401,
		"msg":  "请先登录",
	})
}
