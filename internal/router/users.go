package router

import (
	"errors"
	"net/http"
	"strings"

	"farm_market/internal/directory"
	"farm_market/internal/fault"
	rediskey "farm_market/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// registerUser 注册农户/客户账号。
func registerUser(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Role     string `json:"role" binding:"required"`
			Name     string `json:"name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=6"`
			Contact  string `json:"contact"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := d.Dir.Register(c.Request.Context(), directory.RegisterInput{
			Role:     req.Role,
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Contact:  req.Contact,
		})
		if err != nil {
			if errors.Is(err, directory.ErrEmailTaken) {
				badRequest(c, "该邮箱已注册")
				return
			}
			if errors.Is(err, fault.ErrTransient) {
				writeServiceError(c, err)
				return
			}
			badRequest(c, err.Error())
			return
		}
		okMsg(c, "注册成功", u)
	}
}

// loginUser 登录并签发会话令牌（Redis 内保存身份，TTL 见配置）。
func loginUser(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := d.Dir.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			// 不区分“用户不存在”与“密码错误”，避免探测注册邮箱
			if errors.Is(err, fault.ErrNotFound) || errors.Is(err, directory.ErrBadCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "邮箱或密码错误"})
				return
			}
			writeServiceError(c, err)
			return
		}

		token := uuid.NewString()
		err = rediskey.PutSession(c.Request.Context(), d.RDB, rediskey.Session{
			Token:   token,
			UserID:  u.ID,
			Name:    u.Name,
			Email:   u.Email,
			Contact: u.Contact,
			Role:    string(u.Role),
		}, d.Cfg.SessionTTL)
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}

		ok(c, gin.H{
			"token": token,
			"user":  u,
		})
	}
}

// logoutUser 注销会话。令牌无效时也返回成功，注销是幂等操作。
func logoutUser(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := logoutToken(c)
		if token != "" {
			if err := rediskey.DeleteSession(c.Request.Context(), d.RDB, token); err != nil {
				writeServiceError(c, fault.AsTransient(err))
				return
			}
		}
		okMsg(c, "已退出登录", nil)
	}
}

func logoutToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	if cookie, err := c.Cookie("fm_token"); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
