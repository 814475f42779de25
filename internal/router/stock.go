package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// preloadStock 将 DB 库存预热到 Redis，供货架展示高频读取。
// 该接口要求简单管理员 token，避免被任意调用重置缓存。
func preloadStock(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != d.Cfg.PreloadAdminToken {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "admin token 无效"})
			return
		}

		id, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
		if err != nil {
			badRequest(c, "商品ID无效")
			return
		}

		stock, err := d.Ledger.Preload(c.Request.Context(), uint(id))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		okMsg(c, "预热成功", gin.H{"stock": stock})
	}
}

// getStock 查询展示库存（缓存优先，未命中回源 DB）。
func getStock(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
		if err != nil {
			badRequest(c, "商品ID无效")
			return
		}

		stock, err := d.Ledger.CachedStock(c.Request.Context(), uint(id))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		ok(c, gin.H{"stock": stock})
	}
}
