package router

import (
	"errors"
	"log"
	"net/http"

	"farm_market/internal/config"
	"farm_market/internal/directory"
	"farm_market/internal/fault"
	"farm_market/internal/inventory"
	"farm_market/internal/middleware"
	"farm_market/internal/order"
	"farm_market/internal/stats"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps 路由层依赖。handler 只做绑定、身份提取和错误翻译，
// 业务规则全部在核心组件内。
type Deps struct {
	DB     *gorm.DB
	RDB    *rd.Client
	Orders *order.Service
	Dir    *directory.Service
	Ledger *inventory.Ledger
	Stats  *stats.Aggregator
	Cfg    config.AppConfig
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Users
	r.POST("/api/users/register", registerUser(d))
	r.POST("/api/users/login", loginUser(d))
	r.POST("/api/users/logout", logoutUser(d))

	// Catalog（公开读）
	r.GET("/api/products", browseProducts(d))
	r.GET("/api/products/search", searchProducts(d))
	r.GET("/api/products/suggestions", productSuggestions(d))

	// Stock
	r.POST("/api/stock/preload/:product_id", preloadStock(d))
	r.GET("/api/stock/:product_id", getStock(d))

	// 登录后可用
	authed := r.Group("/", middleware.SessionAuth(d.RDB))

	// Product management（农户）
	authed.POST("/api/products", createProduct(d))
	authed.GET("/api/products/mine", listMyProducts(d))
	authed.POST("/api/products/:product_id/toggle", toggleProduct(d))
	authed.DELETE("/api/products/:product_id", deleteProduct(d))

	// Orders
	authed.POST("/api/orders",
		middleware.RedisRateLimit(d.RDB, d.Cfg.OrderRateLimit, d.Cfg.OrderRateWindow),
		placeOrder(d))
	authed.GET("/api/orders", listOrders(d))
	authed.GET("/api/orders/:order_id", getOrder(d))
	authed.POST("/api/orders/:order_id/cancel", cancelOrder(d))
	authed.POST("/api/orders/:order_id/status", updateOrderStatus(d))

	// Dashboards
	authed.GET("/api/dashboard/farmer", farmerDashboard(d))
	authed.GET("/api/dashboard/client", clientDashboard(d))
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

func okMsg(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": msg, "data": data})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": msg})
}

// writeServiceError 把核心组件的错误分类翻译为 HTTP 状态码。
// 4xx 透出具体原因（错误文案即用户提示），5xx 统一为可重试的泛化提示。
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "记录不存在"})
	case errors.Is(err, fault.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "请先登录"})
	case errors.Is(err, fault.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "无权执行该操作"})
	case errors.Is(err, fault.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"code": 409, "msg": "操作冲突，请重试"})
	case errors.Is(err, fault.ErrUnavailable),
		errors.Is(err, fault.ErrInsufficientStock),
		errors.Is(err, fault.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": userMessage(err)})
	case errors.Is(err, fault.ErrTransient):
		log.Printf("[http] transient failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "服务暂时不可用，请稍后重试"})
	default:
		log.Printf("[http] internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "服务内部错误"})
	}
}

// userMessage 提取可直接展示的错误文案。
// 库存不足错误自带 “only N <unit> available”，优先透出。
func userMessage(err error) string {
	var insufficient *fault.InsufficientStockError
	if errors.As(err, &insufficient) {
		return insufficient.Error()
	}
	if errors.Is(err, fault.ErrUnavailable) {
		return "商品已下架"
	}
	if errors.Is(err, fault.ErrInvalidTransition) {
		return "订单当前状态不允许该操作"
	}
	return err.Error()
}
