package router

import (
	"net/http"

	"farm_market/internal/fault"
	"farm_market/internal/middleware"
	"farm_market/internal/model"
	"farm_market/internal/order"

	"github.com/gin-gonic/gin"
)

const (
	recentOrdersLimit     = 5
	featuredProductsLimit = 8
)

// farmerDashboard 农户面板：销售统计 + 商品盘点 + 最近订单。
func farmerDashboard(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		if !p.IsFarmer() {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅农户可以访问农户面板"})
			return
		}

		st, err := d.Stats.GetStatistics(c.Request.Context(), p.ID, model.RoleFarmer)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		recent, err := d.Orders.ListOrders(c.Request.Context(), p, order.ListFilter{
			Page:     1,
			PageSize: recentOrdersLimit,
		})
		if err != nil {
			writeServiceError(c, err)
			return
		}

		ok(c, gin.H{
			"statistics":    st,
			"recent_orders": recent.Items,
		})
	}
}

// clientDashboard 客户面板：消费统计 + 最近订单 + 推荐货架。
func clientDashboard(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		if !p.IsClient() {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅客户可以访问客户面板"})
			return
		}

		st, err := d.Stats.GetStatistics(c.Request.Context(), p.ID, model.RoleClient)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		recent, err := d.Orders.ListOrders(c.Request.Context(), p, order.ListFilter{
			Page:     1,
			PageSize: recentOrdersLimit,
		})
		if err != nil {
			writeServiceError(c, err)
			return
		}

		// 推荐货架：最新上架的可售商品
		var featured []model.Product
		err = d.DB.WithContext(c.Request.Context()).
			Where("is_available = ?", true).
			Order("created_at DESC").
			Limit(featuredProductsLimit).
			Find(&featured).Error
		if err != nil {
			writeServiceError(c, fault.AsTransient(err))
			return
		}

		ok(c, gin.H{
			"statistics":        st,
			"recent_orders":     recent.Items,
			"featured_products": featured,
		})
	}
}
