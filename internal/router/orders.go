package router

import (
	"strconv"
	"strings"
	"time"

	"farm_market/internal/fault"
	"farm_market/internal/middleware"
	"farm_market/internal/model"
	"farm_market/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// placeOrder 客户下单入口（限流见路由注册处）。
func placeOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}

		var req struct {
			ProductID       uint             `json:"product_id" binding:"required,min=1"`
			Quantity        int64            `json:"quantity" binding:"required,min=1"`
			DeliveryAddress string           `json:"delivery_address" binding:"required"`
			Notes           string           `json:"notes"`
			PaymentMethod   string           `json:"payment_method"`
			NegotiatedPrice *decimal.Decimal `json:"negotiated_price"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		res, err := d.Orders.PlaceOrder(c.Request.Context(), p, order.PlaceOrderInput{
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			DeliveryAddress: req.DeliveryAddress,
			Notes:           req.Notes,
			PaymentMethod:   req.PaymentMethod,
			NegotiatedPrice: req.NegotiatedPrice,
		})
		if err != nil {
			writeServiceError(c, err)
			return
		}
		okMsg(c, "下单成功", res)
	}
}

// listOrders 当前身份名下订单，支持状态与日期区间筛选、分页。
func listOrders(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}

		f := order.ListFilter{
			Page:     1,
			PageSize: defaultPageSize,
		}

		if s := strings.TrimSpace(c.Query("status")); s != "" {
			status, err := model.ToOrderStatus(s)
			if err != nil {
				badRequest(c, "无效的订单状态")
				return
			}
			f.Status = &status
		}
		if s := strings.TrimSpace(c.Query("date_from")); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				badRequest(c, "date_from 格式错误，请用 YYYY-MM-DD")
				return
			}
			f.DateFrom = &t
		}
		if s := strings.TrimSpace(c.Query("date_to")); s != "" {
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				badRequest(c, "date_to 格式错误，请用 YYYY-MM-DD")
				return
			}
			f.DateTo = &t
		}
		if s := strings.TrimSpace(c.Query("page")); s != "" {
			page, err := strconv.Atoi(s)
			if err != nil || page < 1 {
				badRequest(c, "page 必须是正整数")
				return
			}
			f.Page = page
		}
		if s := strings.TrimSpace(c.Query("page_size")); s != "" {
			size, err := strconv.Atoi(s)
			if err != nil || size < 1 || size > maxPageSize {
				badRequest(c, "page_size 范围为 1-50")
				return
			}
			f.PageSize = size
		}

		res, err := d.Orders.ListOrders(c.Request.Context(), p, f)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		ok(c, res)
	}
}

// getOrder 订单详情（含跟踪记录），仅订单双方可见。
func getOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
		if err != nil {
			badRequest(c, "订单ID无效")
			return
		}

		detail, err := d.Orders.GetOrder(c.Request.Context(), p, uint(orderID))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		ok(c, detail)
	}
}

// cancelOrder 取消订单（pending/confirmed），成功后台账回补库存。
func cancelOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
		if err != nil {
			badRequest(c, "订单ID无效")
			return
		}

		if err := d.Orders.CancelOrder(c.Request.Context(), p, uint(orderID)); err != nil {
			writeServiceError(c, err)
			return
		}
		okMsg(c, "订单已取消", nil)
	}
}

// updateOrderStatus 农户推进订单状态，可附带一条跟踪说明。
func updateOrderStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, found := middleware.PrincipalFrom(c)
		if !found {
			writeServiceError(c, fault.ErrUnauthenticated)
			return
		}
		orderID, err := strconv.ParseUint(c.Param("order_id"), 10, 32)
		if err != nil {
			badRequest(c, "订单ID无效")
			return
		}

		var req struct {
			Status  string `json:"status" binding:"required"`
			Message string `json:"message"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		status, err := model.ToOrderStatus(req.Status)
		if err != nil {
			badRequest(c, "无效的订单状态")
			return
		}

		if err := d.Orders.UpdateStatus(c.Request.Context(), p, uint(orderID), status, req.Message); err != nil {
			writeServiceError(c, err)
			return
		}
		okMsg(c, "状态已更新", gin.H{"status": status})
	}
}
