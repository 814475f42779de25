package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"farm_market/internal/fault"
	"farm_market/internal/model"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 月度曲线固定窗口：最近 6 个自然月分桶，最新在前。
const monthlyWindow = 6

// topProductsLimit 营收榜单长度。
const topProductsLimit = 5

// Aggregator 只读统计组件：给定参与方 id 和角色，从订单/商品集合
// 汇总面板数据。不加锁、不写库；与并发写者最终一致即可，
// 零订单返回零值结构而不是报错。
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{db: db}
}

type StatusCounts struct {
	// PendingLike 将 pending 与 confirmed 归并计数（面板口径）
	PendingLike int `json:"pending_like"`
	InTransit   int `json:"in_transit"`
	Delivered   int `json:"delivered"`
	Cancelled   int `json:"cancelled"`
}

type TopProduct struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
	OrderCount  int             `json:"order_count"`
}

type OrderCategoryStat struct {
	Category   model.Category  `json:"category"`
	OrderCount int             `json:"order_count"`
	Amount     decimal.Decimal `json:"amount"`
}

type MonthlyBucket struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Amount     decimal.Decimal `json:"amount"`
	OrderCount int             `json:"order_count"`
}

// ProductStatistics 农户商品侧汇总。
type ProductStatistics struct {
	TotalProducts     int             `json:"total_products"`
	AvailableProducts int             `json:"available_products"`
	OrganicProducts   int             `json:"organic_products"`
	TotalQuantity     int64           `json:"total_quantity"`
	AveragePrice      decimal.Decimal `json:"average_price"`

	Categories []ProductCategoryStat `json:"categories"`
}

type ProductCategoryStat struct {
	Category      model.Category  `json:"category"`
	Count         int             `json:"count"`
	TotalQuantity int64           `json:"total_quantity"`
	AveragePrice  decimal.Decimal `json:"average_price"`
}

// PartyStatistics 面板数据：TotalAmount 对农户是营收、对买家是支出。
type PartyStatistics struct {
	TotalOrders       int             `json:"total_orders"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`

	Status            StatusCounts        `json:"status_counts"`
	TopProducts       []TopProduct        `json:"top_products"`
	CategoryBreakdown []OrderCategoryStat `json:"category_breakdown"`
	Monthly           []MonthlyBucket     `json:"monthly"`

	// Products 仅农户角色填充
	Products *ProductStatistics `json:"products,omitempty"`
}

// GetStatistics 一次扫描该参与方的全部订单后在内存内汇总。
// 参与方 id 兼容两种历史存储形态（IN 双形态匹配，单条记录只会命中一种）。
func (a *Aggregator) GetStatistics(ctx context.Context, party model.PartyID, role model.Role) (PartyStatistics, error) {
	canonical := model.CanonicalPartyID(party.String())

	column := "buyer_id"
	if role == model.RoleFarmer {
		column = "farmer_id"
	}

	var orders []model.Order
	err := a.db.WithContext(ctx).Model(&model.Order{}).
		Select("id", "product_id", "product_name", "product_category", "quantity", "total_amount", "status", "created_at").
		Where(column+" IN ?", canonical.Forms()).
		Find(&orders).Error
	if err != nil {
		return PartyStatistics{}, fault.AsTransient(fmt.Errorf("db.Find orders: %w", err))
	}

	out := PartyStatistics{
		TotalOrders:       len(orders),
		TotalAmount:       decimal.Zero,
		AverageOrderValue: decimal.Zero,
		TopProducts:       []TopProduct{},
		CategoryBreakdown: []OrderCategoryStat{},
		Monthly:           []MonthlyBucket{},
	}

	for _, o := range orders {
		out.TotalAmount = out.TotalAmount.Add(o.TotalAmount)
		switch o.Status {
		case model.OrderStatusPending, model.OrderStatusConfirmed:
			out.Status.PendingLike++
		case model.OrderStatusInTransit:
			out.Status.InTransit++
		case model.OrderStatusDelivered:
			out.Status.Delivered++
		case model.OrderStatusCancelled:
			out.Status.Cancelled++
		}
	}
	if len(orders) > 0 {
		out.AverageOrderValue = out.TotalAmount.DivRound(decimal.NewFromInt(int64(len(orders))), 2)
	}

	out.TopProducts = topProducts(orders)
	out.CategoryBreakdown = categoryBreakdown(orders)
	out.Monthly = monthlyBuckets(orders)

	if role == model.RoleFarmer {
		ps, err := a.productStatistics(ctx, canonical)
		if err != nil {
			return PartyStatistics{}, err
		}
		out.Products = &ps
	}

	return out, nil
}

func topProducts(orders []model.Order) []TopProduct {
	groups := lo.GroupBy(orders, func(o model.Order) uint { return o.ProductID })

	tops := make([]TopProduct, 0, len(groups))
	for productID, group := range groups {
		tp := TopProduct{
			ProductID:   productID,
			ProductName: group[0].ProductName,
			Revenue:     decimal.Zero,
			OrderCount:  len(group),
		}
		for _, o := range group {
			tp.UnitsSold += o.Quantity
			tp.Revenue = tp.Revenue.Add(o.TotalAmount)
		}
		tops = append(tops, tp)
	}

	sort.Slice(tops, func(i, j int) bool {
		if c := tops[i].Revenue.Cmp(tops[j].Revenue); c != 0 {
			return c > 0
		}
		return tops[i].ProductID < tops[j].ProductID
	})
	if len(tops) > topProductsLimit {
		tops = tops[:topProductsLimit]
	}
	return tops
}

func categoryBreakdown(orders []model.Order) []OrderCategoryStat {
	groups := lo.GroupBy(orders, func(o model.Order) model.Category { return o.ProductCategory })

	stats := make([]OrderCategoryStat, 0, len(groups))
	for category, group := range groups {
		cs := OrderCategoryStat{Category: category, OrderCount: len(group), Amount: decimal.Zero}
		for _, o := range group {
			cs.Amount = cs.Amount.Add(o.TotalAmount)
		}
		stats = append(stats, cs)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].OrderCount != stats[j].OrderCount {
			return stats[i].OrderCount > stats[j].OrderCount
		}
		return stats[i].Category < stats[j].Category
	})
	return stats
}

// monthlyBuckets 已送达订单按下单时间的自然年月分桶，最新在前，最多 6 桶。
func monthlyBuckets(orders []model.Order) []MonthlyBucket {
	delivered := lo.Filter(orders, func(o model.Order, _ int) bool {
		return o.Status == model.OrderStatusDelivered
	})

	type yearMonth struct {
		Year  int
		Month time.Month
	}
	groups := lo.GroupBy(delivered, func(o model.Order) yearMonth {
		return yearMonth{Year: o.CreatedAt.Year(), Month: o.CreatedAt.Month()}
	})

	buckets := make([]MonthlyBucket, 0, len(groups))
	for ym, group := range groups {
		b := MonthlyBucket{Year: ym.Year, Month: ym.Month, Amount: decimal.Zero, OrderCount: len(group)}
		for _, o := range group {
			b.Amount = b.Amount.Add(o.TotalAmount)
		}
		buckets = append(buckets, b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Year != buckets[j].Year {
			return buckets[i].Year > buckets[j].Year
		}
		return buckets[i].Month > buckets[j].Month
	})
	if len(buckets) > monthlyWindow {
		buckets = buckets[:monthlyWindow]
	}
	return buckets
}

func (a *Aggregator) productStatistics(ctx context.Context, farmer model.PartyID) (ProductStatistics, error) {
	var products []model.Product
	err := a.db.WithContext(ctx).Model(&model.Product{}).
		Select("id", "category", "price", "quantity", "is_organic", "is_available").
		Where("farmer_id IN ?", farmer.Forms()).
		Find(&products).Error
	if err != nil {
		return ProductStatistics{}, fault.AsTransient(fmt.Errorf("db.Find products: %w", err))
	}

	ps := ProductStatistics{
		TotalProducts: len(products),
		AveragePrice:  decimal.Zero,
		Categories:    []ProductCategoryStat{},
	}

	priceSum := decimal.Zero
	for _, p := range products {
		if p.IsAvailable {
			ps.AvailableProducts++
		}
		if p.IsOrganic {
			ps.OrganicProducts++
		}
		ps.TotalQuantity += p.Quantity
		priceSum = priceSum.Add(p.Price)
	}
	if len(products) > 0 {
		ps.AveragePrice = priceSum.DivRound(decimal.NewFromInt(int64(len(products))), 2)
	}

	groups := lo.GroupBy(products, func(p model.Product) model.Category { return p.Category })
	for category, group := range groups {
		cs := ProductCategoryStat{Category: category, Count: len(group)}
		sum := decimal.Zero
		for _, p := range group {
			cs.TotalQuantity += p.Quantity
			sum = sum.Add(p.Price)
		}
		cs.AveragePrice = sum.DivRound(decimal.NewFromInt(int64(len(group))), 2)
		ps.Categories = append(ps.Categories, cs)
	}
	sort.Slice(ps.Categories, func(i, j int) bool {
		if ps.Categories[i].Count != ps.Categories[j].Count {
			return ps.Categories[i].Count > ps.Categories[j].Count
		}
		return ps.Categories[i].Category < ps.Categories[j].Category
	})

	return ps, nil
}
