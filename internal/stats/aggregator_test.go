package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"farm_market/internal/model"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBSeq int

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:stats_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Product{}, &model.Order{}))
	return db
}

type orderSpec struct {
	buyer     string
	farmer    string
	productID uint
	name      string
	category  model.Category
	quantity  int64
	amount    float64
	status    model.OrderStatus
	createdAt time.Time
}

func seedOrder(t *testing.T, db *gorm.DB, s orderSpec) {
	t.Helper()

	if s.createdAt.IsZero() {
		s.createdAt = time.Now()
	}
	if s.name == "" {
		s.name = gofakeit.Fruit()
	}
	if s.category == "" {
		s.category = model.CategoryFruits
	}
	o := model.Order{
		OrderNumber:     "FM" + uuid.NewString()[:10],
		BuyerID:         model.PartyID(s.buyer),
		BuyerName:       gofakeit.Name(),
		ProductID:       s.productID,
		ProductName:     s.name,
		ProductCategory: s.category,
		Unit:            "kg",
		PricePerUnit:    decimal.NewFromFloat(s.amount).Div(decimal.NewFromInt(s.quantity)),
		FarmerID:        model.PartyID(s.farmer),
		FarmerName:      gofakeit.Name(),
		Quantity:        s.quantity,
		TotalAmount:     decimal.NewFromFloat(s.amount),
		Status:          s.status,
		DeliveryAddress: "12 Market Street",
		PaymentMethod:   "cash-on-delivery",
	}
	o.CreatedAt = s.createdAt
	require.NoError(t, db.Create(&o).Error)
}

func TestStatisticsZeroOrders(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)

	st, err := agg.GetStatistics(context.Background(), "nobody", model.RoleClient)
	require.NoError(t, err)

	assert.Zero(t, st.TotalOrders)
	assert.True(t, st.TotalAmount.IsZero())
	assert.True(t, st.AverageOrderValue.IsZero())
	assert.Equal(t, StatusCounts{}, st.Status)

	// 空集合返回空切片而不是 nil
	assert.NotNil(t, st.TopProducts)
	assert.Empty(t, st.TopProducts)
	assert.NotNil(t, st.CategoryBreakdown)
	assert.NotNil(t, st.Monthly)
	assert.Nil(t, st.Products, "client stats carry no product rollup")
}

func TestStatisticsZeroOrdersFarmer(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)

	st, err := agg.GetStatistics(context.Background(), "farm-1", model.RoleFarmer)
	require.NoError(t, err)

	require.NotNil(t, st.Products)
	assert.Zero(t, st.Products.TotalProducts)
	assert.True(t, st.Products.AveragePrice.IsZero())
	assert.NotNil(t, st.Products.Categories)
	assert.Empty(t, st.Products.Categories)
}

func TestStatisticsTotalsAndStatusCounts(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)
	buyer := "client-1"

	seedOrder(t, db, orderSpec{buyer: buyer, farmer: "f1", productID: 1, quantity: 1, amount: 10, status: model.OrderStatusPending})
	seedOrder(t, db, orderSpec{buyer: buyer, farmer: "f1", productID: 1, quantity: 1, amount: 20, status: model.OrderStatusConfirmed})
	seedOrder(t, db, orderSpec{buyer: buyer, farmer: "f1", productID: 1, quantity: 1, amount: 30, status: model.OrderStatusInTransit})
	seedOrder(t, db, orderSpec{buyer: buyer, farmer: "f1", productID: 1, quantity: 1, amount: 40, status: model.OrderStatusDelivered})
	seedOrder(t, db, orderSpec{buyer: buyer, farmer: "f1", productID: 1, quantity: 1, amount: 100, status: model.OrderStatusCancelled})
	// 其他买家的订单不计入
	seedOrder(t, db, orderSpec{buyer: "someone-else", farmer: "f1", productID: 1, quantity: 1, amount: 999, status: model.OrderStatusPending})

	st, err := agg.GetStatistics(context.Background(), model.PartyID(buyer), model.RoleClient)
	require.NoError(t, err)

	assert.Equal(t, 5, st.TotalOrders)
	assert.True(t, st.TotalAmount.Equal(decimal.NewFromInt(200)), "got %s", st.TotalAmount)
	assert.True(t, st.AverageOrderValue.Equal(decimal.NewFromInt(40)), "got %s", st.AverageOrderValue)

	// pending 与 confirmed 归并计数
	assert.Equal(t, StatusCounts{PendingLike: 2, InTransit: 1, Delivered: 1, Cancelled: 1}, st.Status)
}

// 同一买家的两种历史存储形态都命中，且单条记录不会重复计数。
func TestStatisticsMatchesBothPartyForms(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)

	seedOrder(t, db, orderSpec{buyer: "client-1", farmer: "f1", productID: 1, quantity: 1, amount: 10, status: model.OrderStatusPending})
	seedOrder(t, db, orderSpec{buyer: "u:client-1", farmer: "f1", productID: 1, quantity: 1, amount: 15, status: model.OrderStatusPending})

	st, err := agg.GetStatistics(context.Background(), "client-1", model.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalOrders)
	assert.True(t, st.TotalAmount.Equal(decimal.NewFromInt(25)))

	// 传入 legacy 形态同样先规范化再匹配
	st, err = agg.GetStatistics(context.Background(), "u:client-1", model.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalOrders)
}

func TestStatisticsTopProducts(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)
	farmer := "farm-1"

	// 7 种商品，营收依次 10,20,...,70：榜单只留营收最高的 5 个
	for i := 1; i <= 7; i++ {
		seedOrder(t, db, orderSpec{
			buyer: "c1", farmer: farmer,
			productID: uint(i), name: fmt.Sprintf("product-%d", i),
			quantity: int64(i), amount: float64(10 * i),
			status: model.OrderStatusDelivered,
		})
	}
	// product-7 追加一单，确认按商品聚合
	seedOrder(t, db, orderSpec{
		buyer: "c2", farmer: farmer,
		productID: 7, name: "product-7",
		quantity: 2, amount: 30,
		status: model.OrderStatusPending,
	})

	st, err := agg.GetStatistics(context.Background(), model.PartyID(farmer), model.RoleFarmer)
	require.NoError(t, err)

	require.Len(t, st.TopProducts, 5)
	top := st.TopProducts[0]
	assert.Equal(t, uint(7), top.ProductID)
	assert.Equal(t, "product-7", top.ProductName)
	assert.Equal(t, int64(9), top.UnitsSold)
	assert.True(t, top.Revenue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2, top.OrderCount)

	// 其余按营收降序
	for i := 1; i < len(st.TopProducts); i++ {
		assert.True(t, st.TopProducts[i-1].Revenue.GreaterThanOrEqual(st.TopProducts[i].Revenue))
	}
	assert.Equal(t, uint(3), st.TopProducts[4].ProductID, "lowest earners fall off the list")
}

func TestStatisticsMonthlyBuckets(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)
	buyer := "client-1"

	base := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	// 8 个月的已送达订单：只保留最近 6 桶
	for i := 0; i < 8; i++ {
		seedOrder(t, db, orderSpec{
			buyer: buyer, farmer: "f1", productID: 1,
			quantity: 1, amount: 10,
			status:    model.OrderStatusDelivered,
			createdAt: base.AddDate(0, -i, 0),
		})
	}
	// 未送达订单不进月度曲线
	seedOrder(t, db, orderSpec{
		buyer: buyer, farmer: "f1", productID: 1,
		quantity: 1, amount: 500,
		status:    model.OrderStatusPending,
		createdAt: base,
	})
	// 同月第二单合并进同一桶
	seedOrder(t, db, orderSpec{
		buyer: buyer, farmer: "f1", productID: 1,
		quantity: 1, amount: 25,
		status:    model.OrderStatusDelivered,
		createdAt: base.AddDate(0, 0, -3),
	})

	st, err := agg.GetStatistics(context.Background(), model.PartyID(buyer), model.RoleClient)
	require.NoError(t, err)

	require.Len(t, st.Monthly, 6)
	assert.Equal(t, 2026, st.Monthly[0].Year)
	assert.Equal(t, time.August, st.Monthly[0].Month)
	assert.Equal(t, 2, st.Monthly[0].OrderCount)
	assert.True(t, st.Monthly[0].Amount.Equal(decimal.NewFromInt(35)), "got %s", st.Monthly[0].Amount)

	// 最新在前
	for i := 1; i < len(st.Monthly); i++ {
		prev := time.Date(st.Monthly[i-1].Year, st.Monthly[i-1].Month, 1, 0, 0, 0, 0, time.UTC)
		cur := time.Date(st.Monthly[i].Year, st.Monthly[i].Month, 1, 0, 0, 0, 0, time.UTC)
		assert.True(t, prev.After(cur))
	}
}

func TestStatisticsFarmerProductRollup(t *testing.T) {
	db := testDB(t)
	agg := NewAggregator(db)
	farmer := "farm-1"

	products := []model.Product{
		{Name: "tomato", Category: model.CategoryVegetables, Price: decimal.NewFromInt(4), Unit: "kg", Quantity: 10, IsOrganic: true, IsAvailable: true, FarmerID: model.PartyID(farmer), FarmerName: "F"},
		{Name: "potato", Category: model.CategoryVegetables, Price: decimal.NewFromInt(2), Unit: "kg", Quantity: 30, IsAvailable: true, FarmerID: model.PartyID("u:" + farmer), FarmerName: "F"},
		{Name: "apple", Category: model.CategoryFruits, Price: decimal.NewFromInt(6), Unit: "kg", Quantity: 0, IsAvailable: false, FarmerID: model.PartyID(farmer), FarmerName: "F"},
		{Name: "other farmer", Category: model.CategoryFruits, Price: decimal.NewFromInt(9), Unit: "kg", Quantity: 5, IsAvailable: true, FarmerID: "someone-else", FarmerName: "X"},
	}
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}

	st, err := agg.GetStatistics(context.Background(), model.PartyID(farmer), model.RoleFarmer)
	require.NoError(t, err)

	ps := st.Products
	require.NotNil(t, ps)
	assert.Equal(t, 3, ps.TotalProducts)
	assert.Equal(t, 2, ps.AvailableProducts)
	assert.Equal(t, 1, ps.OrganicProducts)
	assert.Equal(t, int64(40), ps.TotalQuantity)
	assert.True(t, ps.AveragePrice.Equal(decimal.NewFromInt(4)), "got %s", ps.AveragePrice)

	require.Len(t, ps.Categories, 2)
	assert.Equal(t, model.CategoryVegetables, ps.Categories[0].Category)
	assert.Equal(t, 2, ps.Categories[0].Count)
	assert.Equal(t, int64(40), ps.Categories[0].TotalQuantity)
	assert.True(t, ps.Categories[0].AveragePrice.Equal(decimal.NewFromInt(3)))
}
