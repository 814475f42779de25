package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"farm_market/internal/auth"
	"farm_market/internal/fault"
	"farm_market/internal/inventory"
	"farm_market/internal/model"
	"farm_market/internal/reconcile"

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
	dsn := fmt.Sprintf("file:order_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Product{}, &model.Order{}, &model.TrackingUpdate{}))
	return db
}

// dbDir 直接读 users 表的目录桩，省掉真实注册（bcrypt）开销。
type dbDir struct {
	db *gorm.DB
}

func (d dbDir) FindByID(ctx context.Context, id model.PartyID) (model.User, error) {
	var u model.User
	err := d.db.WithContext(ctx).Where("id = ?", model.CanonicalPartyID(id.String()).String()).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fault.ErrNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

type journalStub struct {
	events []reconcile.Event
}

func (j *journalStub) Append(_ context.Context, ev reconcile.Event) error {
	j.events = append(j.events, ev)
	return nil
}

type guardStub struct {
	seen   map[string]bool
	scopes []string
}

func (g *guardStub) AcquireOnce(_ context.Context, scope string) (bool, error) {
	g.scopes = append(g.scopes, scope)
	if g.seen[scope] {
		return false, nil
	}
	g.seen[scope] = true
	return true, nil
}

type env struct {
	db      *gorm.DB
	ledger  *inventory.Ledger
	store   OrderStore
	journal *journalStub
	guard   *guardStub
	svc     *Service

	farmer auth.Principal
	client auth.Principal
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := testDB(t)
	e := &env{
		db:      db,
		ledger:  inventory.NewLedger(db, nil, 0),
		store:   NewStore(db),
		journal: &journalStub{},
		guard:   &guardStub{seen: map[string]bool{}},
	}
	e.svc = NewService(e.store, e.ledger, dbDir{db}, e.journal, e.guard)

	e.farmer = seedPrincipal(t, db, model.RoleFarmer)
	e.client = seedPrincipal(t, db, model.RoleClient)
	return e
}

func seedPrincipal(t *testing.T, db *gorm.DB, role model.Role) auth.Principal {
	t.Helper()

	u := model.User{
		ID:           uuid.NewString(),
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: "x",
		Contact:      gofakeit.Phone(),
		Role:         role,
	}
	require.NoError(t, db.Create(&u).Error)
	return auth.Principal{
		ID:      model.PartyID(u.ID),
		Name:    u.Name,
		Email:   u.Email,
		Contact: u.Contact,
		Role:    role,
	}
}

func (e *env) seedProduct(t *testing.T, quantity int64) model.Product {
	t.Helper()

	p := model.Product{
		Name:          gofakeit.Vegetable(),
		Category:      model.CategoryVegetables,
		Price:         decimal.NewFromFloat(3.50),
		Unit:          "kg",
		Quantity:      quantity,
		IsAvailable:   true,
		FarmerID:      e.farmer.ID,
		FarmerName:    e.farmer.Name,
		FarmerContact: e.farmer.Contact,
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func (e *env) stockOf(t *testing.T, productID uint) int64 {
	t.Helper()

	p, err := e.ledger.Product(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func TestPlaceOrderSuccess(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 10)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        4,
		DeliveryAddress: "12 Market Street",
		Notes:           "leave at the gate",
	})
	require.NoError(t, err)
	assert.NotZero(t, res.OrderID)
	assert.Regexp(t, `^FM[0-9A-F]{10}$`, res.OrderNumber)

	assert.Equal(t, int64(6), e.stockOf(t, product.ID))

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.Equal(t, e.client.ID, o.BuyerID)
	assert.Equal(t, e.client.Name, o.BuyerName)
	assert.Equal(t, e.farmer.ID, o.FarmerID)
	assert.Equal(t, product.Name, o.ProductName)
	assert.Equal(t, "kg", o.Unit)
	assert.True(t, o.PricePerUnit.Equal(decimal.NewFromFloat(3.50)))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromFloat(14.0)), "got %s", o.TotalAmount)
	assert.Equal(t, "cash-on-delivery", o.PaymentMethod)
	assert.Equal(t, "12 Market Street", o.DeliveryAddress)
}

// 商品改价、改名、删除都不回溯已建订单的快照。
func TestPlaceOrderSnapshotImmutable(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 10)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        2,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	require.NoError(t, e.db.Model(&model.Product{}).Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":  "renamed",
			"price": decimal.NewFromFloat(99.99),
		}).Error)

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, o.ProductName)
	assert.True(t, o.PricePerUnit.Equal(decimal.NewFromFloat(3.50)))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromFloat(7.0)))
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	_, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        6,
		DeliveryAddress: "12 Market Street",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrInsufficientStock)

	var insufficient *fault.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "only 5 kg available", insufficient.Error())

	assert.Equal(t, int64(5), e.stockOf(t, product.ID))

	var count int64
	require.NoError(t, e.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count, "failed place must not leave an order behind")
}

func TestPlaceOrderUnavailableProduct(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	require.NoError(t, e.db.Model(&model.Product{}).Where("id = ?", product.ID).
		Update("is_available", false).Error)

	_, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	assert.ErrorIs(t, err, fault.ErrUnavailable)
}

func TestPlaceOrderRequiresClientRole(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	_, err := e.svc.PlaceOrder(context.Background(), e.farmer, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

func TestPlaceOrderValidation(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	_, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        0,
		DeliveryAddress: "12 Market Street",
	})
	assert.Error(t, err)

	_, err = e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "   ",
	})
	assert.Error(t, err)
}

// 议价结果原样入单，不回查商品现价。
func TestPlaceOrderNegotiatedPrice(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 10)

	negotiated := decimal.NewFromFloat(2.80)
	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        5,
		DeliveryAddress: "12 Market Street",
		NegotiatedPrice: &negotiated,
	})
	require.NoError(t, err)

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.True(t, o.PricePerUnit.Equal(negotiated))
	assert.True(t, o.TotalAmount.Equal(decimal.NewFromFloat(14.0)))
}

type failingCreateStore struct {
	OrderStore
}

func (s failingCreateStore) Create(context.Context, *model.Order) error {
	return errors.New("disk on fire")
}

// 落单失败必须回滚预占，库存不允许泄漏。
func TestPlaceOrderRollsBackReservationOnPersistFailure(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	svc := NewService(failingCreateStore{e.store}, e.ledger, dbDir{e.db}, e.journal, e.guard)

	_, err := svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        3,
		DeliveryAddress: "12 Market Street",
	})
	require.Error(t, err)

	assert.Equal(t, int64(5), e.stockOf(t, product.ID))
	require.Len(t, e.guard.scopes, 1)
	assert.Contains(t, e.guard.scopes[0], "place:")
	assert.Empty(t, e.journal.events, "successful rollback needs no reconcile event")
}

func TestCancelOrderRestoresStock(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        4,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), e.stockOf(t, product.ID))

	require.NoError(t, e.svc.CancelOrder(context.Background(), e.client, res.OrderID))

	assert.Equal(t, int64(5), e.stockOf(t, product.ID))
	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)
}

func TestCancelOrderFarmerSide(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        2,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	// 农户也可以取消自己商品的订单
	require.NoError(t, e.svc.CancelOrder(context.Background(), e.farmer, res.OrderID))
	assert.Equal(t, int64(5), e.stockOf(t, product.ID))
}

func TestCancelOrderRejectsLateStages(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	for _, status := range []model.OrderStatus{model.OrderStatusInTransit, model.OrderStatusDelivered, model.OrderStatusCancelled} {
		res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
			ProductID:       product.ID,
			Quantity:        1,
			DeliveryAddress: "12 Market Street",
		})
		require.NoError(t, err)
		require.NoError(t, e.db.Model(&model.Order{}).Where("id = ?", res.OrderID).
			Update("status", status).Error)

		err = e.svc.CancelOrder(context.Background(), e.client, res.OrderID)
		assert.ErrorIs(t, err, fault.ErrInvalidTransition, "status %s", status)
	}
}

func TestCancelOrderWrongPartyForbidden(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	stranger := seedPrincipal(t, e.db, model.RoleClient)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	err = e.svc.CancelOrder(context.Background(), stranger, res.OrderID)
	assert.ErrorIs(t, err, fault.ErrForbidden)
}

type failingReleaseLedger struct {
	StockLedger
}

func (l failingReleaseLedger) Release(context.Context, uint, int64) error {
	return errors.New("storage gone")
}

// 取消已提交后回补失败：操作仍算成功，但必须留下对账事件。
func TestCancelReleaseFailureJournalsEvent(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	svc := NewService(e.store, failingReleaseLedger{e.ledger}, dbDir{e.db}, e.journal, e.guard)

	res, err := svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        3,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), e.client, res.OrderID))

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)

	require.Len(t, e.journal.events, 1)
	ev := e.journal.events[0]
	assert.Equal(t, res.OrderNumber, ev.OrderNo)
	assert.Equal(t, product.ID, ev.ProductID)
	assert.Equal(t, int64(3), ev.Quantity)
	assert.Equal(t, reconcile.ReasonCancelReleaseFailed, ev.Reason)
	assert.NotEmpty(t, ev.EventID)
}

func TestUpdateStatusFullFlow(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        2,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	before := time.Now()
	for _, status := range []model.OrderStatus{model.OrderStatusConfirmed, model.OrderStatusInTransit, model.OrderStatusDelivered} {
		require.NoError(t, e.svc.UpdateStatus(context.Background(), e.farmer, res.OrderID, status, ""))
	}

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, o.Status)
	require.NotNil(t, o.ActualDeliveryDate)
	assert.False(t, o.ActualDeliveryDate.Before(before))

	// 每次流转恰好一条跟踪记录，按时间正序返回
	require.Len(t, o.TrackingUpdates, 3)
	assert.Equal(t, model.OrderStatusConfirmed, o.TrackingUpdates[0].Status)
	assert.Equal(t, model.OrderStatusInTransit, o.TrackingUpdates[1].Status)
	assert.Equal(t, model.OrderStatusDelivered, o.TrackingUpdates[2].Status)
	assert.Equal(t, "Order status updated to confirmed", o.TrackingUpdates[0].Message)
}

func TestUpdateStatusCustomMessage(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	require.NoError(t, e.svc.UpdateStatus(context.Background(), e.farmer, res.OrderID, model.OrderStatusConfirmed, "packing tomorrow morning"))

	o, err := e.store.GetByID(context.Background(), res.OrderID)
	require.NoError(t, err)
	require.Len(t, o.TrackingUpdates, 1)
	assert.Equal(t, "packing tomorrow morning", o.TrackingUpdates[0].Message)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	err = e.svc.UpdateStatus(context.Background(), e.farmer, res.OrderID, model.OrderStatusDelivered, "")
	assert.ErrorIs(t, err, fault.ErrInvalidTransition)

	err = e.svc.UpdateStatus(context.Background(), e.farmer, res.OrderID, "shipped", "")
	assert.Error(t, err)
}

func TestUpdateStatusAuthz(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	otherFarmer := seedPrincipal(t, e.db, model.RoleFarmer)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	err = e.svc.UpdateStatus(context.Background(), e.client, res.OrderID, model.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, fault.ErrForbidden, "buyer cannot drive the status machine")

	err = e.svc.UpdateStatus(context.Background(), otherFarmer, res.OrderID, model.OrderStatusConfirmed, "")
	assert.ErrorIs(t, err, fault.ErrForbidden, "only the owning farmer")
}

// 经由状态接口取消与取消接口同样回补库存。
func TestUpdateStatusCancelReleasesStock(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        4,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), e.stockOf(t, product.ID))

	require.NoError(t, e.svc.UpdateStatus(context.Background(), e.farmer, res.OrderID, model.OrderStatusCancelled, ""))
	assert.Equal(t, int64(5), e.stockOf(t, product.ID))
}

func TestGetOrderParticipantsOnly(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 5)
	stranger := seedPrincipal(t, e.db, model.RoleFarmer)

	res, err := e.svc.PlaceOrder(context.Background(), e.client, PlaceOrderInput{
		ProductID:       product.ID,
		Quantity:        1,
		DeliveryAddress: "12 Market Street",
	})
	require.NoError(t, err)

	detail, err := e.svc.GetOrder(context.Background(), e.client, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, res.OrderNumber, detail.OrderNumber)
	assert.Equal(t, e.farmer.Contact, detail.CurrentFarmerContact)
	assert.Equal(t, e.client.Contact, detail.CurrentBuyerContact)

	_, err = e.svc.GetOrder(context.Background(), e.farmer, res.OrderID)
	require.NoError(t, err)

	_, err = e.svc.GetOrder(context.Background(), stranger, res.OrderID)
	assert.ErrorIs(t, err, fault.ErrForbidden)

	_, err = e.svc.GetOrder(context.Background(), e.client, 9999)
	assert.ErrorIs(t, err, fault.ErrNotFound)
}

func TestListOrdersFiltersAndPagination(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 100)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		o := model.Order{
			OrderNumber:     NewOrderNumber(),
			BuyerID:         e.client.ID,
			BuyerName:       e.client.Name,
			ProductID:       product.ID,
			ProductName:     product.Name,
			ProductCategory: product.Category,
			Unit:            product.Unit,
			PricePerUnit:    product.Price,
			FarmerID:        e.farmer.ID,
			FarmerName:      e.farmer.Name,
			Quantity:        1,
			TotalAmount:     product.Price,
			Status:          model.OrderStatusPending,
			DeliveryAddress: "12 Market Street",
			PaymentMethod:   "cash-on-delivery",
		}
		o.CreatedAt = base.AddDate(0, 0, i)
		require.NoError(t, e.db.Create(&o).Error)
	}
	require.NoError(t, e.db.Model(&model.Order{}).
		Where("created_at >= ?", base.AddDate(0, 0, 5)).
		Update("status", model.OrderStatusConfirmed).Error)

	// 最新在前的分页
	res, err := e.svc.ListOrders(context.Background(), e.client, ListFilter{Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.TotalCount)
	assert.Equal(t, 3, res.TotalPages)
	require.Len(t, res.Items, 3)
	assert.True(t, res.Items[0].CreatedAt.After(res.Items[1].CreatedAt))

	res, err = e.svc.ListOrders(context.Background(), e.client, ListFilter{Page: 3, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)

	// 状态筛选
	confirmed := model.OrderStatusConfirmed
	res, err = e.svc.ListOrders(context.Background(), e.client, ListFilter{Status: &confirmed, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.TotalCount)

	// 日期区间：date_to 含当天
	from := base.AddDate(0, 0, 2)
	to := base.AddDate(0, 0, 4)
	res, err = e.svc.ListOrders(context.Background(), e.client, ListFilter{
		DateFrom: &from,
		DateTo:   &to,
		Page:     1,
		PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.TotalCount)

	// 农户视角看同一批订单
	res, err = e.svc.ListOrders(context.Background(), e.farmer, ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.TotalCount)

	// 无数据返回空列表而不是错误
	stranger := seedPrincipal(t, e.db, model.RoleClient)
	res, err = e.svc.ListOrders(context.Background(), stranger, ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.TotalCount)
}

// 历史导入的订单带 "u:" 前缀参与方 id，读侧双形态匹配必须命中。
func TestListOrdersMatchesLegacyPartyForm(t *testing.T) {
	e := newEnv(t)
	product := e.seedProduct(t, 10)

	o := model.Order{
		OrderNumber:     NewOrderNumber(),
		BuyerID:         model.PartyID("u:" + e.client.ID.String()),
		BuyerName:       e.client.Name,
		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductCategory: product.Category,
		Unit:            product.Unit,
		PricePerUnit:    product.Price,
		FarmerID:        e.farmer.ID,
		FarmerName:      e.farmer.Name,
		Quantity:        1,
		TotalAmount:     product.Price,
		Status:          model.OrderStatusPending,
		DeliveryAddress: "12 Market Street",
		PaymentMethod:   "cash-on-delivery",
	}
	require.NoError(t, e.db.Create(&o).Error)

	res, err := e.svc.ListOrders(context.Background(), e.client, ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	// 归属校验同样认两种形态
	require.NoError(t, e.svc.CancelOrder(context.Background(), e.client, o.ID))
}
