package order

import (
	"context"
	"time"

	"farm_market/internal/model"
	"farm_market/internal/reconcile"
)

// OrderStore 订单持久化端口。实现见 store.go（gorm/sqlite）。
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, orderID uint) (model.Order, error)

	// TransitionStatus 单条带条件 UPDATE 的状态 CAS：
	// 仅当当前状态在 from 集合内时置为 to，deliveredAt 非空时一并写入。
	// 返回是否真的改写了行。
	TransitionStatus(ctx context.Context, orderID uint, from []model.OrderStatus, to model.OrderStatus, deliveredAt *time.Time) (bool, error)

	AppendTracking(ctx context.Context, tu model.TrackingUpdate) error

	List(ctx context.Context, f ListFilter) (ListResult, error)
}

// StockLedger 台账端口（internal/inventory.Ledger 实现）。
type StockLedger interface {
	Product(ctx context.Context, productID uint) (model.Product, error)
	Reserve(ctx context.Context, productID uint, quantity int64) error
	Release(ctx context.Context, productID uint, quantity int64) error
}

// PartyDirectory 用户目录端口，仅用于建单快照与详情页的实时联系方式。
type PartyDirectory interface {
	FindByID(ctx context.Context, id model.PartyID) (model.User, error)
}

// ReleaseGuard 幂等回补锁：同一作用域只允许一次回补真正落库。
// 实现可缺省（nil 时直接回补）。
type ReleaseGuard interface {
	AcquireOnce(ctx context.Context, scope string) (bool, error)
}

// ListFilter AND 语义；Party+Role 必填，其余可选。
type ListFilter struct {
	Party model.PartyID
	Role  model.Role

	Status   *model.OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time // 含当天（查询侧补到 23:59:59）

	Page     int
	PageSize int
}

type ListResult struct {
	Items      []model.Order `json:"items"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// Journal 对账日志端口，见 internal/reconcile。
type Journal = reconcile.Journal
