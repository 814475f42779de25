package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order 订单。价格相关字段（ProductName/Unit/PricePerUnit/TotalAmount 等）
// 是建单时固化的快照：商品之后改价、改名、被删除都不回溯历史订单。
// 建单后除 Status / ActualDeliveryDate 外不再修改；取消是状态而不是删除，
// 订单永远保留用于统计与审计。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"order_number"`

	// 买家引用 + 快照
	BuyerID      PartyID `gorm:"size:64;not null;index" json:"buyer_id"`
	BuyerName    string  `gorm:"size:128;not null" json:"buyer_name"`
	BuyerEmail   string  `gorm:"size:128" json:"buyer_email"`
	BuyerContact string  `gorm:"size:64" json:"buyer_contact"`

	// 商品引用 + 快照
	ProductID       uint            `gorm:"not null;index" json:"product_id"`
	ProductName     string          `gorm:"size:128;not null" json:"product_name"`
	ProductCategory Category        `gorm:"size:32;not null" json:"product_category"`
	Unit            string          `gorm:"size:32;not null" json:"unit"`
	PricePerUnit    decimal.Decimal `gorm:"type:numeric;not null" json:"price_per_unit"`

	// 农户引用 + 快照
	FarmerID      PartyID `gorm:"size:64;not null;index" json:"farmer_id"`
	FarmerName    string  `gorm:"size:128;not null" json:"farmer_name"`
	FarmerContact string  `gorm:"size:64" json:"farmer_contact"`

	Quantity    int64           `gorm:"not null" json:"quantity"`                                 // 建单即固定
	TotalAmount decimal.Decimal `gorm:"type:numeric;not null" json:"total_amount"`                // Quantity * PricePerUnit
	Status      OrderStatus     `gorm:"size:16;not null;default:'pending';index" json:"status"`

	DeliveryAddress    string     `gorm:"size:512;not null" json:"delivery_address"`
	Notes              string     `gorm:"size:512" json:"notes"`
	PaymentMethod      string     `gorm:"size:32;not null;default:'cash-on-delivery'" json:"payment_method"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"` // 仅在进入 delivered 时写入

	TrackingUpdates []TrackingUpdate `gorm:"foreignKey:OrderID" json:"tracking_updates,omitempty"`
}

func (Order) TableName() string { return "orders" }
