package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 农产品：由农户发布，库存字段只允许台账组件
// （internal/inventory）和上下架开关修改。
// 不变量：quantity 永不为负；is_available 为真仅当 quantity > 0。
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name        string          `gorm:"size:128;not null;index" json:"name"`
	Category    Category        `gorm:"size:32;not null;index" json:"category"`
	Description string          `gorm:"size:1024" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric;not null" json:"price"` // 按 Unit 计的单价
	Unit        string          `gorm:"size:32;not null" json:"unit"`
	Quantity    int64           `gorm:"not null;default:0" json:"quantity"` // 可预占库存
	IsOrganic   bool            `gorm:"not null;default:false" json:"is_organic"`
	IsAvailable bool            `gorm:"not null;default:true;index" json:"is_available"`
	Location    string          `gorm:"size:128" json:"location"`
	HarvestDate *time.Time      `json:"harvest_date,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`

	// 农户引用 + 展示用冗余字段（建单时再快照到订单上）
	FarmerID      PartyID `gorm:"size:64;not null;index" json:"farmer_id"`
	FarmerName    string  `gorm:"size:128;not null" json:"farmer_name"`
	FarmerContact string  `gorm:"size:64" json:"farmer_contact"`
}

func (Product) TableName() string { return "products" }
