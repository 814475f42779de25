package model

import "time"

// TrackingUpdate 订单状态流转的追加式审计日志：只插入，从不改写。
type TrackingUpdate struct {
	ID      uint `gorm:"primarykey" json:"-"`
	OrderID uint `gorm:"not null;index" json:"-"`

	Status    OrderStatus `gorm:"size:16;not null" json:"status"`
	Message   string      `gorm:"size:255;not null" json:"message"`
	Timestamp time.Time   `gorm:"not null" json:"timestamp"`
}

func (TrackingUpdate) TableName() string { return "tracking_updates" }
