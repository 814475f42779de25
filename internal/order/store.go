package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farm_market/internal/fault"
	"farm_market/internal/model"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore 基于 gorm 的订单存储。
func NewStore(db *gorm.DB) OrderStore {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, o *model.Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fault.AsTransient(fmt.Errorf("db.Create: %w", err))
	}
	return nil
}

func (s *gormStore) GetByID(ctx context.Context, orderID uint) (model.Order, error) {
	var o model.Order
	err := s.db.WithContext(ctx).
		Preload("TrackingUpdates", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, id ASC")
		}).
		First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Order{}, fmt.Errorf("order %d: %w", orderID, fault.ErrNotFound)
		}
		return model.Order{}, fault.AsTransient(fmt.Errorf("db.First: %w", err))
	}
	return o, nil
}

func (s *gormStore) TransitionStatus(ctx context.Context, orderID uint, from []model.OrderStatus, to model.OrderStatus, deliveredAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if deliveredAt != nil {
		updates["actual_delivery_date"] = *deliveredAt
	}

	res := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, fault.AsTransient(fmt.Errorf("status update: %w", res.Error))
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) AppendTracking(ctx context.Context, tu model.TrackingUpdate) error {
	if err := s.db.WithContext(ctx).Create(&tu).Error; err != nil {
		return fault.AsTransient(fmt.Errorf("db.Create: %w", err))
	}
	return nil
}

func (s *gormStore) List(ctx context.Context, f ListFilter) (ListResult, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 10
	}

	partyColumn := "buyer_id"
	if f.Role == model.RoleFarmer {
		partyColumn = "farmer_id"
	}

	q := s.db.WithContext(ctx).Model(&model.Order{}).
		Where(partyColumn+" IN ?", f.Party.Forms())
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.DateFrom != nil {
		q = q.Where("created_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		// dateTo 按“含当天”处理
		end := time.Date(f.DateTo.Year(), f.DateTo.Month(), f.DateTo.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), f.DateTo.Location())
		q = q.Where("created_at <= ?", end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListResult{}, fault.AsTransient(fmt.Errorf("db.Count: %w", err))
	}

	items := make([]model.Order, 0, pageSize)
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return ListResult{}, fault.AsTransient(fmt.Errorf("db.Find: %w", err))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return ListResult{Items: items, TotalCount: total, TotalPages: totalPages}, nil
}

// isUniqueViolation sqlite/mysql 的 UNIQUE 冲突都含该关键字。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
