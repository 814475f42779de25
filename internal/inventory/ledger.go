package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"farm_market/internal/fault"
	"farm_market/internal/model"
	rediskey "farm_market/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Ledger 商品库存台账。预占/回补各自是单条带条件的 UPDATE：
// 禁止读改写两轮往返，否则并发下单会超卖。
// rdb 可为 nil，缓存刷新是尽力而为，DB 是库存的事实来源。
type Ledger struct {
	db       *gorm.DB
	rdb      *rd.Client
	cacheTTL time.Duration
}

func NewLedger(db *gorm.DB, rdb *rd.Client, cacheTTL time.Duration) *Ledger {
	return &Ledger{db: db, rdb: rdb, cacheTTL: cacheTTL}
}

// Product 读取商品，下单前置校验使用。
func (l *Ledger) Product(ctx context.Context, productID uint) (model.Product, error) {
	var p model.Product
	if err := l.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Product{}, fmt.Errorf("product %d: %w", productID, fault.ErrNotFound)
		}
		return model.Product{}, fault.AsTransient(fmt.Errorf("db.First: %w", err))
	}
	return p, nil
}

// Reserve 预占库存：带条件扣减并在同一条语句内重算可售标记。
// 条件不满足时回读一次商品行，区分 NotFound / Unavailable / InsufficientStock。
func (l *Ledger) Reserve(ctx context.Context, productID uint, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("reserve quantity must be > 0, got %d", quantity)
	}

	res := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ? AND is_available = ? AND quantity >= ?", productID, true, quantity).
		Updates(map[string]interface{}{
			"quantity":     gorm.Expr("quantity - ?", quantity),
			"is_available": gorm.Expr("quantity - ? > 0", quantity),
		})
	if res.Error != nil {
		return fault.AsTransient(fmt.Errorf("reserve update: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		return l.classifyReserveFailure(ctx, productID)
	}

	l.refreshCache(ctx, productID)
	return nil
}

func (l *Ledger) classifyReserveFailure(ctx context.Context, productID uint) error {
	var p model.Product
	if err := l.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", productID, fault.ErrNotFound)
		}
		return fault.AsTransient(fmt.Errorf("db.First: %w", err))
	}
	if !p.IsAvailable {
		return fmt.Errorf("product %d: %w", productID, fault.ErrUnavailable)
	}
	return &fault.InsufficientStockError{Remaining: p.Quantity, Unit: p.Unit}
}

// Release 回补库存并无条件恢复 is_available=true。
// 无条件恢复是沿用的既有行为：取消订单后商品重新可售，
// 即使此前被农户手动下架（见 DESIGN.md 的开放问题记录）。
// 商品已被删除时降级为 no-op 并打告警：取消已删商品的订单仍需成功。
func (l *Ledger) Release(ctx context.Context, productID uint, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("release quantity must be > 0, got %d", quantity)
	}

	res := l.db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"quantity":     gorm.Expr("quantity + ?", quantity),
			"is_available": true,
		})
	if res.Error != nil {
		return fault.AsTransient(fmt.Errorf("release update: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		log.Printf("inventory: release %d units of product %d skipped, product no longer exists", quantity, productID)
		return nil
	}

	l.refreshCache(ctx, productID)
	return nil
}

// Preload 将 DB 库存预热到缓存，返回当前库存。
func (l *Ledger) Preload(ctx context.Context, productID uint) (int64, error) {
	p, err := l.Product(ctx, productID)
	if err != nil {
		return 0, err
	}
	if l.rdb != nil {
		if err := rediskey.SetCachedStock(ctx, l.rdb, productID, p.Quantity, l.cacheTTL); err != nil {
			return 0, fmt.Errorf("SetCachedStock: %w", err)
		}
	}
	return p.Quantity, nil
}

// CachedStock 读取展示库存，缓存未命中时回源 DB。
func (l *Ledger) CachedStock(ctx context.Context, productID uint) (int64, error) {
	if l.rdb != nil {
		qty, found, err := rediskey.GetCachedStock(ctx, l.rdb, productID)
		if err == nil && found {
			return qty, nil
		}
		if err != nil {
			log.Printf("inventory: stock cache read for product %d: %v", productID, err)
		}
	}
	p, err := l.Product(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Quantity, nil
}

func (l *Ledger) refreshCache(ctx context.Context, productID uint) {
	if l.rdb == nil {
		return
	}
	var p model.Product
	if err := l.db.WithContext(ctx).Select("quantity").First(&p, productID).Error; err != nil {
		return
	}
	if err := rediskey.SetCachedStock(ctx, l.rdb, productID, p.Quantity, l.cacheTTL); err != nil {
		log.Printf("inventory: refresh stock cache for product %d: %v", productID, err)
	}
}
