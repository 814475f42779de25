package redis

import (
	"context"
	"errors"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// 库存缓存只服务浏览页展示，DB 才是库存的事实来源；
// 台账每次扣减/回补后尽力刷新这里。

// SetCachedStock 写入（或预热）某商品的展示库存。
func SetCachedStock(ctx context.Context, rdb *rd.Client, productID uint, quantity int64, ttl time.Duration) error {
	return rdb.Set(ctx, StockKey(productID), quantity, ttl).Err()
}

// GetCachedStock 读取展示库存。found=false 表示缓存未命中。
func GetCachedStock(ctx context.Context, rdb *rd.Client, productID uint) (int64, bool, error) {
	val, err := rdb.Get(ctx, StockKey(productID)).Int64()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return val, true, nil
}
