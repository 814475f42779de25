package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

const releaseOnceTTL = 7 * 24 * time.Hour

// AcquireReleaseOnce 通过 SETNX 锁保证“同一作用域只回补一次库存”：
// - 首次获取返回 true，调用方随后执行真正的回补
// - 重复获取返回 false（不会重复加库存）
func AcquireReleaseOnce(ctx context.Context, rdb *rd.Client, scope string) (bool, error) {
	return rdb.SetNX(ctx, ReleaseOnceKey(scope), "1", releaseOnceTTL).Result()
}
