package redis

import "fmt"

// StockKey 统一约定商品库存缓存键名。
func StockKey(productID uint) string {
	return fmt.Sprintf("farm_market:stock:%d", productID)
}

// SessionKey 会话令牌 → 身份信息。
func SessionKey(token string) string {
	return fmt.Sprintf("farm_market:session:%s", token)
}

// ReleaseOnceKey 标记某个作用域（订单号/事件 id）是否已做过库存回补。
func ReleaseOnceKey(scope string) string {
	return fmt.Sprintf("farm_market:release:done:%s", scope)
}

// RateLimitUserKey / RateLimitIPKey 下单限流键。
func RateLimitUserKey(partyID string) string {
	return fmt.Sprintf("rate_limit:orders:user:%s", partyID)
}

func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate_limit:orders:ip:%s", ip)
}
