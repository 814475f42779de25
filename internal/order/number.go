package order

import (
	"strings"

	"github.com/google/uuid"
)

// NewOrderNumber 生成人类可读订单号：FM + uuid 前 10 位十六进制（大写）。
// 40 位随机量配合唯一索引，建单侧撞号时换号重试一次即可。
func NewOrderNumber() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return "FM" + raw[:10]
}
