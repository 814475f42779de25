// Package reconcile 记录“主状态已提交、配对库存操作失败”的待对账事件。
// 事件只追加、不内联重试；后台管道（internal/queue）负责幂等补回库存。
package reconcile

import (
	"fmt"
	"strconv"
)

// 事件产生的场景。
const (
	ReasonCancelReleaseFailed = "cancel_release_failed"
	ReasonPlaceRollbackFailed = "place_rollback_failed"
)

// Event 一次待补回的库存量，EventID 是整条链路的幂等主键。
type Event struct {
	EventID   string `json:"event_id"`
	OrderNo   string `json:"order_no"`
	ProductID uint   `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}

// Validate 做最小字段校验，防止消费侧处理脏消息。
func (e Event) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.OrderNo == "" {
		return fmt.Errorf("order_no is required")
	}
	if e.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	if e.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}

// StreamValues 写入 Redis Stream 的字段布局。
func (e Event) StreamValues() map[string]interface{} {
	return map[string]interface{}{
		"event_id":   e.EventID,
		"order_no":   e.OrderNo,
		"product_id": strconv.FormatUint(uint64(e.ProductID), 10),
		"quantity":   strconv.FormatInt(e.Quantity, 10),
		"reason":     e.Reason,
	}
}

// ParseEvent 从 Stream 字段还原事件。
func ParseEvent(values map[string]interface{}) (Event, error) {
	eventID, err := streamString(values, "event_id")
	if err != nil {
		return Event{}, err
	}
	orderNo, err := streamString(values, "order_no")
	if err != nil {
		return Event{}, err
	}
	productStr, err := streamString(values, "product_id")
	if err != nil {
		return Event{}, err
	}
	quantityStr, err := streamString(values, "quantity")
	if err != nil {
		return Event{}, err
	}
	reason, err := streamString(values, "reason")
	if err != nil {
		return Event{}, err
	}

	productID64, err := strconv.ParseUint(productStr, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid product_id %q", productStr)
	}
	quantity, err := strconv.ParseInt(quantityStr, 10, 64)
	if err != nil {
		return Event{}, fmt.Errorf("invalid quantity %q", quantityStr)
	}

	ev := Event{
		EventID:   eventID,
		OrderNo:   orderNo,
		ProductID: uint(productID64),
		Quantity:  quantity,
		Reason:    reason,
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

func streamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatInt(int64(x), 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
