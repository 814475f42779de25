package fault

import (
	"context"
	"errors"
	"fmt"
)

// 错误分类约定：
// - 校验类（NotFound/Unavailable/InsufficientStock/InvalidTransition）同步返回，
//   携带足够细节拼出准确的用户提示
// - Conflict/Transient 由调用侧有限次重试后再上抛
// - Inconsistency 不在请求内重试，只写对账日志（见 internal/reconcile）
var (
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("product is not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("concurrent update conflict")
	ErrTransient         = errors.New("transient storage failure")

	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")
)

// InsufficientStockError 携带剩余库存，供前端提示“仅剩 N 单位”。
type InsufficientStockError struct {
	Remaining int64
	Unit      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d %s available", e.Remaining, e.Unit)
}

// Is 使 errors.Is(err, ErrInsufficientStock) 成立。
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// AsTransient 将存储层的超时/取消归类为 Transient，其余错误原样返回。
func AsTransient(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}
