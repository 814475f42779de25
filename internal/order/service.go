package order

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"farm_market/internal/auth"
	"farm_market/internal/fault"
	"farm_market/internal/model"
	"farm_market/internal/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 状态 CAS 的有限重试次数，超过后返回 Conflict 让调用方整体重试。
const maxTransitionAttempts = 3

const defaultPaymentMethod = "cash-on-delivery"

// Service 订单生命周期管理：建单（原子预占库存）、取消（回补库存）、
// 状态流转（追加审计日志）。journal / guard 可为 nil，对应能力降级为日志。
type Service struct {
	store   OrderStore
	ledger  StockLedger
	dir     PartyDirectory
	journal Journal
	guard   ReleaseGuard
}

func NewService(store OrderStore, ledger StockLedger, dir PartyDirectory, journal Journal, guard ReleaseGuard) *Service {
	return &Service{store: store, ledger: ledger, dir: dir, journal: journal, guard: guard}
}

type PlaceOrderInput struct {
	ProductID       uint
	Quantity        int64
	DeliveryAddress string
	Notes           string
	PaymentMethod   string

	// NegotiatedPrice 议价子系统敲定的单价：存在即原样使用，不回查商品现价。
	NegotiatedPrice *decimal.Decimal
}

type PlaceOrderResult struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// PlaceOrder 建单。先按台账契约做前置校验（尽早返回准确提示），
// 再预占库存、落订单；落单失败必须回滚预占，避免库存泄漏。
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, in PlaceOrderInput) (PlaceOrderResult, error) {
	var zero PlaceOrderResult

	if !p.IsClient() {
		return zero, fmt.Errorf("only clients can place orders: %w", fault.ErrForbidden)
	}
	if in.Quantity <= 0 {
		return zero, errors.New("quantity must be > 0")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return zero, errors.New("delivery address is required")
	}

	product, err := s.ledger.Product(ctx, in.ProductID)
	if err != nil {
		return zero, fmt.Errorf("ledger.Product: %w", err)
	}
	// 前置校验先行：预占之前就给出“仅剩 N 单位”这类准确提示
	if !product.IsAvailable {
		return zero, fmt.Errorf("product %d: %w", product.ID, fault.ErrUnavailable)
	}
	if product.Quantity < in.Quantity {
		return zero, &fault.InsufficientStockError{Remaining: product.Quantity, Unit: product.Unit}
	}

	pricePerUnit := product.Price
	if in.NegotiatedPrice != nil && in.NegotiatedPrice.IsPositive() {
		pricePerUnit = *in.NegotiatedPrice
	}

	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	if err := s.ledger.Reserve(ctx, product.ID, in.Quantity); err != nil {
		return zero, fmt.Errorf("ledger.Reserve: %w", err)
	}

	o := model.Order{
		OrderNumber: NewOrderNumber(),

		BuyerID:      model.CanonicalPartyID(p.ID.String()),
		BuyerName:    p.Name,
		BuyerEmail:   p.Email,
		BuyerContact: p.Contact,

		ProductID:       product.ID,
		ProductName:     product.Name,
		ProductCategory: product.Category,
		Unit:            product.Unit,
		PricePerUnit:    pricePerUnit,

		FarmerID:      model.CanonicalPartyID(product.FarmerID.String()),
		FarmerName:    product.FarmerName,
		FarmerContact: product.FarmerContact,

		Quantity:    in.Quantity,
		TotalAmount: pricePerUnit.Mul(decimal.NewFromInt(in.Quantity)),
		Status:      model.OrderStatusPending,

		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           strings.TrimSpace(in.Notes),
		PaymentMethod:   paymentMethod,
	}

	createErr := s.store.Create(ctx, &o)
	if createErr != nil && isUniqueViolation(createErr) {
		// 订单号撞号：换号重试一次
		o.ID = 0
		o.OrderNumber = NewOrderNumber()
		createErr = s.store.Create(ctx, &o)
	}
	if createErr != nil {
		// 关键失败契约：落单失败必须回滚刚预占的库存
		s.releaseOnce(ctx, "place:"+o.OrderNumber, o.OrderNumber, product.ID, in.Quantity, reconcile.ReasonPlaceRollbackFailed)
		return zero, fault.AsTransient(fmt.Errorf("store.Create: %w", createErr))
	}

	return PlaceOrderResult{OrderID: o.ID, OrderNumber: o.OrderNumber}, nil
}

// CancelOrder 取消订单：状态改写先提交（用户可见的权威事实），
// 随后回补库存；回补失败写对账日志，操作本身仍算成功。
func (s *Service) CancelOrder(ctx context.Context, p auth.Principal, orderID uint) error {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("store.GetByID: %w", err)
	}
	if err := s.authorizeParticipant(p, o); err != nil {
		return err
	}
	if !o.Status.Cancellable() {
		return fmt.Errorf("order %s is %s and cannot be cancelled: %w", o.OrderNumber, o.Status, fault.ErrInvalidTransition)
	}

	ok, err := s.store.TransitionStatus(ctx, o.ID, model.CancellableStatuses(), model.OrderStatusCancelled, nil)
	if err != nil {
		return fmt.Errorf("store.TransitionStatus: %w", err)
	}
	if !ok {
		// 并发写者先动了手：重读判定到底发生了什么
		cur, err := s.store.GetByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("store.GetByID: %w", err)
		}
		if cur.Status == model.OrderStatusCancelled {
			return nil // 已被并发取消，幂等成功
		}
		if !cur.Status.Cancellable() {
			return fmt.Errorf("order %s is %s and cannot be cancelled: %w", o.OrderNumber, cur.Status, fault.ErrInvalidTransition)
		}
		return fmt.Errorf("order %s: %w", o.OrderNumber, fault.ErrConflict)
	}

	s.releaseOnce(ctx, "cancel:"+o.OrderNumber, o.OrderNumber, o.ProductID, o.Quantity, reconcile.ReasonCancelReleaseFailed)
	return nil
}

// UpdateStatus 按状态机推进订单并追加一条跟踪记录；
// 进入 delivered 时写 actual_delivery_date。CAS 失败有限次重读重试。
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, orderID uint, newStatus model.OrderStatus, message string) error {
	if _, err := model.ToOrderStatus(string(newStatus)); err != nil {
		return err
	}

	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		o, err := s.store.GetByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("store.GetByID: %w", err)
		}
		if !p.IsFarmer() || !p.Owns(o.FarmerID) {
			return fmt.Errorf("only the owning farmer can update order status: %w", fault.ErrForbidden)
		}
		if !o.Status.CanTransition(newStatus) {
			return fmt.Errorf("order %s: %s -> %s: %w", o.OrderNumber, o.Status, newStatus, fault.ErrInvalidTransition)
		}

		now := time.Now()
		var deliveredAt *time.Time
		if newStatus == model.OrderStatusDelivered {
			deliveredAt = &now
		}

		ok, err := s.store.TransitionStatus(ctx, o.ID, []model.OrderStatus{o.Status}, newStatus, deliveredAt)
		if err != nil {
			return fmt.Errorf("store.TransitionStatus: %w", err)
		}
		if !ok {
			continue // 输给并发写者：重读当前状态再校验
		}

		msg := strings.TrimSpace(message)
		if msg == "" {
			msg = fmt.Sprintf("Order status updated to %s", newStatus)
		}
		if err := s.store.AppendTracking(ctx, model.TrackingUpdate{
			OrderID:   o.ID,
			Status:    newStatus,
			Message:   msg,
			Timestamp: now,
		}); err != nil {
			// 状态已提交为权威事实，跟踪日志写失败只告警
			log.Printf("order %s: append tracking update: %v", o.OrderNumber, err)
		}

		// 经由状态接口取消同样必须回补库存，与取消接口共用幂等作用域
		if newStatus == model.OrderStatusCancelled {
			s.releaseOnce(ctx, "cancel:"+o.OrderNumber, o.OrderNumber, o.ProductID, o.Quantity, reconcile.ReasonCancelReleaseFailed)
		}
		return nil
	}

	return fmt.Errorf("order %d status update lost %d races: %w", orderID, maxTransitionAttempts, fault.ErrConflict)
}

// Detail 订单详情：快照字段 + 实时联系方式（目录可解析时）。
type Detail struct {
	model.Order
	CurrentFarmerContact string `json:"current_farmer_contact,omitempty"`
	CurrentBuyerContact  string `json:"current_buyer_contact,omitempty"`
}

// GetOrder 只读详情，仅订单双方可见。
func (s *Service) GetOrder(ctx context.Context, p auth.Principal, orderID uint) (Detail, error) {
	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return Detail{}, fmt.Errorf("store.GetByID: %w", err)
	}
	if err := s.authorizeParticipant(p, o); err != nil {
		return Detail{}, err
	}

	d := Detail{Order: o}
	if s.dir != nil {
		// 实时联系方式仅用于展示，查不到就退回快照
		if u, err := s.dir.FindByID(ctx, o.FarmerID); err == nil {
			d.CurrentFarmerContact = u.Contact
		}
		if u, err := s.dir.FindByID(ctx, o.BuyerID); err == nil {
			d.CurrentBuyerContact = u.Contact
		}
	}
	return d, nil
}

// ListOrders 当前身份名下的订单，最新在前，分页返回。
func (s *Service) ListOrders(ctx context.Context, p auth.Principal, f ListFilter) (ListResult, error) {
	f.Party = p.ID
	f.Role = p.Role

	res, err := s.store.List(ctx, f)
	if err != nil {
		return ListResult{}, fmt.Errorf("store.List: %w", err)
	}
	return res, nil
}

func (s *Service) authorizeParticipant(p auth.Principal, o model.Order) error {
	if p.IsClient() && p.Owns(o.BuyerID) {
		return nil
	}
	if p.IsFarmer() && p.Owns(o.FarmerID) {
		return nil
	}
	return fmt.Errorf("order %s does not belong to caller: %w", o.OrderNumber, fault.ErrForbidden)
}

// releaseOnce 幂等回补库存；回补失败写对账日志，绝不吞掉。
// 锁不可用时宁可尝试回补（库存少卖优于超卖后的悬空预占）。
func (s *Service) releaseOnce(ctx context.Context, scope, orderNo string, productID uint, quantity int64, reason string) {
	if s.guard != nil {
		ok, err := s.guard.AcquireOnce(ctx, scope)
		if err != nil {
			log.Printf("order %s: release-once lock %s: %v", orderNo, scope, err)
		} else if !ok {
			return // 该作用域已回补过
		}
	}

	if err := s.ledger.Release(ctx, productID, quantity); err != nil {
		s.reportInconsistency(ctx, orderNo, productID, quantity, reason, err)
	}
}

// reportInconsistency 主状态已提交、配对回补失败：只记录对账事件，
// 不在请求内重试。
func (s *Service) reportInconsistency(ctx context.Context, orderNo string, productID uint, quantity int64, reason string, cause error) {
	log.Printf("order %s: stock release of %d units of product %d failed (%s): %v", orderNo, quantity, productID, reason, cause)

	if s.journal == nil {
		log.Printf("order %s: no reconcile journal configured, stock desync needs manual fix", orderNo)
		return
	}
	ev := reconcile.Event{
		EventID:   uuid.NewString(),
		OrderNo:   orderNo,
		ProductID: productID,
		Quantity:  quantity,
		Reason:    reason,
	}
	if err := s.journal.Append(ctx, ev); err != nil {
		log.Printf("order %s: append reconcile event: %v", orderNo, err)
	}
}
