package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is a node in the order lifecycle state machine.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderProcessing     OrderStatus = "processing"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCompleted      OrderStatus = "completed"
	OrderCancelled      OrderStatus = "cancelled"
	OrderReturned       OrderStatus = "returned"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// orderTransitions is the allowed-successor set for each status.
// completed and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:        {OrderProcessing, OrderCancelled},
	OrderProcessing:     {OrderOutForDelivery, OrderCancelled},
	OrderOutForDelivery: {OrderDelivered, OrderReturned},
	OrderDelivered:      {OrderCompleted, OrderReturned},
	OrderCompleted:      {},
	OrderCancelled:      {},
	OrderReturned:       {OrderCompleted},
}

// TransitionError describes why a status transition was rejected.
// Terminal is set when the current status has no successors at all,
// so callers can tell "order is finished" apart from "wrong edge".
type TransitionError struct {
	From     OrderStatus
	To       OrderStatus
	Terminal bool
}

func (e *TransitionError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("order status %q is terminal", e.From)
	}
	allowed := orderTransitions[e.From]
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition order from %q to %q (allowed: %s)",
		e.From, e.To, strings.Join(names, ", "))
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns nil when from -> to is legal, or a
// *TransitionError carrying the rejection reason. The order itself is
// never touched here; persistence is the caller's job.
func ValidateTransition(from, to OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{
		From:     from,
		To:       to,
		Terminal: len(orderTransitions[from]) == 0,
	}
}

// PaymentMethod enumerates how an order is paid.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentBankTransfer   PaymentMethod = "bank_transfer"
	PaymentCard           PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentBankTransfer || m == PaymentCard
}

// Order is the order aggregate root. TotalAmount equals the sum of
// item subtotals at the moment the order leaves pending.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserID        uuid.UUID       `json:"user_id" db:"user_id"`
	Status        OrderStatus     `json:"status" db:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Address       string          `json:"address" db:"address"`
	Notes         string          `json:"notes" db:"notes"`
	OrderDate     time.Time       `json:"order_date" db:"order_date"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	Items []*OrderItem `json:"items,omitempty" db:"-"`
}

// ItemsTotal sums the item subtotals.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// TotalQuantityKg sums the ordered quantities converted to kilograms.
func (o *Order) TotalQuantityKg() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(ToKg(item.Quantity, item.Unit))
	}
	return total
}

// OrderItem is a line of an order. Price and Unit are snapshots taken
// at order time and never follow later product changes. CostPrice is
// kept for profit analytics when known.
type OrderItem struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	OrderID   uuid.UUID        `json:"order_id" db:"order_id"`
	ProductID uuid.UUID        `json:"product_id" db:"product_id"`
	Quantity  decimal.Decimal  `json:"quantity" db:"quantity"`
	Price     decimal.Decimal  `json:"price" db:"price"`
	Unit      Unit             `json:"unit" db:"unit"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty" db:"cost_price"`
}

// Subtotal is price times quantity.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(i.Quantity)
}

// Profit returns (price - cost) * quantity, or nil when cost is unknown.
func (i *OrderItem) Profit() *decimal.Decimal {
	if i.CostPrice == nil {
		return nil
	}
	p := i.Price.Sub(*i.CostPrice).Mul(i.Quantity)
	return &p
}

// TransactionStatus enumerates payment transaction outcomes.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// PaymentTransaction records a payment attempt against an order.
// Transactions are an audit trail and survive order item deletion.
type PaymentTransaction struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	OrderID       uuid.UUID         `json:"order_id" db:"order_id"`
	TransactionID string            `json:"transaction_id" db:"transaction_id"`
	PaymentMethod PaymentMethod     `json:"payment_method" db:"payment_method"`
	Amount        decimal.Decimal   `json:"amount" db:"amount"`
	Currency      string            `json:"currency" db:"currency"`
	Status        TransactionStatus `json:"status" db:"status"`
	Notes         string            `json:"notes" db:"notes"`
	Timestamp     time.Time         `json:"timestamp" db:"timestamp"`
}

// NewTransactionID generates a unique payment transaction token.
func NewTransactionID() string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
