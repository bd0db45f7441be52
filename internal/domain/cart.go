package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cart is a per-user pending order. One cart per user, created lazily
// on first access. Totals are always derived from the items' live
// product prices, never stored.
type Cart struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Items []*CartItem `json:"items" db:"-"`
}

// Total sums the item subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CartItem is one (cart, product) line. ProductPrice and ProductUnit
// are the product's current values loaded alongside the item; they are
// not snapshots.
type CartItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	CartID    uuid.UUID       `json:"cart_id" db:"cart_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	AddedAt   time.Time       `json:"added_at" db:"added_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`

	ProductName  string          `json:"product_name" db:"-"`
	ProductPrice decimal.Decimal `json:"product_price" db:"-"`
	ProductUnit  Unit            `json:"product_unit" db:"-"`
}

// Subtotal is the live product price times quantity.
func (i *CartItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(i.Quantity)
}
