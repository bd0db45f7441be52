package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLog is one row of the append-only stock ledger. Change is a
// signed delta in the product's own unit; positive for additions,
// negative for deductions. Rows are never updated or deleted.
type InventoryLog struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Change    decimal.Decimal `json:"change" db:"change"`
	Reason    string          `json:"reason" db:"reason"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}
