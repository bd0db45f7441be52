package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is the measurement unit a product is stocked and sold in.
type Unit string

const (
	UnitKg  Unit = "kg"
	UnitTon Unit = "ton"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == UnitKg || u == UnitTon
}

var kgPerTon = decimal.NewFromInt(1000)

// ToKg converts a quantity expressed in the given unit to kilograms.
func ToKg(qty decimal.Decimal, unit Unit) decimal.Decimal {
	if unit == UnitTon {
		return qty.Mul(kgPerTon)
	}
	return qty
}

// ConvertQuantity converts a quantity between units. Converting between
// identical units returns the quantity unchanged.
func ConvertQuantity(qty decimal.Decimal, from, to Unit) decimal.Decimal {
	if from == to {
		return qty
	}
	if from == UnitKg && to == UnitTon {
		return qty.Div(kgPerTon)
	}
	return qty.Mul(kgPerTon)
}

// StockStatus classifies a product's stock level against its minimum.
type StockStatus string

const (
	StockOutOfStock StockStatus = "out_of_stock"
	StockCritical   StockStatus = "critical"
	StockLow        StockStatus = "low"
	StockGood       StockStatus = "good"
)

// Product represents a product in the catalog. Prices are TND with
// three decimal places; StockQuantity is expressed in Unit.
type Product struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	SKU           string          `json:"sku" db:"sku"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Unit          Unit            `json:"unit" db:"unit"`
	StockQuantity decimal.Decimal `json:"stock_quantity" db:"stock_quantity"`
	MinimumStock  decimal.Decimal `json:"minimum_stock" db:"minimum_stock"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	ImageURL      string          `json:"image_url" db:"image_url"`
	CategoryID    uuid.UUID       `json:"category_id" db:"category_id"`
	SupplierID    *uuid.UUID      `json:"supplier_id,omitempty" db:"supplier_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// StockStatus returns the stock classification for the product.
func (p *Product) StockStatus() StockStatus {
	switch {
	case p.StockQuantity.Sign() <= 0:
		return StockOutOfStock
	case p.StockQuantity.Cmp(p.MinimumStock.Div(decimal.NewFromInt(2))) <= 0:
		return StockCritical
	case p.StockQuantity.Cmp(p.MinimumStock) <= 0:
		return StockLow
	default:
		return StockGood
	}
}

// IsLowStock reports whether the product is at or below its minimum stock level.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity.Cmp(p.MinimumStock) <= 0
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
