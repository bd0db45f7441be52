package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestUnitConversion(t *testing.T) {
	cases := []struct {
		qty  string
		from Unit
		to   Unit
		want string
	}{
		{"1", UnitTon, UnitKg, "1000"},
		{"2.5", UnitTon, UnitKg, "2500"},
		{"1000", UnitKg, UnitTon, "1"},
		{"1", UnitKg, UnitKg, "1"},
		{"0.001", UnitTon, UnitKg, "1"},
		{"0", UnitKg, UnitTon, "0"},
	}

	for _, tc := range cases {
		got := ConvertQuantity(decimal.RequireFromString(tc.qty), tc.from, tc.to)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("ConvertQuantity(%s, %s, %s) = %s, want %s", tc.qty, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestProperty_UnitConversionRoundTrips(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("kg -> ton -> kg returns the original quantity", prop.ForAll(
		func(milligrams int64) bool {
			qty := decimal.New(milligrams, -3)
			back := ConvertQuantity(ConvertQuantity(qty, UnitKg, UnitTon), UnitTon, UnitKg)
			return back.Equal(qty)
		},
		gen.Int64Range(0, 1_000_000_000),
	))

	properties.Property("converting to kg never changes the sign", prop.ForAll(
		func(milligrams int64) bool {
			qty := decimal.New(milligrams, -3)
			return ToKg(qty, UnitTon).Sign() == qty.Sign()
		},
		gen.Int64Range(0, 1_000_000_000),
	))

	properties.TestingRun(t)
}

func TestStockStatus(t *testing.T) {
	cases := []struct {
		stock   string
		minimum string
		want    StockStatus
	}{
		{"0", "10", StockOutOfStock},
		{"-1", "10", StockOutOfStock},
		{"5", "10", StockCritical},
		{"4.999", "10", StockCritical},
		{"5.001", "10", StockLow},
		{"10", "10", StockLow},
		{"10.001", "10", StockGood},
		{"500", "10", StockGood},
	}

	for _, tc := range cases {
		p := &Product{
			StockQuantity: decimal.RequireFromString(tc.stock),
			MinimumStock:  decimal.RequireFromString(tc.minimum),
		}
		if got := p.StockStatus(); got != tc.want {
			t.Errorf("StockStatus(stock=%s, min=%s) = %s, want %s", tc.stock, tc.minimum, got, tc.want)
		}
	}
}
