package orders

import "github.com/shopspring/decimal"

var (
	discountThreshold = decimal.NewFromInt(5000)
	discountRate      = decimal.RequireFromString("0.05")
)

// Discount is 5% of base when base exceeds 5000, otherwise zero.
func Discount(base decimal.Decimal) decimal.Decimal {
	if base.GreaterThan(discountThreshold) {
		return base.Mul(discountRate)
	}
	return decimal.Zero
}

// LineTotal returns price * qty.
func LineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}
