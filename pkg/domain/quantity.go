package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Quantity is an order quantity bound to [MinQuantity, MaxQuantity].
type Quantity int

// ParseQuantity reads a quantity from a query value.
// Anything unparsable or out of range yields MinQuantity.
func ParseQuantity(raw string) Quantity {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < MinQuantity || n > MaxQuantity {
		return MinQuantity
	}
	return Quantity(n)
}

// Increment adds one unless already at MaxQuantity.
func (q Quantity) Increment() Quantity {
	if q >= MaxQuantity {
		return q
	}
	return q + 1
}

// Decrement subtracts one unless already at MinQuantity.
func (q Quantity) Decrement() Quantity {
	if q <= MinQuantity {
		return q
	}
	return q - 1
}

func (q Quantity) CanIncrement() bool { return q < MaxQuantity }
func (q Quantity) CanDecrement() bool { return q > MinQuantity }

// FormatPrice renders an amount as dollars with two decimals, e.g. "$109.95".
func FormatPrice(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).StringFixed(2)
}

// LineTotal returns price x quantity formatted like FormatPrice.
func LineTotal(price float64, q Quantity) string {
	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(q)))
	return "$" + total.StringFixed(2)
}
