package cart

import (
	"github.com/easyshop/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// CartLine is one aggregated cart entry joined with its product snapshot.
// UnitPrice is the catalog price observed at aggregation time; checkout reuses
// it verbatim so totals and persisted line items always agree.
type CartLine struct {
	ProductID       int64           `json:"product_id"`
	ProductName     string          `json:"product_name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// LineTotal computes quantity × price × (1 − discount), rounded to currency
// precision. Rounding happens per line before summation so cart totals never
// accumulate sub-cent drift.
func (l CartLine) LineTotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	net := gross.Mul(decimal.NewFromInt(1).Sub(l.DiscountPercent))
	return net.Round(2)
}

// Cart is the derived, priced view of a user's pending selections. It is
// recomputed on every read and never persisted as a unit.
type Cart struct {
	UserID int64      `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

// Total sums the rounded line totals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// IsEmpty reports whether the cart holds no lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// Snapshot returns the raw (product, quantity) rows backing this aggregate,
// used for the conditional clear at checkout time.
func (c *Cart) Snapshot() []models.ShoppingCartItem {
	items := make([]models.ShoppingCartItem, 0, len(c.Lines))
	for _, line := range c.Lines {
		items = append(items, models.ShoppingCartItem{
			UserID:    c.UserID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return items
}
