package domain

import "github.com/shopspring/decimal"

// TaxRate is the flat estimated tax applied at cart and checkout.
var TaxRate = decimal.NewFromFloat(0.10)

type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// ComputeTotals derives subtotal, tax and total from the embedded product
// prices. It is never cached.
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		price := decimal.NewFromFloat(item.Product.Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tax := subtotal.Mul(TaxRate)
	return Totals{
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		ItemCount: ItemCount(items),
	}
}

// Display formats an amount the way the storefront prints prices.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
