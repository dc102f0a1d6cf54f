// Package view holds the three cart consumers of the storefront: the header
// badge, the cart page and the checkout summary. Each is a binding over the
// cart service projecting the snapshot into what the view draws.
package view

import (
	"github.com/fjod/go_cart/cartstore/internal/binding"
	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Catalog resolves cart lines against the current product table.
type Catalog interface {
	FindProductByID(id int64) (domain.Product, bool)
	Description(id int64) string
}

type Line struct {
	Product     domain.Product  `json:"product"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description,omitempty"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	// Unknown marks a line whose product is no longer in the catalog. It
	// is drawn from the snapshot stored with the line.
	Unknown bool `json:"unknown,omitempty"`
}

// Totals is the display form of domain.Totals, amounts rounded to cents.
type Totals struct {
	Subtotal  string `json:"subtotal"`
	Tax       string `json:"tax"`
	Total     string `json:"total"`
	ItemCount int    `json:"item_count"`
}

func DisplayTotals(t domain.Totals) Totals {
	return Totals{
		Subtotal:  domain.Display(t.Subtotal),
		Tax:       domain.Display(t.Tax),
		Total:     domain.Display(t.Total),
		ItemCount: t.ItemCount,
	}
}

type CartPage struct {
	Items    []Line `json:"items"`
	Totals   Totals `json:"totals"`
	Empty    bool   `json:"empty"`
	Degraded bool   `json:"degraded"`
	Warning  string `json:"warning,omitempty"`
}

type CheckoutSummary struct {
	Items  []Line `json:"items"`
	Totals Totals `json:"totals"`
}

// NewBadge binds the header badge: the number of units in the cart.
func NewBadge(src binding.Source, render func(int)) *binding.Binding[int] {
	return binding.New(src, func(s domain.Snapshot) int { return s.Totals.ItemCount }, render)
}

// CartPageOf returns the projection behind NewCartPage. One-off reads of the
// cart page use it directly so they draw exactly what the binding draws.
func CartPageOf(c Catalog, logger *zap.Logger) func(domain.Snapshot) CartPage {
	return func(s domain.Snapshot) CartPage {
		return CartPage{
			Items:    Lines(s.Items, c, logger),
			Totals:   DisplayTotals(s.Totals),
			Empty:    len(s.Items) == 0,
			Degraded: s.Degraded,
			Warning:  s.Warning,
		}
	}
}

func NewCartPage(src binding.Source, c Catalog, logger *zap.Logger, render func(CartPage)) *binding.Binding[CartPage] {
	return binding.New(src, CartPageOf(c, logger), render)
}

func CheckoutSummaryOf(c Catalog, logger *zap.Logger) func(domain.Snapshot) CheckoutSummary {
	return func(s domain.Snapshot) CheckoutSummary {
		return CheckoutSummary{
			Items:  Lines(s.Items, c, logger),
			Totals: DisplayTotals(s.Totals),
		}
	}
}

// NewCheckoutSummary binds the read-only order summary shown next to the
// payment form.
func NewCheckoutSummary(src binding.Source, c Catalog, logger *zap.Logger, render func(CheckoutSummary)) *binding.Binding[CheckoutSummary] {
	return binding.New(src, CheckoutSummaryOf(c, logger), render)
}

// Lines resolves each cart line through the catalog. Name, image and price
// always come from the stored snapshot so line totals agree with the cart
// totals; the catalog contributes the description and the Unknown flag.
func Lines(items []domain.LineItem, c Catalog, logger *zap.Logger) []Line {
	if logger == nil {
		logger = zap.NewNop()
	}
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		line := Line{
			Product:   item.Product,
			Quantity:  item.Quantity,
			LineTotal: decimal.NewFromFloat(item.Product.Price).Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if c != nil {
			if _, ok := c.FindProductByID(item.Product.ID); ok {
				line.Description = c.Description(item.Product.ID)
			} else {
				line.Unknown = true
				logger.Debug("cart line references unknown product",
					zap.Int64("product_id", item.Product.ID))
			}
		}
		lines = append(lines, line)
	}
	return lines
}
