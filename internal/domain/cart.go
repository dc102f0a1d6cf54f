package domain

// Product is a catalog entry embedded into every line item. The JSON shape is
// the persisted layout, so price stays a plain number.
type Product struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Category   string  `json:"category"`
	Rating     float64 `json:"rating"`
	Image      string  `json:"image"`
	IsNew      bool    `json:"isNew,omitempty"`
	IsFeatured bool    `json:"isFeatured,omitempty"`
}

type LineItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Snapshot is what views pull after a change notification.
type Snapshot struct {
	Items    []LineItem `json:"items"`
	Totals   Totals     `json:"totals"`
	Degraded bool       `json:"degraded"`
	Warning  string     `json:"warning,omitempty"`
}

// ItemCount is the number shown on the cart badge.
func ItemCount(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// CloneItems returns a copy that callers may keep or modify.
func CloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// EqualItems compares two carts line by line, order included.
func EqualItems(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
