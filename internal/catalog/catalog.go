package catalog

import (
	"sort"

	"github.com/fjod/go_cart/cartstore/internal/domain"
)

const (
	CategoryAll = "All"

	SortNone      = "none"
	SortLowToHigh = "low-to-high"
	SortHighToLow = "high-to-low"
)

type PriceRange struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Filter selects products the way the collection page does. Bounds are
// inclusive; a zero MaxPrice means no upper bound.
type Filter struct {
	Category string
	MinPrice float64
	MaxPrice float64
	Sort     string
}

var products = []domain.Product{
	{ID: 1, Name: "NIKE ADAPT BB", Price: 980, Category: "Basketball", Rating: 4.8, Image: "/shoes/Nike_Adapt_BB_Self-Lacing_Black_Men_s.webp", IsNew: true},
	{ID: 2, Name: "ADIDAS ULTRA BOOST", Price: 850, Category: "Running", Rating: 4.5, Image: "/shoes/ie1768_1_footwear_photography_sidelateralcenterview_white.webp"},
	{ID: 3, Name: "PUMA RS-X TECH", Price: 790, Category: "Lifestyle", Rating: 4.2, Image: "/shoes/puma-rs-x-tech-motorola-silver-sodalite-370272-01.jpg", IsFeatured: true},
	{ID: 4, Name: "NEW BALANCE 997S", Price: 720, Category: "Lifestyle", Rating: 4.3, Image: "/shoes/hypebeast.com_image_2019_07_new-balance-997s-new-colorways-summer-2019-1.avif"},
	{ID: 5, Name: "JORDAN PROTO MAX", Price: 1050, Category: "Basketball", Rating: 4.9, Image: "/shoes/Air-Jordan-Proto-Max-720-White-Pure-Platinum-Product.avif", IsNew: true, IsFeatured: true},
	{ID: 6, Name: "NIKE AIR MAX 720", Price: 880, Category: "Running", Rating: 4.6, Image: "/shoes/WhatsAppImage2024-03-15at4.43.39PM.webp"},
	{ID: 7, Name: "ADIDAS OZWEEGO", Price: 650, Category: "Lifestyle", Rating: 4.1, Image: "/shoes/adidas---Men_s-Ozweego-Shoes-_EE6464__01.webp"},
	{ID: 8, Name: "PUMA FUTURE RIDER", Price: 590, Category: "Lifestyle", Rating: 4.0, Image: "/shoes/Future-Rider-Play-On-Sneakers.avif"},
	{ID: 9, Name: "ASICS GEL-QUANTUM", Price: 750, Category: "Running", Rating: 4.4, Image: "/shoes/1203A594_002_SR_RT_GLB.webp", IsNew: true},
	{ID: 10, Name: "UNDER ARMOUR HOVR", Price: 680, Category: "Running", Rating: 4.2, Image: "/shoes/VI_3026582_004_LAT_VRLat.webp"},
	{ID: 11, Name: "REEBOK ZIG KINETICA", Price: 620, Category: "Lifestyle", Rating: 4.0, Image: "/shoes/id1814_1.webp"},
	{ID: 12, Name: "CONVERSE ALL STAR BB", Price: 550, Category: "Basketball", Rating: 4.3, Image: "/shoes/172890c_a_107x1_1.jpg"},
}

const defaultDescription = "This premium footwear combines cutting-edge technology with sleek design aesthetics. " +
	"Featuring advanced cushioning, durable materials, and ergonomic construction, it delivers exceptional comfort and performance. " +
	"Perfect for both athletic activities and casual wear, it's a versatile addition to any footwear collection."

var descriptions = map[int64]string{
	1: "Experience the future of footwear with the Nike Adapt BB. These self-lacing basketball shoes feature advanced FitAdapt technology, " +
		"allowing you to find the perfect fit with just a touch of a button. The lightweight design combined with responsive cushioning provides exceptional court performance.",
	2: "The Adidas Ultra Boost delivers unmatched energy return with each stride. Featuring Primeknit upper construction for a sock-like fit " +
		"and the revolutionary Boost midsole that returns energy with every step. Perfect for serious runners and casual wearers alike.",
	3: "The Puma RS-X Tech blends retro design with modern innovation. These chunky sneakers feature bold color blocking, multiple textures, " +
		"and the RS (Running System) cushioning technology for superior comfort and stability. A statement piece that stands out in any collection.",
	4: "New Balance 997S combines classic heritage with contemporary style. This modern interpretation of the iconic 997 features ENCAP and ABZORB " +
		"cushioning for all-day comfort, while the premium suede and mesh upper provide a luxury feel with athletic functionality.",
	5: "The Jordan Proto Max 720 represents the pinnacle of Air Jordan innovation. Featuring Nike's tallest Air unit to date, these futuristic " +
		"basketball shoes provide unprecedented cushioning and energy return. The adjustable heel straps and lightweight upper ensure a secure, comfortable fit for elite performance.",
}

var categories = []string{CategoryAll, "Basketball", "Running", "Lifestyle"}

var priceRanges = []PriceRange{
	{Label: "All Prices", Min: 0, Max: 10000},
	{Label: "Under $600", Min: 0, Max: 600},
	{Label: "$600 - $800", Min: 600, Max: 800},
	{Label: "$800 - $1000", Min: 800, Max: 1000},
	{Label: "Over $1000", Min: 1000, Max: 10000},
}

// Catalog is a read-only product table.
type Catalog struct {
	products []domain.Product
	byID     map[int64]int
}

// Default returns the storefront's fixed demo catalog.
func Default() *Catalog {
	return New(products)
}

func New(items []domain.Product) *Catalog {
	c := &Catalog{
		products: make([]domain.Product, len(items)),
		byID:     make(map[int64]int, len(items)),
	}
	copy(c.products, items)
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	return c
}

func (c *Catalog) FindProductByID(id int64) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Description(id int64) string {
	if d, ok := descriptions[id]; ok {
		return d
	}
	return defaultDescription
}

func (c *Catalog) All() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) List(f Filter) []domain.Product {
	result := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if f.Category != "" && f.Category != CategoryAll && p.Category != f.Category {
			continue
		}
		if p.Price < f.MinPrice {
			continue
		}
		if f.MaxPrice > 0 && p.Price > f.MaxPrice {
			continue
		}
		result = append(result, p)
	}

	switch f.Sort {
	case SortLowToHigh:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	case SortHighToLow:
		sort.SliceStable(result, func(i, j int) bool { return result[i].Price > result[j].Price })
	}
	return result
}

func (c *Catalog) Featured() []domain.Product {
	return c.where(func(p domain.Product) bool { return p.IsFeatured })
}

func (c *Catalog) NewArrivals() []domain.Product {
	return c.where(func(p domain.Product) bool { return p.IsNew })
}

func (c *Catalog) where(keep func(domain.Product) bool) []domain.Product {
	var out []domain.Product
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func Categories() []string {
	return append([]string(nil), categories...)
}

func PriceRanges() []PriceRange {
	return append([]PriceRange(nil), priceRanges...)
}

func Sorts() []string {
	return []string{SortNone, SortLowToHigh, SortHighToLow}
}

// ValidSort reports whether s is one of the supported sort orders.
func ValidSort(s string) bool {
	switch s {
	case "", SortNone, SortLowToHigh, SortHighToLow:
		return true
	}
	return false
}
