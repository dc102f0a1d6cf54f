package http

import (
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/cartstore/internal/catalog"
	"github.com/fjod/go_cart/cartstore/internal/domain"
)

type ProductHandler struct {
	catalog *catalog.Catalog
}

func NewProductHandler(c *catalog.Catalog) *ProductHandler {
	return &ProductHandler{catalog: c}
}

type ProductResponse struct {
	domain.Product
	Description string `json:"description"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
}

type FiltersResponse struct {
	Categories  []string             `json:"categories"`
	PriceRanges []catalog.PriceRange `json:"price_ranges"`
	Sorts       []string             `json:"sorts"`
}

// List handles GET /api/v1/products?category=&min_price=&max_price=&sort=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}
	if f.Sort != "" && !catalog.ValidSort(f.Sort) {
		respondError(w, http.StatusBadRequest, "invalid_sort", "sort must be none, low-to-high or high-to-low")
		return
	}

	var ok bool
	if f.MinPrice, ok = priceParam(w, q.Get("min_price"), "min_price"); !ok {
		return
	}
	if f.MaxPrice, ok = priceParam(w, q.Get("max_price"), "max_price"); !ok {
		return
	}

	respondJSON(w, http.StatusOK, h.products(h.catalog.List(f)))
}

func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.products(h.catalog.Featured()))
}

func (h *ProductHandler) NewArrivals(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.products(h.catalog.NewArrivals()))
}

// Filters lists the options the storefront offers for narrowing the grid.
func (h *ProductHandler) Filters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, FiltersResponse{
		Categories:  catalog.Categories(),
		PriceRanges: catalog.PriceRanges(),
		Sorts:       catalog.Sorts(),
	})
}

func (h *ProductHandler) products(products []domain.Product) ProductsResponse {
	resp := ProductsResponse{Products: make([]ProductResponse, len(products))}
	for i, p := range products {
		resp.Products[i] = ProductResponse{Product: p, Description: h.catalog.Description(p.ID)}
	}
	return resp
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	p, found := h.catalog.FindProductByID(productID)
	if !found {
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		return
	}
	respondJSON(w, http.StatusOK, ProductResponse{Product: p, Description: h.catalog.Description(p.ID)})
}

func priceParam(w http.ResponseWriter, raw, name string) (float64, bool) {
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", name+" must be a non-negative number")
		return 0, false
	}
	return v, true
}
