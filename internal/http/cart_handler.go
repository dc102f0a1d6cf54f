package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/fjod/go_cart/cartstore/internal/notify"
	"github.com/fjod/go_cart/cartstore/internal/view"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaxQuantity caps a single cart line; the service enforces it across
// repeated adds.
const MaxQuantity = 99

type CartService interface {
	AddItem(ctx context.Context, product domain.Product, quantity int) error
	SetQuantity(ctx context.Context, productID int64, quantity int) error
	RemoveItem(ctx context.Context, productID int64) error
	Clear(ctx context.Context) error
	Snapshot(ctx context.Context) domain.Snapshot
	Subscribe() *notify.Subscription
}

type CartHandler struct {
	cart    CartService
	catalog view.Catalog
	page    func(domain.Snapshot) view.CartPage
	timeout time.Duration
	logger  *zap.Logger
}

func NewCartHandler(cart CartService, catalog view.Catalog, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		cart:    cart,
		catalog: catalog,
		page:    view.CartPageOf(catalog, logger),
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the cart page as the storefront draws it; the same
// projection backs the page stream on /cart/events.
type (
	CartResponse = view.CartPage
	TotalsDTO    = view.Totals
)

type BadgeResponse struct {
	Count int `json:"count"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, h.cartResponse(ctx))
}

func (h *CartHandler) Badge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	respondJSON(w, http.StatusOK, BadgeResponse{Count: h.cart.Snapshot(ctx).Totals.ItemCount})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	product, ok := h.catalog.FindProductByID(req.ProductID)
	if !ok {
		handleError(w, fmt.Errorf("product %d: %w", req.ProductID, domain.ErrUnknownProduct))
		return
	}

	if err := h.cart.AddItem(ctx, product, req.Quantity); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.cartResponse(ctx))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity <= 0 || req.Quantity > MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	if err := h.cart.SetQuantity(ctx, productID, req.Quantity); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.cart.RemoveItem(ctx, productID); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.cart.Clear(ctx); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse(ctx))
}

// Events streams a cart view as server-sent events. The view query
// parameter picks badge (default), page or summary; each stream mounts its
// own binding for as long as the client stays connected.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("view") {
	case "", "badge":
		stream(h, w, r, "badge", func(render func(BadgeResponse)) mountable {
			return view.NewBadge(h.cart, func(n int) { render(BadgeResponse{Count: n}) })
		})
	case "page":
		stream(h, w, r, "page", func(render func(view.CartPage)) mountable {
			return view.NewCartPage(h.cart, h.catalog, h.logger, render)
		})
	case "summary":
		stream(h, w, r, "summary", func(render func(view.CheckoutSummary)) mountable {
			return view.NewCheckoutSummary(h.cart, h.catalog, h.logger, render)
		})
	default:
		respondError(w, http.StatusBadRequest, "invalid_view", "view must be one of badge, page, summary")
	}
}

type mountable interface {
	Mount(ctx context.Context) error
	Unmount()
}

// stream mounts the binding built by bind and writes every render as one
// event. Renders that arrive faster than the client reads are coalesced to
// the latest.
func stream[T any](h *CartHandler, w http.ResponseWriter, r *http.Request, event string, bind func(render func(T)) mountable) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming is not supported")
		return
	}

	latest := make(chan T, 1)
	b := bind(func(v T) {
		for {
			select {
			case latest <- v:
				return
			default:
				select {
				case <-latest:
				default:
				}
			}
		}
	})
	if err := b.Mount(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	defer b.Unmount()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case v := <-latest:
			data, err := json.Marshal(v)
			if err != nil {
				h.logger.Warn("failed to encode event", zap.String("event", event), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
				h.logger.Debug("event stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func (h *CartHandler) cartResponse(ctx context.Context) CartResponse {
	return h.page(h.cart.Snapshot(ctx))
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return 0, false
	}
	return productID, true
}
