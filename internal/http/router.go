package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Cart     *CartHandler
	Products *ProductHandler
	Checkout *CheckoutHandler
}

func NewRouter(h Handlers, l *zap.Logger, requestTimeout time.Duration) http.Handler {
	if l == nil {
		l = zap.NewNop()
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(l))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		timed := func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(middleware.Compress(5))
		}

		r.Route("/products", func(r chi.Router) {
			timed(r)
			r.Get("/", h.Products.List)
			r.Get("/featured", h.Products.Featured)
			r.Get("/new", h.Products.NewArrivals)
			r.Get("/filters", h.Products.Filters)
			r.Get("/{product_id}", h.Products.Get)
		})
		r.Route("/cart", func(r chi.Router) {
			// long-lived stream, kept out of the request timeout
			r.Get("/events", h.Cart.Events)

			r.Group(func(r chi.Router) {
				timed(r)
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Get("/badge", h.Cart.Badge)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items/{product_id}", h.Cart.UpdateQuantity)
				r.Delete("/items/{product_id}", h.Cart.RemoveItem)
			})
		})
		r.With(middleware.Timeout(requestTimeout)).Post("/checkout", h.Checkout.PlaceOrder)
	})

	return r
}
