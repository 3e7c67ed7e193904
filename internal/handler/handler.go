// Package handler exposes the pricing, cart, checkout and discount admin
// operations as a JSON HTTP API.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-pricing/internal/domain/auth"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the /api routes.
type Handler struct {
	products     product.Repository
	pricing      *pricing.Service
	orderService *order.Service
	admin        *discount.Admin
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	pricingService *pricing.Service,
	orderService *order.Service,
	admin *discount.Admin,
) *Handler {
	return &Handler{
		products:     products,
		pricing:      pricingService,
		orderService: orderService,
		admin:        admin,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Mount registers every API route on r under /api. Checkout and the
// discount admin routes require an API key with the matching scope.
func (h *Handler) Mount(r chi.Router, sec *SecurityHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/product", h.ListProducts)
		r.Get("/product/{productId}", h.GetProduct)
		r.Get("/product/{productId}/discounts", h.ProductDiscounts)

		r.Route("/cart/{cartId}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productId}", h.SetQuantity)
			r.Delete("/items/{productId}", h.RemoveItem)
			r.With(sec.Require(auth.ScopeCreateOrder)).Post("/checkout", h.Checkout)
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Use(sec.Require(auth.ScopeManageDiscounts))
			r.Get("/", h.ListRules)
			r.Post("/", h.CreateRule)
			r.Get("/audit", h.AuditRules)
			r.Put("/{ruleId}", h.UpdateRule)
			r.Delete("/{ruleId}", h.DeleteRule)
			r.Post("/{ruleId}/toggle", h.ToggleRule)
		})
	})
}
