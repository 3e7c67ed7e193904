package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pricing/internal/domain/pricing"
)

// GetCart prices the cart with the current rule set.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	q, err := h.pricing.Quote(r.Context(), chi.URLParam(r, "cartId"))
	h.writeQuote(w, r, http.StatusOK, q, err)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.pricing.ClearCart(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem adds units of a product to the cart and returns the new quote.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	req, err := decodeAddItem(d)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	q, err := h.pricing.AddItem(r.Context(), chi.URLParam(r, "cartId"), req.ProductID, req.Quantity)
	h.writeQuote(w, r, http.StatusOK, q, err)
}

// SetQuantity replaces a line's quantity; zero or less removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	d, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	qty, err := decodeQuantity(d)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	q, err := h.pricing.SetQuantity(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"), qty)
	h.writeQuote(w, r, http.StatusOK, q, err)
}

// RemoveItem drops a product from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	q, err := h.pricing.RemoveItem(r.Context(), chi.URLParam(r, "cartId"), chi.URLParam(r, "productId"))
	h.writeQuote(w, r, http.StatusOK, q, err)
}

// Checkout turns the priced cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderService.Checkout(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) writeQuote(w http.ResponseWriter, r *http.Request, code int, q *pricing.Quote, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, code, func(e *jx.Encoder) { encodeQuote(e, q) })
}
