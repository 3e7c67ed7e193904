package handler

import (
	"net/http"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/cart"
	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
	"github.com/xenking/kart-pricing/pkg/httpmiddleware"
)

// writeDomainError maps domain errors to 4xx responses. Anything else is
// logged and reported as 500 without details.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *discount.ValidationError
		rerr *requestError
	)
	switch {
	case errors.As(err, &verr):
		writeValidationError(w, verr)
	case errors.As(err, &rerr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, rerr.msg)
	case errors.Is(err, pricing.ErrInvalidCartID):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid cart id")
	case errors.Is(err, cart.ErrNilProduct):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "product id is required")
	case errors.Is(err, product.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, discount.ErrRuleNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, "discount rule not found")
	case errors.Is(err, order.ErrEmptyCart):
		httpmiddleware.WriteError(w, http.StatusUnprocessableEntity, "cart is empty")
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeValidationError(w http.ResponseWriter, verr *discount.ValidationError) {
	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	writeJSON(w, http.StatusUnprocessableEntity, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			integer(e, "code", http.StatusUnprocessableEntity)
			str(e, "message", "invalid discount rule")
			e.Field("fields", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, f := range fields {
						str(e, f, verr.Fields[f])
					}
				})
			})
		})
	})
}
