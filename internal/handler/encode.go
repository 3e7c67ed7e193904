package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/domain/product"
)

func writeJSON(w http.ResponseWriter, code int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// money writes an exact decimal as a JSON number.
func money(e *jx.Encoder, name string, v decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { e.Num(jx.Num(v.String())) })
}

func str(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func integer(e *jx.Encoder, name string, v int) {
	e.Field(name, func(e *jx.Encoder) { e.Int(v) })
}

func boolean(e *jx.Encoder, name string, v bool) {
	e.Field(name, func(e *jx.Encoder) { e.Bool(v) })
}

func timestamp(e *jx.Encoder, name string, t *time.Time) {
	e.Field(name, func(e *jx.Encoder) {
		if t == nil || t.IsZero() {
			e.Null()
			return
		}
		e.Str(t.UTC().Format(time.RFC3339))
	})
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.imageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", p.ID)
		str(e, "name", p.Name)
		money(e, "price", p.Price)
		str(e, "displayPrice", product.FormatPrice(p.Price))
		str(e, "category", p.Category)
		e.Field("image", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				str(e, "thumbnail", h.imageURL(p.Image.Thumbnail))
				str(e, "mobile", h.imageURL(p.Image.Mobile))
				str(e, "tablet", h.imageURL(p.Image.Tablet))
				str(e, "desktop", h.imageURL(p.Image.Desktop))
			})
		})
	})
}

func encodeTier(e *jx.Encoder, t discount.Tier) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "ruleId", t.RuleID)
		str(e, "name", t.Name)
		str(e, "description", t.Description)
		str(e, "type", string(t.Type))
		money(e, "value", t.Value)
		str(e, "text", discount.FormatDiscountText(t.Type, t.Value))
		integer(e, "minQuantity", t.MinQuantity)
		integer(e, "maxQuantity", t.MaxQuantity)
		money(e, "savings", t.Savings)
		money(e, "originalPrice", t.OriginalPrice)
		money(e, "discountedPrice", t.DiscountedPrice)
		money(e, "savingsPercentage", t.SavingsPercentage)
	})
}

func encodeNextTier(e *jx.Encoder, name string, next *discount.NextTier) {
	e.Field(name, func(e *jx.Encoder) {
		if next == nil {
			e.Null()
			return
		}
		e.Obj(func(e *jx.Encoder) {
			str(e, "ruleId", next.Tier.RuleID)
			str(e, "name", next.Tier.Name)
			integer(e, "minQuantity", next.Tier.MinQuantity)
			integer(e, "quantityNeeded", next.QuantityNeeded)
			money(e, "potentialSavings", next.PotentialSavings)
			str(e, "message", next.Message)
		})
	})
}

func encodeOffer(e *jx.Encoder, o *pricing.Offer) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "productId", o.Product.ID)
		integer(e, "quantity", o.Quantity)
		boolean(e, "qualifies", o.Qualifies)
		e.Field("tiers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range o.Tiers {
					encodeTier(e, t)
				}
			})
		})
		encodeNextTier(e, "nextTier", o.Next)
	})
}

func encodeQuote(e *jx.Encoder, q *pricing.Quote) {
	p := q.Pricing
	e.Obj(func(e *jx.Encoder) {
		str(e, "cartId", q.CartID)
		integer(e, "itemCount", q.ItemCount)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, line := range p.Lines {
					e.Obj(func(e *jx.Encoder) {
						str(e, "productId", line.Item.ProductID)
						str(e, "name", line.Item.Name)
						str(e, "category", line.Item.Category)
						money(e, "unitPrice", line.Item.UnitPrice)
						integer(e, "quantity", line.Item.Quantity)
						money(e, "originalTotal", line.OriginalTotal)
						money(e, "discountedTotal", line.DiscountedTotal)
						money(e, "savings", line.Savings)
						e.Field("discount", func(e *jx.Encoder) {
							if line.Discount == nil {
								e.Null()
								return
							}
							d := line.Discount
							e.Obj(func(e *jx.Encoder) {
								str(e, "id", d.ID)
								str(e, "name", d.Name)
								str(e, "type", string(d.Type))
								money(e, "value", d.Value)
								str(e, "text", discount.FormatDiscountText(d.Type, d.Value))
							})
						})
						encodeNextTier(e, "nextTier", q.NextTiers[line.Item.ProductID])
					})
				}
			})
		})
		money(e, "totalOriginal", p.TotalOriginal)
		money(e, "totalSavings", p.TotalSavings)
		money(e, "totalDiscounted", p.TotalDiscounted)
		boolean(e, "hasDiscounts", p.HasDiscounts)
		e.Field("summary", func(e *jx.Encoder) {
			s := q.Summary
			if s == nil {
				e.Null()
				return
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("appliedDiscounts", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, name := range s.AppliedDiscounts {
							e.Str(name)
						}
					})
				})
				money(e, "savingsPercentage", s.SavingsPercentage.Round(2))
				str(e, "savingsText", discount.FormatSavings(s.TotalSavings))
			})
		})
	})
}

func encodeRule(e *jx.Encoder, r discount.Rule) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", r.ID)
		str(e, "name", r.Name)
		str(e, "description", r.Description)
		str(e, "type", string(r.Type))
		money(e, "value", r.Value)
		integer(e, "minQuantity", r.MinQuantity)
		integer(e, "maxQuantity", r.MaxQuantity)
		str(e, "applicableProducts", string(r.Scope))
		str(e, "categoryFilter", r.CategoryFilter)
		e.Field("specificProducts", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, id := range r.SpecificProducts {
					e.Str(id)
				}
			})
		})
		boolean(e, "isActive", r.IsActive)
		timestamp(e, "startDate", r.StartDate)
		timestamp(e, "endDate", r.EndDate)
		timestamp(e, "createdAt", &r.CreatedAt)
		timestamp(e, "updatedAt", &r.UpdatedAt)
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", o.ID)
		str(e, "cartId", o.CartID)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						str(e, "productId", it.ProductID)
						str(e, "name", it.Name)
						integer(e, "quantity", it.Quantity)
						money(e, "unitPrice", it.UnitPrice)
						money(e, "lineTotal", it.LineTotal)
						str(e, "discount", it.Discount)
					})
				}
			})
		})
		money(e, "subtotal", o.Subtotal)
		money(e, "discounts", o.Discounts)
		money(e, "total", o.Total)
		timestamp(e, "createdAt", &o.CreatedAt)
	})
}
