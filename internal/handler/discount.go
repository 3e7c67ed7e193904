package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

// ListRules returns every stored rule, including inactive ones.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.admin.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, rule := range rules {
				encodeRule(e, rule)
			}
		})
	})
}

// CreateRule validates and stores a new rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readRule(w, r)
	if !ok {
		return
	}
	rule, err := h.admin.Create(r.Context(), in)
	h.writeRule(w, r, http.StatusCreated, rule, err)
}

// UpdateRule replaces an existing rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readRule(w, r)
	if !ok {
		return
	}
	rule, err := h.admin.Update(r.Context(), chi.URLParam(r, "ruleId"), in)
	h.writeRule(w, r, http.StatusOK, rule, err)
}

// ToggleRule flips a rule between active and inactive.
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.admin.Toggle(r.Context(), chi.URLParam(r, "ruleId"))
	h.writeRule(w, r, http.StatusOK, rule, err)
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), chi.URLParam(r, "ruleId")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AuditRules reports stored rules that pricing would skip as malformed.
func (h *Handler) AuditRules(w http.ResponseWriter, r *http.Request) {
	problems, err := h.admin.Audit(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range problems {
				e.Obj(func(e *jx.Encoder) {
					str(e, "ruleId", p.RuleID)
					str(e, "ruleName", p.RuleName)
					e.Field("issues", func(e *jx.Encoder) {
						e.Arr(func(e *jx.Encoder) {
							for _, issue := range p.Issues {
								e.Str(issue)
							}
						})
					})
				})
			}
		})
	})
}

func (h *Handler) readRule(w http.ResponseWriter, r *http.Request) (discount.Rule, bool) {
	d, err := readBody(w, r)
	if err != nil {
		writeDomainError(w, r, err)
		return discount.Rule{}, false
	}
	rule, err := decodeRule(d)
	if err != nil {
		writeDomainError(w, r, err)
		return discount.Rule{}, false
	}
	return rule, true
}

func (h *Handler) writeRule(w http.ResponseWriter, r *http.Request, code int, rule *discount.Rule, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, code, func(e *jx.Encoder) { encodeRule(e, *rule) })
}
