package discount

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError lists the fields that made a rule unacceptable.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+" "+msg)
	}
	slices.Sort(parts)
	return "invalid discount rule: " + strings.Join(parts, ", ")
}

// Problem is a malformed rule found by Audit.
type Problem struct {
	RuleID   string
	RuleName string
	Issues   []string
}

// ruleInput mirrors Rule with the admin form's required-field constraints.
type ruleInput struct {
	Name             string          `json:"name" validate:"required"`
	Type             Type            `json:"type" validate:"required,oneof=percentage fixed"`
	Value            decimal.Decimal `json:"value" validate:"gte=0"`
	MinQuantity      int             `json:"minQuantity" validate:"gte=1"`
	MaxQuantity      int             `json:"maxQuantity" validate:"gte=0"`
	Scope            Scope           `json:"applicableProducts" validate:"required,oneof=all category specific"`
	CategoryFilter   string          `json:"categoryFilter" validate:"required_if=Scope category"`
	SpecificProducts []string        `json:"specificProducts" validate:"dive,required"`
}

// Admin manages the rule set on behalf of store staff.
type Admin struct {
	store    RuleStore
	validate *validator.Validate
	now      func() time.Time
}

// NewAdmin creates an Admin backed by the given store.
func NewAdmin(store RuleStore) *Admin {
	return &Admin{store: store, validate: newValidator(), now: time.Now}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(ruleInput)
		if in.Type == Percentage && in.Value.GreaterThan(hundred) {
			sl.ReportError(in.Value, "value", "Value", "lte100", "")
		}
		if in.Scope == ScopeSpecific && len(in.SpecificProducts) == 0 {
			sl.ReportError(in.SpecificProducts, "specificProducts", "SpecificProducts", "required", "")
		}
		if in.MaxQuantity != 0 && in.MaxQuantity < in.MinQuantity {
			sl.ReportError(in.MaxQuantity, "maxQuantity", "MaxQuantity", "gtefield", "minQuantity")
		}
	}, ruleInput{})
	return v
}

// Validate checks a rule against the admin constraints.
func (a *Admin) Validate(r Rule) error {
	err := a.validate.Struct(ruleInput{
		Name:             r.Name,
		Type:             r.Type,
		Value:            r.Value,
		MinQuantity:      r.MinQuantity,
		MaxQuantity:      r.MaxQuantity,
		Scope:            r.Scope,
		CategoryFilter:   strings.TrimSpace(r.CategoryFilter),
		SpecificProducts: r.SpecificProducts,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate rule")
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = validationMessage(fe)
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte100":
		return "must not exceed 100 for percentage discounts"
	case "gtefield":
		return "must not be below " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// List returns every stored rule, active or not.
func (a *Admin) List(ctx context.Context) ([]Rule, error) {
	rules, err := a.store.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rules")
	}
	return rules, nil
}

// Create validates and stores a new rule, assigning its ID and timestamps.
func (a *Admin) Create(ctx context.Context, r Rule) (*Rule, error) {
	if err := a.Validate(r); err != nil {
		return nil, err
	}
	now := a.now()
	r.ID = uuid.New().String()
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := a.store.Save(ctx, &r); err != nil {
		return nil, errors.Wrap(err, "save rule")
	}
	return &r, nil
}

// Update replaces an existing rule, keeping its creation time.
func (a *Admin) Update(ctx context.Context, id string, r Rule) (*Rule, error) {
	existing, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(r); err != nil {
		return nil, err
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = a.now()
	if err := a.store.Save(ctx, &r); err != nil {
		return nil, errors.Wrap(err, "save rule")
	}
	return &r, nil
}

// Toggle flips the rule's IsActive flag.
func (a *Admin) Toggle(ctx context.Context, id string) (*Rule, error) {
	r, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	r.IsActive = !r.IsActive
	r.UpdatedAt = a.now()
	if err := a.store.Save(ctx, r); err != nil {
		return nil, errors.Wrap(err, "save rule")
	}
	return r, nil
}

// Delete removes a rule.
func (a *Admin) Delete(ctx context.Context, id string) error {
	return a.store.Delete(ctx, id)
}

// Audit reports every stored rule that the engine would skip.
func (a *Admin) Audit(ctx context.Context) ([]Problem, error) {
	rules, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return Audit(rules), nil
}

// Audit reports the malformed rules among rules.
func Audit(rules []Rule) []Problem {
	var out []Problem
	for _, r := range rules {
		if issues := r.Problems(); len(issues) > 0 {
			out = append(out, Problem{RuleID: r.ID, RuleName: r.Name, Issues: issues})
		}
	}
	return out
}
