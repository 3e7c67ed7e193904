package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

const (
	ruleColumns = `id, name, description, type, value, min_quantity, max_quantity, scope,
		category_filter, specific_products, is_active, start_date, end_date, created_at, updated_at`

	listRulesSQL = `SELECT ` + ruleColumns + ` FROM discount_rules ORDER BY seq`

	getRuleSQL = `SELECT ` + ruleColumns + ` FROM discount_rules WHERE id = $1`

	upsertRuleSQL = `INSERT INTO discount_rules (` + ruleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			type = EXCLUDED.type,
			value = EXCLUDED.value,
			min_quantity = EXCLUDED.min_quantity,
			max_quantity = EXCLUDED.max_quantity,
			scope = EXCLUDED.scope,
			category_filter = EXCLUDED.category_filter,
			specific_products = EXCLUDED.specific_products,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at`

	deleteRuleSQL = `DELETE FROM discount_rules WHERE id = $1`
)

var _ discount.RuleStore = (*RuleRepository)(nil)

// RuleRepository implements discount.RuleStore backed by PostgreSQL. Rules
// are listed in insertion order, which the engine uses to break ties.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// List returns every rule, active or not.
func (r *RuleRepository) List(ctx context.Context) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listRulesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list discount rules")
	}
	return pgx.CollectRows(rows, scanRule)
}

// Get returns the rule with the given ID or discount.ErrRuleNotFound.
func (r *RuleRepository) Get(ctx context.Context, id string) (*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, getRuleSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get discount rule %q", id)
	}
	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrRuleNotFound
		}
		return nil, errors.Wrapf(err, "get discount rule %q", id)
	}
	return &rule, nil
}

// Save inserts or replaces a rule. Replacing keeps its list position.
func (r *RuleRepository) Save(ctx context.Context, rule *discount.Rule) error {
	if _, err := r.pool.Exec(ctx, upsertRuleSQL, ruleArgs(rule)...); err != nil {
		return errors.Wrapf(err, "save discount rule %q", rule.ID)
	}
	return nil
}

// SaveAll upserts rules in one batch, in order.
func (r *RuleRepository) SaveAll(ctx context.Context, rules []discount.Rule) error {
	batch := &pgx.Batch{}
	for i := range rules {
		batch.Queue(upsertRuleSQL, ruleArgs(&rules[i])...)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "save discount rules")
	}
	return nil
}

// Delete removes a rule; discount.ErrRuleNotFound when it does not exist.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRuleSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete discount rule %q", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrRuleNotFound
	}
	return nil
}

func ruleArgs(rule *discount.Rule) []any {
	products := rule.SpecificProducts
	if products == nil {
		products = []string{}
	}
	return []any{
		rule.ID, rule.Name, rule.Description, string(rule.Type), rule.Value,
		rule.MinQuantity, rule.MaxQuantity, string(rule.Scope),
		rule.CategoryFilter, products, rule.IsActive,
		rule.StartDate, rule.EndDate, rule.CreatedAt, rule.UpdatedAt,
	}
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule       discount.Rule
		typ, scope string
	)
	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &typ, &rule.Value,
		&rule.MinQuantity, &rule.MaxQuantity, &scope,
		&rule.CategoryFilter, &rule.SpecificProducts, &rule.IsActive,
		&rule.StartDate, &rule.EndDate, &rule.CreatedAt, &rule.UpdatedAt,
	)
	rule.Type = discount.Type(typ)
	rule.Scope = discount.Scope(scope)
	return rule, err
}
