package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRuleStore struct {
	rules   map[string]Rule
	saveErr error
}

func newMockRuleStore(rules ...Rule) *mockRuleStore {
	m := &mockRuleStore{rules: make(map[string]Rule)}
	for _, r := range rules {
		m.rules[r.ID] = r
	}
	return m
}

func (m *mockRuleStore) List(_ context.Context) ([]Rule, error) {
	out := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRuleStore) Get(_ context.Context, id string) (*Rule, error) {
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return &r, nil
}

func (m *mockRuleStore) Save(_ context.Context, r *Rule) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rules[r.ID] = *r
	return nil
}

func (m *mockRuleStore) Delete(_ context.Context, id string) error {
	if _, ok := m.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

func newTestAdmin(store RuleStore) *Admin {
	a := NewAdmin(store)
	a.now = func() time.Time { return fixedNow }
	return a
}

func TestAdmin_Validate(t *testing.T) {
	valid := Rule{Name: "Bulk", Type: Percentage, Value: d("10"), MinQuantity: 5, Scope: ScopeAll}

	tests := []struct {
		name      string
		mutate    func(r *Rule)
		wantField string
	}{
		{name: "valid rule"},
		{name: "missing name", mutate: func(r *Rule) { r.Name = "" }, wantField: "name"},
		{name: "unknown type", mutate: func(r *Rule) { r.Type = "bogo" }, wantField: "type"},
		{name: "negative value", mutate: func(r *Rule) { r.Value = d("-1") }, wantField: "value"},
		{name: "percentage above 100", mutate: func(r *Rule) { r.Value = d("101") }, wantField: "value"},
		{name: "zero min quantity", mutate: func(r *Rule) { r.MinQuantity = 0 }, wantField: "minQuantity"},
		{name: "max below min", mutate: func(r *Rule) { r.MaxQuantity = 2 }, wantField: "maxQuantity"},
		{name: "unknown scope", mutate: func(r *Rule) { r.Scope = "vip" }, wantField: "applicableProducts"},
		{
			name:      "category scope needs filter",
			mutate:    func(r *Rule) { r.Scope = ScopeCategory; r.CategoryFilter = "  " },
			wantField: "categoryFilter",
		},
		{
			name:      "specific scope needs products",
			mutate:    func(r *Rule) { r.Scope = ScopeSpecific; r.SpecificProducts = []string{} },
			wantField: "specificProducts",
		},
		{
			name:   "fixed above 100 is fine",
			mutate: func(r *Rule) { r.Type = Fixed; r.Value = d("250") },
		},
	}

	a := newTestAdmin(newMockRuleStore())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			if tt.mutate != nil {
				tt.mutate(&r)
			}

			err := a.Validate(r)
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.wantField)
		})
	}
}

func TestAdmin_Create(t *testing.T) {
	store := newMockRuleStore()
	a := newTestAdmin(store)

	created, err := a.Create(context.Background(), Rule{
		Name: "Bulk", Type: Fixed, Value: d("5"), MinQuantity: 3, Scope: ScopeAll, IsActive: true,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, fixedNow, created.CreatedAt)
	assert.Equal(t, fixedNow, created.UpdatedAt)
	assert.Contains(t, store.rules, created.ID)
}

func TestAdmin_CreateInvalid(t *testing.T) {
	store := newMockRuleStore()
	a := newTestAdmin(store)

	_, err := a.Create(context.Background(), Rule{Type: Fixed})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, store.rules)
}

func TestAdmin_CreateStoreError(t *testing.T) {
	store := newMockRuleStore()
	store.saveErr = errors.New("disk full")
	a := newTestAdmin(store)

	_, err := a.Create(context.Background(), Rule{
		Name: "Bulk", Type: Fixed, Value: d("5"), MinQuantity: 3, Scope: ScopeAll,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save rule")
}

func TestAdmin_UpdateKeepsIdentity(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	store := newMockRuleStore(Rule{
		ID: "r1", Name: "Old", Type: Fixed, Value: d("1"), MinQuantity: 1, Scope: ScopeAll, CreatedAt: created,
	})
	a := newTestAdmin(store)

	updated, err := a.Update(context.Background(), "r1", Rule{
		ID: "ignored", Name: "New", Type: Percentage, Value: d("20"), MinQuantity: 4, Scope: ScopeAll,
	})

	require.NoError(t, err)
	assert.Equal(t, "r1", updated.ID)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, fixedNow, updated.UpdatedAt)
	assert.Equal(t, "New", store.rules["r1"].Name)
	assert.NotContains(t, store.rules, "ignored")
}

func TestAdmin_UpdateMissing(t *testing.T) {
	a := newTestAdmin(newMockRuleStore())

	_, err := a.Update(context.Background(), "nope", Rule{Name: "x", Type: Fixed, MinQuantity: 1, Scope: ScopeAll})

	require.ErrorIs(t, err, ErrRuleNotFound)
}

func TestAdmin_Toggle(t *testing.T) {
	store := newMockRuleStore(pctRule("r1", "10", 1))
	a := newTestAdmin(store)

	r, err := a.Toggle(context.Background(), "r1")
	require.NoError(t, err)
	assert.False(t, r.IsActive)
	assert.False(t, store.rules["r1"].IsActive)

	r, err = a.Toggle(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, r.IsActive)
}

func TestAdmin_Delete(t *testing.T) {
	store := newMockRuleStore(pctRule("r1", "10", 1))
	a := newTestAdmin(store)

	require.NoError(t, a.Delete(context.Background(), "r1"))
	assert.Empty(t, store.rules)
	require.ErrorIs(t, a.Delete(context.Background(), "r1"), ErrRuleNotFound)
}

func TestAdmin_Audit(t *testing.T) {
	broken := pctRule("broken", "10", 1)
	broken.Scope = ScopeCategory
	store := newMockRuleStore(pctRule("ok", "10", 1), broken)
	a := newTestAdmin(store)

	problems, err := a.Audit(context.Background())

	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "broken", problems[0].RuleID)
	assert.Equal(t, []string{"category scope without category filter"}, problems[0].Issues)
}
