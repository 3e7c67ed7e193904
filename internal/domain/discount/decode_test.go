package discount

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRule(t *testing.T) {
	r, err := DecodeRule(jx.DecodeStr(`{
		"id": "bulk",
		"name": "Bulk",
		"description": null,
		"type": "percentage",
		"value": "12.5",
		"minQuantity": 5,
		"maxQuantity": 9,
		"applicableProducts": "specific",
		"specificProducts": ["a", "b"],
		"isActive": true,
		"startDate": "2026-03-01T00:00:00Z",
		"endDate": null,
		"extra": {"ignored": [1, 2]}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "bulk", r.ID)
	assert.Equal(t, Percentage, r.Type)
	assert.True(t, d("12.5").Equal(r.Value))
	assert.Equal(t, 5, r.MinQuantity)
	assert.Equal(t, 9, r.MaxQuantity)
	assert.Equal(t, ScopeSpecific, r.Scope)
	assert.Equal(t, []string{"a", "b"}, r.SpecificProducts)
	assert.True(t, r.IsActive)
	require.NotNil(t, r.StartDate)
	assert.True(t, r.StartDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, r.EndDate)
	assert.Empty(t, r.Description)
}

func TestDecodeRuleValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"number", `{"value": 5}`, "5"},
		{"fraction", `{"value": 2.75}`, "2.75"},
		{"string", `{"value": "0.50"}`, "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeRule(jx.DecodeStr(tt.input))
			require.NoError(t, err)
			assert.True(t, d(tt.want).Equal(r.Value), "got %s", r.Value)
		})
	}
}

func TestDecodeRuleErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not an object", `[]`},
		{"bool value", `{"value": true}`},
		{"bad number string", `{"value": "ten"}`},
		{"bad date", `{"startDate": "March"}`},
		{"string quantity", `{"minQuantity": "5"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRule(jx.DecodeStr(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeRules(t *testing.T) {
	rules, err := DecodeRules([]byte(`[
		{"id": "a", "name": "A", "type": "fixed", "value": 1, "minQuantity": 2, "applicableProducts": "all"},
		{"id": "b", "name": "B", "type": "percentage", "value": 10, "minQuantity": 5, "applicableProducts": "category", "categoryFilter": "Cake"}
	]`))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].ID)
	assert.Equal(t, "Cake", rules[1].CategoryFilter)

	_, err = DecodeRules([]byte(`[{"id": "a"}, {"value": []}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1")
}
