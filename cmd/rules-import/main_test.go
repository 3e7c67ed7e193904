package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pricing/internal/domain/discount"
)

func writeFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	body := strings.Join(lines, "\n") + "\n"
	if !strings.HasSuffix(name, ".gz") {
		_, err = f.WriteString(body)
		require.NoError(t, err)
		return path
	}
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

const (
	ruleA  = `{"id":"a","name":"A","type":"percentage","value":5,"minQuantity":5,"applicableProducts":"all","isActive":true}`
	ruleB  = `{"id":"b","name":"B","type":"fixed","value":"0.50","minQuantity":3,"applicableProducts":"category","categoryFilter":"Cake","isActive":true}`
	ruleA2 = `{"id":"a","name":"A v2","type":"percentage","value":7,"minQuantity":5,"applicableProducts":"all","isActive":true}`
)

func TestReadAll(t *testing.T) {
	first := writeFile(t, "first.jsonl.gz", ruleA, "", ruleB)
	second := writeFile(t, "second.jsonl", ruleA2)

	parsed, malformed, err := readAll(t.Context(), []string{first, second})
	require.NoError(t, err)
	assert.Empty(t, malformed)
	require.Len(t, parsed, 2)

	require.Len(t, parsed[0], 2)
	assert.Equal(t, "a", parsed[0][0].rule.ID)
	assert.Equal(t, 1, parsed[0][0].line)
	assert.Equal(t, "b", parsed[0][1].rule.ID)
	assert.Equal(t, 3, parsed[0][1].line)
	require.Len(t, parsed[1], 1)
	assert.Equal(t, "A v2", parsed[1][0].rule.Name)
}

func TestReadAllErrors(t *testing.T) {
	tests := []struct {
		name  string
		files func(t *testing.T) []string
		want  string
	}{
		{
			name: "missing file",
			files: func(t *testing.T) []string {
				return []string{filepath.Join(t.TempDir(), "nope.jsonl")}
			},
			want: "nope.jsonl",
		},
		{
			name: "not gzip",
			files: func(t *testing.T) []string {
				path := filepath.Join(t.TempDir(), "plain.jsonl.gz")
				require.NoError(t, os.WriteFile(path, []byte(ruleA), 0o600))
				return []string{path}
			},
			want: "gzip",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := readAll(t.Context(), tt.files(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadAllSkipsMalformedLines(t *testing.T) {
	bad := writeFile(t, "bad.jsonl", ruleA, `{"id":`, `{"id":"x","minQuantity":"many"}`)
	good := writeFile(t, "good.jsonl", ruleB)

	parsed, malformed, err := readAll(t.Context(), []string{bad, good})
	require.NoError(t, err)

	require.Len(t, parsed[0], 1)
	assert.Equal(t, "a", parsed[0][0].rule.ID)
	require.Len(t, parsed[1], 1)
	assert.Equal(t, "b", parsed[1][0].rule.ID)

	require.Len(t, malformed, 2)
	assert.Equal(t, bad+":2", location(malformed[0].src))
	assert.Equal(t, bad+":3", location(malformed[1].src))
	for _, m := range malformed {
		assert.ErrorContains(t, m.err, "decode")
	}
}

func src(file string, line int, r discount.Rule) sourcedRule {
	return sourcedRule{rule: r, file: file, line: line}
}

func TestMerge(t *testing.T) {
	a1 := discount.Rule{ID: "a", Name: "first"}
	b := discount.Rule{ID: "b", Name: "b"}
	a2 := discount.Rule{ID: "a", Name: "second"}
	a3 := discount.Rule{ID: "a", Name: "third"}

	rules, dups := merge([][]sourcedRule{
		{src("one", 1, a1), src("one", 2, b)},
		{src("two", 1, a2)},
		{src("three", 4, a3)},
	})

	require.Len(t, rules, 2)
	assert.Equal(t, "third", rules[0].rule.Name, "later file wins, position kept")
	assert.Equal(t, "b", rules[1].rule.ID)

	require.Len(t, dups, 2)
	assert.Equal(t, "one:1", location(dups[0].previous))
	assert.Equal(t, "two:1", location(dups[0].current))
	assert.Equal(t, "two:1", location(dups[1].previous))
	assert.Equal(t, "three:4", location(dups[1].current))
}

func TestValidate(t *testing.T) {
	first := writeFile(t, "rules.jsonl",
		ruleA,
		`{"name":"no id","type":"fixed","value":1,"minQuantity":1,"applicableProducts":"all"}`,
		`{"id":"c","name":"too much","type":"percentage","value":120,"minQuantity":1,"applicableProducts":"all"}`,
	)
	parsed, _, err := readAll(t.Context(), []string{first})
	require.NoError(t, err)

	accepted, invalid := validate(parsed)
	rules, _ := merge(accepted)
	valid := stamp(rules, time.Now())

	require.Len(t, valid, 1)
	assert.Equal(t, "a", valid[0].ID)
	assert.False(t, valid[0].CreatedAt.IsZero())

	require.Len(t, invalid, 2)
	assert.EqualError(t, invalid[0].err, "rule id is required")
	var verr *discount.ValidationError
	require.ErrorAs(t, invalid[1].err, &verr)
	assert.Contains(t, verr.Fields, "value")
}

func TestInvalidRedefinitionKeepsEarlierRule(t *testing.T) {
	first := writeFile(t, "first.jsonl", ruleA, ruleB)
	second := writeFile(t, "second.jsonl",
		`{"id":"a","name":"A broken","type":"percentage","value":150,"minQuantity":5,"applicableProducts":"all","isActive":true}`,
	)
	parsed, _, err := readAll(t.Context(), []string{first, second})
	require.NoError(t, err)

	accepted, invalid := validate(parsed)
	rules, dups := merge(accepted)

	require.Len(t, invalid, 1)
	assert.Equal(t, second+":1", location(invalid[0].src))
	assert.Empty(t, dups)
	require.Len(t, rules, 2)
	assert.Equal(t, "A", rules[0].rule.Name)
	assert.Equal(t, "b", rules[1].rule.ID)
}
