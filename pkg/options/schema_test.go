package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema_IsValid(t *testing.T) {
	require.NoError(t, DefaultSchema().Validate())
}

func TestDefaultSchema_EveryKeyHasOneKind(t *testing.T) {
	schema := DefaultSchema()
	defaults := schema.Defaults()

	require.Len(t, defaults, len(schema.Keys()))
	for _, key := range schema.Keys() {
		spec, ok := schema.Lookup(key)
		require.True(t, ok, key)
		t.Run(spec.Key, func(t *testing.T) {
			_, inDefaults := defaults[spec.Key]
			assert.True(t, inDefaults)
			assert.Contains(t, []Kind{KindString, KindBool, KindInt, KindStringList, KindInsertEntry, KindDefaultFile}, spec.Kind)
			if spec.Repeatable {
				assert.Equal(t, KindString, spec.Kind)
			}
		})
	}
}

func TestDefaultSchema_KindsMatchFavaTable(t *testing.T) {
	schema := DefaultSchema()

	expected := map[Kind][]string{
		KindBool: {
			"account-journal-include-children",
			"auto-reload",
			"show-accounts-with-zero-balance",
			"show-accounts-with-zero-transactions",
			"show-closed-accounts",
			"use-external-editor",
		},
		KindInt: {
			"currency-column",
			"sidebar-show-queries",
			"upcoming-events",
			"uptodate-indicator-grey-lookback-days",
		},
		KindStringList: {
			"conversion-currencies",
			"import-dirs",
			"journal-show",
			"journal-show-document",
			"journal-show-transaction",
		},
		KindString: {
			"collapse-pattern",
			"fiscal-year-end",
			"import-config",
			"interval",
			"language",
			"locale",
			"unrealized",
		},
		KindDefaultFile: {KeyDefaultFile},
		KindInsertEntry: {KeyInsertEntry},
	}

	seen := map[string]bool{}
	for kind, keys := range expected {
		for _, key := range keys {
			spec, ok := schema.Lookup(key)
			require.True(t, ok, key)
			assert.Equal(t, kind, spec.Kind, key)
			assert.False(t, seen[key], "%s listed twice", key)
			seen[key] = true
		}
	}
	assert.Len(t, seen, len(schema.Keys()))

	spec, _ := schema.Lookup("collapse-pattern")
	assert.True(t, spec.Repeatable)
}

func TestDefaultSchema_Defaults(t *testing.T) {
	d := DefaultSchema().Defaults()

	assert.Equal(t, true, d["account-journal-include-children"])
	assert.Equal(t, 61, d["currency-column"])
	assert.Equal(t, []string{}, d["collapse-pattern"])
	assert.Len(t, d["conversion-currencies"], 179)
	assert.Nil(t, d[KeyDefaultFile])
	assert.Equal(t, "12-31", d["fiscal-year-end"])
	assert.Nil(t, d["import-config"])
	assert.Equal(t, []InsertEntryOption{}, d[KeyInsertEntry])
	assert.Equal(t, "month", d["interval"])
	assert.Equal(t, []string{"transaction", "balance", "note", "document", "custom", "budget", "query"}, d["journal-show"])
	assert.Equal(t, []string{"discovered", "statement"}, d["journal-show-document"])
	assert.Equal(t, []string{"cleared", "pending"}, d["journal-show-transaction"])
	assert.Nil(t, d["language"])
	assert.Nil(t, d["locale"])
	assert.Equal(t, 5, d["sidebar-show-queries"])
	assert.Equal(t, "Unrealized", d["unrealized"])
	assert.Equal(t, 7, d["upcoming-events"])
	assert.Equal(t, 60, d["uptodate-indicator-grey-lookback-days"])
	assert.Equal(t, false, d["use-external-editor"])
}

func TestSchema_DefaultsAreIndependentCopies(t *testing.T) {
	schema := DefaultSchema()

	first := schema.Defaults()
	list := first["journal-show"].([]string)
	list[0] = "mutated"
	first["currency-column"] = 1

	second := schema.Defaults()
	assert.Equal(t, "transaction", second["journal-show"].([]string)[0])
	assert.Equal(t, 61, second["currency-column"])

	spec, _ := schema.Lookup("conversion-currencies")
	spec.Default.([]string)[0] = "XXX"
	assert.Equal(t, "AED", schema.Defaults()["conversion-currencies"].([]string)[0])
}

func TestNewSchema_RejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{"duplicate key", []Spec{
			{Key: "a", Kind: KindBool, Default: true},
			{Key: "a", Kind: KindBool, Default: false},
		}},
		{"empty key", []Spec{{Key: "", Kind: KindInt, Default: 1}}},
		{"unknown kind", []Spec{{Key: "a", Kind: Kind(99), Default: "x"}}},
		{"zero kind", []Spec{{Key: "a", Default: "x"}}},
		{"bool default mismatch", []Spec{{Key: "a", Kind: KindBool, Default: "true"}}},
		{"int default mismatch", []Spec{{Key: "a", Kind: KindInt, Default: int64(1)}}},
		{"list default mismatch", []Spec{{Key: "a", Kind: KindStringList, Default: "x y"}}},
		{"repeatable non-string", []Spec{{Key: "a", Kind: KindInt, Repeatable: true, Default: []string{}}}},
		{"repeatable scalar default", []Spec{{Key: "a", Kind: KindString, Repeatable: true, Default: "x"}}},
		{"insert-entry default mismatch", []Spec{{Key: "a", Kind: KindInsertEntry, Default: []string{}}}},
		{"uncopyable default", []Spec{{Key: "a", Kind: KindString, Default: 1.5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { _, err = NewSchema(tc.specs) })
			require.Error(t, err)
			assert.Panics(t, func() { MustNewSchema(tc.specs) })
		})
	}
}

func TestNewSchema_ReportsEveryBrokenSpec(t *testing.T) {
	_, err := NewSchema([]Spec{
		{Key: "width", Kind: KindInt, Default: int64(80)},
		{Key: "ratio", Kind: KindString, Default: 0.5},
		{Key: "ok", Kind: KindBool, Default: true},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `option "width": default must be int, got int64`)
	assert.Contains(t, err.Error(), `option "ratio": default must be string or nil, got float64`)
	assert.NotContains(t, err.Error(), `"ok"`)
}

func TestSchema_Keys(t *testing.T) {
	schema := MustNewSchema([]Spec{
		{Key: "zeta", Kind: KindInt, Default: 1},
		{Key: "alpha", Kind: KindString, Default: nil},
	})
	assert.Equal(t, []string{"alpha", "zeta"}, schema.Keys())
	assert.True(t, schema.Has("zeta"))
	assert.False(t, schema.Has("beta"))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "string-list", KindStringList.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
