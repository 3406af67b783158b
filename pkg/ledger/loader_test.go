package ledger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/beancount"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/options"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

func newTestLoader(ledgerFile string) *Loader {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := beancount.NewFileSystemRepository(pathutil.New(pathutil.Config{LedgerFile: ledgerFile}))
	return NewLoader(repo, nil, logger)
}

func writeLedger(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readLedger(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoad_ResolvesOptions(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeLedger(t, main, `2016-01-01 custom "fava-option" "currency-column" "70"
2016-01-01 custom "fava-option" "collapse-pattern" "Assets:.*"
2016-01-01 custom "fava-option" "auto-reload" "true"
include "sub.beancount"
2016-01-01 custom "budget" Expenses:Food "monthly" 400 USD
`)
	sub := filepath.Join(root, "sub.beancount")
	writeLedger(t, sub, `2016-01-01 custom "fava-option" "default-file"
2016-01-01 custom "fava-option" "collapse-pattern" "Expenses:.*"
`)

	result, err := newTestLoader(main).Load(main)
	require.NoError(t, err)

	assert.False(t, result.HasErrors())
	assert.Equal(t, main, result.LedgerFile)
	assert.Equal(t, []string{main, sub}, result.Files)
	assert.Equal(t, 70, result.Options.Int("currency-column"))
	assert.True(t, result.Options.Bool("auto-reload"))
	assert.Equal(t, []string{"Assets:.*", "Expenses:.*"}, result.Options.Strings("collapse-pattern"))

	defaultFile, ok := result.Options.DefaultFile()
	require.True(t, ok)
	assert.Equal(t, sub, defaultFile)
}

func TestLoad_CollectsErrors(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeLedger(t, main, `2016-01-01 custom "fava-option" "unknown-key" "x"
2016-01-01 custom "fava-option" "currency-column" 70
2016-01-01 custom "fava-option" "interval" ???
2016-01-01 custom "fava-option" "interval" "week"
`)

	result, err := newTestLoader(main).Load(main)
	require.NoError(t, err)
	assert.True(t, result.HasErrors())

	require.Len(t, result.ParseErrors, 1)
	assert.Equal(t, 3, result.ParseErrors[0].Pos.Line)

	require.Len(t, result.OptionErrors, 2)
	assert.True(t, errors.Is(result.OptionErrors[0], options.ErrUnknownKey))
	assert.Equal(t, 1, result.OptionErrors[0].Source.Lineno)
	assert.True(t, errors.Is(result.OptionErrors[1], options.ErrNotString))
	assert.Equal(t, 2, result.OptionErrors[1].Source.Lineno)

	assert.Equal(t, 61, result.Options.Int("currency-column"))
	value, _ := result.Options.String("interval")
	assert.Equal(t, "week", value)
}

func TestLoad_MissingFile(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	_, err := newTestLoader(main).Load(main)
	require.Error(t, err)
}

func TestDirectives(t *testing.T) {
	date := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	customs := []beancount.Custom{{
		Date:   date,
		Type:   "fava-option",
		Values: []any{beancount.Account("Assets:Cash"), "x", decimal.NewFromInt(3)},
		Pos:    beancount.Position{Filename: "/l/main.beancount", Line: 7},
	}}

	directives := Directives(customs)
	require.Len(t, directives, 1)
	d := directives[0]
	assert.Equal(t, date, d.Date)
	assert.True(t, d.IsOption())
	assert.Equal(t, options.Meta{Filename: "/l/main.beancount", Lineno: 7}, d.Meta)
	assert.Equal(t, "Assets:Cash", d.Values[0])
	assert.Equal(t, "x", d.Values[1])
	assert.IsType(t, decimal.Decimal{}, d.Values[2])

	// The source record is left untouched.
	assert.Equal(t, beancount.Account("Assets:Cash"), customs[0].Values[0])
}

func TestInsert_AtMatchingOption(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeLedger(t, main, `2020-01-01 open Assets:Cash
2020-01-01 custom "fava-option" "insert-entry" "Expenses:Food"
2020-01-01 custom "fava-option" "insert-entry" "Assets:.*"
`)

	ins, err := newTestLoader(main).Insert(main,
		[]string{"Assets:Cash", "Expenses:Food"},
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		"2021-01-01 * \"Lunch\"\n  Assets:Cash  -10 USD\n  Expenses:Food\n")
	require.NoError(t, err)

	assert.True(t, ins.Matched)
	assert.Equal(t, main, ins.Filename)
	assert.Equal(t, 2, ins.LineIndex)
	assert.Equal(t, 4, ins.Added)

	// The option below the entry moved down; the one above did not.
	require.Len(t, ins.InsertEntries, 2)
	assert.Equal(t, 2, ins.InsertEntries[0].Lineno)
	assert.Equal(t, 7, ins.InsertEntries[1].Lineno)
	reloaded, err := newTestLoader(main).Load(main)
	require.NoError(t, err)
	assert.Equal(t, reloaded.Options.InsertEntries()[1].Lineno, ins.InsertEntries[1].Lineno)
	assert.Equal(t, `2020-01-01 open Assets:Cash
2020-01-01 custom "fava-option" "insert-entry" "Expenses:Food"
2021-01-01 * "Lunch"
  Assets:Cash  -10 USD
  Expenses:Food

2020-01-01 custom "fava-option" "insert-entry" "Assets:.*"
`, readLedger(t, main))
}

func TestInsert_FallsBackToDefaultFile(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	other := filepath.Join(root, "other.beancount")
	writeLedger(t, main, `include "other.beancount"
2020-01-01 custom "fava-option" "insert-entry" "Assets:.*"
`)
	writeLedger(t, other, `2020-01-01 custom "fava-option" "default-file"
`)

	// The option is not dated before the entry, so it does not apply.
	ins, err := newTestLoader(main).Insert(main,
		[]string{"Assets:Cash"},
		time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		"2020-01-01 balance Assets:Cash 0 USD")
	require.NoError(t, err)

	assert.False(t, ins.Matched)
	assert.Equal(t, other, ins.Filename)
	assert.Equal(t, -1, ins.LineIndex)
	assert.Equal(t, 2, ins.Added)
	require.Len(t, ins.InsertEntries, 1)
	assert.Equal(t, 2, ins.InsertEntries[0].Lineno)
	assert.Equal(t, `2020-01-01 custom "fava-option" "default-file"

2020-01-01 balance Assets:Cash 0 USD
`, readLedger(t, other))
}

func TestInsert_FallsBackToMainFile(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeLedger(t, main, "2020-01-01 open Assets:Cash\n")

	ins, err := newTestLoader(main).Insert(main, []string{"Assets:Cash"},
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), "2021-01-01 close Assets:Cash\n")
	require.NoError(t, err)
	assert.False(t, ins.Matched)
	assert.Equal(t, main, ins.Filename)
	assert.Equal(t, "2020-01-01 open Assets:Cash\n\n2021-01-01 close Assets:Cash\n", readLedger(t, main))
}

func TestInsert_RequiresAccounts(t *testing.T) {
	_, err := newTestLoader("main.beancount").Insert("main.beancount", nil, time.Now(), "x")
	assert.ErrorIs(t, err, ErrNoAccounts)
}
