package beancount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newRepo(root string) *FileSystemRepository {
	return NewFileSystemRepository(pathutil.New(pathutil.Config{
		LedgerFile: filepath.Join(root, "main.beancount"),
	}))
}

func TestLoad_CollectsCustomsAcrossIncludes(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeFile(t, main, `option "title" "Test"
2016-01-01 custom "fava-option" "interval" "week"
include "years/*.beancount"
2016-01-02 custom "fava-option" "locale" "en"
`)
	writeFile(t, filepath.Join(root, "years", "2020.beancount"), `2020-01-01 open Assets:Cash
2020-01-01 custom "fava-option" "insert-entry" "Assets:Cash"
`)
	writeFile(t, filepath.Join(root, "years", "2021.beancount"), `
2021-01-01 custom "budget" Expenses:Food "monthly" 400 USD
`)

	ledger, err := newRepo(root).Load(main)
	require.NoError(t, err)
	assert.Empty(t, ledger.Errors)

	require.Len(t, ledger.Customs, 4)
	assert.Equal(t, []any{"interval", "week"}, ledger.Customs[0].Values)
	assert.Equal(t, Position{Filename: main, Line: 2}, ledger.Customs[0].Pos)

	y2020 := filepath.Join(root, "years", "2020.beancount")
	assert.Equal(t, Position{Filename: y2020, Line: 2}, ledger.Customs[1].Pos)
	assert.Equal(t, "budget", ledger.Customs[2].Type)
	assert.Equal(t, 2, ledger.Customs[2].Pos.Line)
	assert.Equal(t, []any{"locale", "en"}, ledger.Customs[3].Values)

	assert.Equal(t, []string{main, y2020, filepath.Join(root, "years", "2021.beancount")}, ledger.Files)
}

func TestLoad_IncludeCycleReadsEachFileOnce(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeFile(t, main, `include "other.beancount"
2016-01-01 custom "fava-option" "interval" "week"
`)
	writeFile(t, filepath.Join(root, "other.beancount"), `include "main.beancount"
2016-01-01 custom "fava-option" "locale" "en"
`)

	ledger, err := newRepo(root).Load(main)
	require.NoError(t, err)
	assert.Empty(t, ledger.Errors)
	assert.Len(t, ledger.Files, 2)
	require.Len(t, ledger.Customs, 2)
	assert.Equal(t, "locale", ledger.Customs[0].Values[0])
	assert.Equal(t, "interval", ledger.Customs[1].Values[0])
}

func TestLoad_CollectsLineErrors(t *testing.T) {
	root := t.TempDir()
	main := filepath.Join(root, "main.beancount")
	writeFile(t, main, `include "missing.beancount"
2016-01-01 custom "fava-option" "interval" ???
2016-01-01 custom "fava-option" "locale" "en"
`)

	ledger, err := newRepo(root).Load(main)
	require.NoError(t, err)

	require.Len(t, ledger.Errors, 2)
	assert.Equal(t, 1, ledger.Errors[0].Pos.Line)
	assert.Contains(t, ledger.Errors[0].Message, "does not exist")
	assert.Equal(t, 2, ledger.Errors[1].Pos.Line)
	assert.Contains(t, ledger.Errors[1].Error(), "main.beancount:2")
	require.Len(t, ledger.Customs, 1)
}

func TestLoad_MissingMainFile(t *testing.T) {
	root := t.TempDir()
	_, err := newRepo(root).Load(filepath.Join(root, "nope.beancount"))
	require.Error(t, err)
}

func TestInsertText(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		index    int
		expected string
		added    int
	}{
		{"middle", "a\nb\nc\n", 1, "a\nENTRY\n\nb\nc\n", 2},
		{"start", "a\n", 0, "ENTRY\n\na\n", 2},
		{"past end appends", "a\n", 10, "a\nENTRY\n\n", 2},
		{"negative appends", "a\n", -1, "a\nENTRY\n\n", 2},
		{"missing final newline", "a", 1, "a\nENTRY\n\n", 3},
		{"empty file", "", 0, "ENTRY\n\n", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, "main.beancount")
			writeFile(t, path, tc.content)

			added, err := newRepo(root).InsertText(path, tc.index, "ENTRY\n")
			require.NoError(t, err)
			assert.Equal(t, tc.added, added)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(data))
		})
	}
}

func TestAppendText(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "new", "file.beancount")
	repo := newRepo(root)

	require.NoError(t, repo.AppendText(path, "2024-01-01 open Assets:Cash"))
	require.NoError(t, repo.AppendText(path, "2024-01-02 open Assets:Bank\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n2024-01-01 open Assets:Cash\n\n2024-01-02 open Assets:Bank\n", string(data))
}
