package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	insertDate     string
	insertAccounts []string
	insertEntry    string
)

// insertCmd represents the insert command.
var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert an entry where insert-entry options place it",
	Long: `Insert entry text into the ledger. The newest insert-entry option
dated before --date whose pattern matches one of the accounts (tried in
order) decides the position: the entry goes right before that option.
Without a match the entry is appended to the default-file, or to the main
ledger file.

Example:
  favaopt insert --date 2024-03-01 --account Expenses:Food --account Assets:Cash --entry lunch.beancount
  echo '2024-03-01 balance Assets:Cash 0 USD' | favaopt insert --date 2024-03-01 --account Assets:Cash`,
	Run: runInsert,
}

func init() {
	insertCmd.Flags().StringVar(&insertDate, "date", "", "Entry date (YYYY-MM-DD) (required)")
	insertCmd.Flags().StringArrayVar(&insertAccounts, "account", nil, "Account of the entry, in priority order (required, repeatable)")
	insertCmd.Flags().StringVar(&insertEntry, "entry", "-", "File with the entry text, - for stdin")

	insertCmd.MarkFlagRequired("date")
	insertCmd.MarkFlagRequired("account")
}

func runInsert(cmd *cobra.Command, args []string) {
	date, err := time.Parse(time.DateOnly, insertDate)
	exitOnError(err, "invalid --date")

	text, err := readEntry(insertEntry, cmd.InOrStdin())
	exitOnError(err, "failed to read entry")
	if strings.TrimSpace(text) == "" {
		exitOnError(fmt.Errorf("entry text is empty"), "nothing to insert")
	}

	_, pathResolver := loadConfig(true)

	ins, err := newLoader(pathResolver).Insert(pathResolver.GetLedgerFile(), insertAccounts, date, text)
	exitOnError(err, "failed to insert entry")

	if ins.Matched {
		fmt.Printf("Inserted %d line(s) into %s before line %d\n", ins.Added, ins.Filename, ins.LineIndex+1)
	} else {
		fmt.Printf("Appended %d line(s) to %s\n", ins.Added, ins.Filename)
	}
	slog.Debug("Insert finished", "file", ins.Filename, "matched", ins.Matched)
	for _, entry := range ins.InsertEntries {
		slog.Debug("insert-entry option", "pattern", entry.Pattern.String(), "file", entry.Filename, "line", entry.Lineno)
	}
}

func readEntry(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
