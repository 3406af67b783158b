package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/db"
)

// recordCmd represents the record command.
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the current resolution in the history database",
	Long: `Resolve the ledger's options and store the result, including every
error, in the SQLite history database. Recorded resolutions can be listed
and compared with "history".

Example:
  favaopt record
  favaopt history diff`,
	Args: cobra.NoArgs,
	Run:  runRecord,
}

func runRecord(cmd *cobra.Command, args []string) {
	_, pathResolver, result := loadLedger()

	snap, err := db.NewSnapshot(result)
	exitOnError(err, "failed to render options")

	conn, history := openHistory(pathResolver)
	defer conn.Close()

	res, err := history.RecordResolution(snap)
	exitOnError(err, "failed to record resolution")

	slog.Info("Resolution recorded", "id", res.ID, "options", res.OptionCount, "errors", res.ErrorCount)
	fmt.Println(res.ID)
}
