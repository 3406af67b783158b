package cmd

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

var historyLimit int

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded resolutions",
	Long: `List resolutions stored by "record", newest first.

Subcommands show a single resolution, compare two of them, delete one or
print statistics. IDs may be abbreviated to a unique prefix.

Example:
  favaopt history --limit 5
  favaopt history show 3f2a9c1e
  favaopt history diff`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the values and errors of a resolution",
	Args:  cobra.ExactArgs(1),
	Run:   runHistoryShow,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff [OLD NEW]",
	Short: "Compare two resolutions (default: the latest two)",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
		}
		return nil
	},
	Run: runHistoryDiff,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a resolution",
	Args:  cobra.ExactArgs(1),
	Run:   runHistoryDelete,
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display history statistics",
	Args:  cobra.NoArgs,
	Run:   runHistoryStats,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "number of resolutions to list (default from FAVAOPT_HISTORY_LIMIT)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDiffCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyStatsCmd)
}

var (
	added   = color.New(color.FgGreen).SprintFunc()
	removed = color.New(color.FgRed).SprintFunc()
	changed = color.New(color.FgYellow).SprintFunc()
)

// openConfiguredHistory opens the history database. A ledger is only needed
// when FAVAOPT_DB_PATH does not point at the database.
func openConfiguredHistory() (int, *db.Connection, *db.History) {
	cfg := readConfig()
	exitOnError(cfg.Validate(cfg.DBPath == ""), "invalid configuration")

	pathResolver := pathutil.New(pathutil.Config{
		LedgerFile:   cfg.LedgerFile,
		DatabasePath: cfg.DBPath,
	})
	conn, history := openHistory(pathResolver)
	return cfg.HistoryLimit, conn, history
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, conn, history := openConfiguredHistory()
	defer conn.Close()

	if historyLimit > 0 {
		limit = historyLimit
	}

	resolutions, err := history.ListResolutions(limit)
	exitOnError(err, "failed to list resolutions")

	if len(resolutions) == 0 {
		fmt.Println("No resolutions recorded")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRESOLVED AT\tOPTIONS\tERRORS\tLEDGER")
	for _, res := range resolutions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			shortID(res.ID),
			res.ResolvedAt.Local().Format(time.DateTime),
			res.OptionCount,
			res.ErrorCount,
			res.LedgerFile,
		)
	}
	tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	_, conn, history := openConfiguredHistory()
	defer conn.Close()

	res := mustGetResolution(history, args[0])

	values, err := history.GetValues(res.ID)
	exitOnError(err, "failed to get values")
	errs, err := history.GetErrors(res.ID)
	exitOnError(err, "failed to get errors")

	fmt.Printf("ID:          %s\n", res.ID)
	fmt.Printf("Ledger:      %s\n", res.LedgerFile)
	fmt.Printf("Resolved at: %s\n", res.ResolvedAt.Local().Format(time.DateTime))
	fmt.Println()

	for _, key := range slices.Sorted(maps.Keys(values)) {
		printValue(os.Stdout, key, values[key], "")
	}

	if len(errs) > 0 {
		fmt.Println()
		for _, e := range errs {
			fmt.Printf("%s %s:%d: %s", errorLabel(string(e.Kind)), e.Filename, e.Lineno, e.Message)
			if e.Cause != "" {
				fmt.Printf(" %s", faint("("+e.Cause+")"))
			}
			fmt.Println()
		}
	}
}

func runHistoryDiff(cmd *cobra.Command, args []string) {
	_, conn, history := openConfiguredHistory()
	defer conn.Close()

	var oldRes, newRes *db.Resolution
	if len(args) == 2 {
		oldRes = mustGetResolution(history, args[0])
		newRes = mustGetResolution(history, args[1])
	} else {
		latest, err := history.ListResolutions(2)
		exitOnError(err, "failed to list resolutions")
		if len(latest) < 2 {
			exitOnError(fmt.Errorf("found %d resolution(s)", len(latest)), "need two recorded resolutions to diff")
		}
		newRes, oldRes = &latest[0], &latest[1]
	}

	changes, err := history.Diff(oldRes.ID, newRes.ID)
	exitOnError(err, "failed to diff resolutions")

	fmt.Printf("%s -> %s\n", shortID(oldRes.ID), shortID(newRes.ID))
	if len(changes) == 0 {
		fmt.Println("No changes")
		return
	}
	printChanges(os.Stdout, changes)
}

func runHistoryDelete(cmd *cobra.Command, args []string) {
	_, conn, history := openConfiguredHistory()
	defer conn.Close()

	res := mustGetResolution(history, args[0])
	deleted, err := history.DeleteResolution(res.ID)
	exitOnError(err, "failed to delete resolution")

	if deleted {
		fmt.Printf("Deleted %s\n", res.ID)
	}
}

func runHistoryStats(cmd *cobra.Command, args []string) {
	_, conn, history := openConfiguredHistory()
	defer conn.Close()

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== History Statistics ===")
	fmt.Printf("Database:          %s\n", conn.GetPath())
	fmt.Printf("Total resolutions: %d\n", stats.TotalResolutions)
	fmt.Printf("Total errors:      %d\n", stats.TotalErrors)
	fmt.Printf("Ledger files:      %d\n", stats.LedgerFiles)
	if stats.LastResolution.Valid {
		fmt.Printf("Last resolution:   %s\n", stats.LastResolution.String)
	} else {
		fmt.Printf("Last resolution:   (never)\n")
	}
	fmt.Println()
}

func mustGetResolution(history *db.History, id string) *db.Resolution {
	res, err := history.GetResolution(id)
	exitOnError(err, "failed to get resolution")
	if res == nil {
		exitOnError(fmt.Errorf("no resolution matches %q", id), "failed to get resolution")
	}
	return res
}

func printChanges(w io.Writer, changes []db.ValueChange) {
	for _, c := range changes {
		switch c.Kind {
		case db.ChangeAdded:
			printValue(w, c.Key, c.New, added("+ "))
		case db.ChangeRemoved:
			printValue(w, c.Key, c.Old, removed("- "))
		case db.ChangeChanged:
			fmt.Fprintf(w, "%s%s\n", changed("~ "), c.Key)
			printValue(w, "old", c.Old, "    ")
			printValue(w, "new", c.New, "    ")
		}
	}
}

// printValue prints a rendered value on the key's line, or indented below it
// when the rendering spans several lines.
func printValue(w io.Writer, key, value, prefix string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s%s: %s\n", prefix, key, value)
		return
	}
	fmt.Fprintf(w, "%s%s:\n", prefix, key)
	for _, line := range strings.Split(value, "\n") {
		fmt.Fprintf(w, "%s  %s\n", prefix, line)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
