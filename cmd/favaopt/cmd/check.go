package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/ledger"
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report malformed directives",
	Long: `Report lines that could not be read and fava-option directives that
could not be applied. Exits with status 1 when any are found.

Example:
  favaopt check
  favaopt --debug check`,
	Run: runCheck,
}

var (
	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	okLabel    = color.New(color.FgGreen, color.Bold).SprintFunc()
	location   = color.New(color.FgCyan).SprintFunc()
	faint      = color.New(color.Faint).SprintFunc()
)

func runCheck(cmd *cobra.Command, args []string) {
	_, _, result := loadLedger()

	if n := printCheck(os.Stdout, result); n > 0 {
		os.Exit(1)
	}
}

// printCheck writes the errors of result and returns how many there were.
func printCheck(w io.Writer, result *ledger.Result) int {
	for _, e := range result.ParseErrors {
		fmt.Fprintf(w, "%s %s: %s\n", errorLabel("error"), location(e.Pos), e.Message)
	}
	for _, e := range result.OptionErrors {
		fmt.Fprintf(w, "%s %s: %s", errorLabel("error"), location(e.Source), e.Message)
		if e.Err != nil {
			fmt.Fprintf(w, " %s", faint("("+e.Err.Error()+")"))
		}
		fmt.Fprintln(w)
	}

	n := len(result.ParseErrors) + len(result.OptionErrors)
	if n == 0 {
		fmt.Fprintf(w, "%s no errors in %d file(s)\n", okLabel("ok"), len(result.Files))
		return 0
	}
	fmt.Fprintf(w, "\n%d error(s) in %d file(s)\n", n, len(result.Files))
	return n
}
