package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/options"
)

// keysCmd represents the keys command.
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the recognized option keys",
	Long: `List every recognized fava-option key with its kind and default.

Example:
  favaopt keys`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(printKeys(os.Stdout, options.DefaultSchema()), "failed to list keys")
	},
}

func printKeys(w io.Writer, schema *options.Schema) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tREPEATABLE\tDEFAULT")

	for _, key := range schema.Keys() {
		spec, _ := schema.Lookup(key)
		raw, err := json.Marshal(spec.Default)
		if err != nil {
			return err
		}
		def := string(raw)
		if len(def) > 60 {
			def = def[:57] + "..."
		}
		repeatable := ""
		if spec.Repeatable || spec.Kind == options.KindInsertEntry {
			repeatable = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, spec.Kind, repeatable, def)
	}

	return tw.Flush()
}
