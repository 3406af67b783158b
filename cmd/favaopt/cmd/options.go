package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/options"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

var (
	outputFormat string
	optionKeys   []string
	resolvePaths bool
)

// optionsCmd represents the options command.
var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Print the resolved options",
	Long: `Print the options of the ledger after applying every fava-option
directive on top of the defaults.

Malformed directives are skipped and counted in a warning; use "check"
to list them.

With --resolve-paths, import-config and import-dirs are printed as
absolute paths relative to the directory of the main ledger file.

Example:
  favaopt options
  favaopt options --format json --key currency-column --key insert-entry
  favaopt options --resolve-paths --key import-dirs`,
	Run: runOptions,
}

func init() {
	optionsCmd.Flags().StringVar(&outputFormat, "format", "", "output format: yaml or json (default from FAVAOPT_FORMAT)")
	optionsCmd.Flags().StringArrayVar(&optionKeys, "key", nil, "only print this key (repeatable)")
	optionsCmd.Flags().BoolVar(&resolvePaths, "resolve-paths", false, "print import-config and import-dirs as absolute paths")
}

func runOptions(cmd *cobra.Command, args []string) {
	cfg, pathResolver, result := loadLedger()

	if result.HasErrors() {
		slog.Warn("Ledger has errors",
			"option_errors", len(result.OptionErrors),
			"parse_errors", len(result.ParseErrors),
		)
	}

	opts := result.Options
	if resolvePaths {
		opts = resolveOptionPaths(opts, pathResolver)
	}

	out, err := selectOptions(opts, optionKeys)
	exitOnError(err, "invalid --key")

	format := outputFormat
	if format == "" {
		format = cfg.Format
	}
	exitOnError(writeOptions(os.Stdout, out, format), "failed to write options")
}

// resolveOptionPaths returns a copy of opts with the path-valued options
// resolved against the ledger directory. opts itself is left untouched.
func resolveOptionPaths(opts options.Options, pathResolver *pathutil.PathResolver) options.Options {
	out := opts.Clone()
	if cfg, ok := out["import-config"].(string); ok {
		out["import-config"] = pathResolver.ResolveOptionPath(cfg)
	}
	if dirs, ok := out["import-dirs"].([]string); ok {
		for i, dir := range dirs {
			dirs[i] = pathResolver.ResolveOptionPath(dir)
		}
	}
	return out
}

// selectOptions returns the options restricted to keys, or all of them when
// keys is empty.
func selectOptions(opts options.Options, keys []string) (options.Options, error) {
	if len(keys) == 0 {
		return opts, nil
	}
	schema := options.DefaultSchema()
	out := make(options.Options, len(keys))
	for _, key := range keys {
		if !schema.Has(key) {
			return nil, fmt.Errorf("%w: %s", options.ErrUnknownKey, key)
		}
		out[key] = opts[key]
	}
	return out, nil
}

func writeOptions(w io.Writer, opts options.Options, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(opts); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(opts)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
