// Package cmd provides CLI commands for favaopt.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/beancount"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/config"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/ledger"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/pathutil"
)

var (
	cfgFile    string
	debug      bool
	ledgerFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "favaopt",
	Short: "Resolve fava-option directives of a Beancount ledger",
	Long: `favaopt reads the custom "fava-option" directives of a Beancount
ledger and resolves them into typed options on top of the defaults.

It supports:
- Printing resolved options as YAML or JSON
- Reporting malformed directives with their location
- Inserting entries at the position chosen by insert-entry options
- Recording resolutions in SQLite and diffing them

Example:
  favaopt --ledger main.beancount options
  favaopt check
  favaopt history diff`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug || os.Getenv("DEBUG") == "true" {
			logLevel = slog.LevelDebug
		}
		setupLogger(logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ledgerFile, "ledger", "", "main ledger file (overrides LEDGER_FILE)")

	// Add subcommands
	rootCmd.AddCommand(optionsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(insertCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(historyCmd)
}

func setupLogger(level slog.Level) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// readConfig loads the configuration and applies --ledger.
func readConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	// DEBUG may come from the .env file, which is only read here.
	if cfg.Debug && !debug {
		setupLogger(slog.LevelDebug)
	}

	if ledgerFile != "" {
		cfg.LedgerFile = ledgerFile
	}
	return cfg
}

// loadConfig loads and validates the configuration.
func loadConfig(requireLedger bool) (*config.Config, *pathutil.PathResolver) {
	cfg := readConfig()
	exitOnError(cfg.Validate(requireLedger), "invalid configuration")

	pathResolver := pathutil.New(pathutil.Config{
		LedgerFile:   cfg.LedgerFile,
		DatabasePath: cfg.DBPath,
	})
	return cfg, pathResolver
}

func newLoader(pathResolver *pathutil.PathResolver) *ledger.Loader {
	repo := beancount.NewFileSystemRepository(pathResolver)
	return ledger.NewLoader(repo, nil, slog.Default())
}

// loadLedger loads the configured ledger and resolves its options.
func loadLedger() (*config.Config, *pathutil.PathResolver, *ledger.Result) {
	cfg, pathResolver := loadConfig(true)

	result, err := newLoader(pathResolver).Load(pathResolver.GetLedgerFile())
	exitOnError(err, "failed to load ledger")

	return cfg, pathResolver, result
}

// openHistory opens the history database.
func openHistory(pathResolver *pathutil.PathResolver) (*db.Connection, *db.History) {
	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")

	return conn, db.NewHistory(conn)
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
