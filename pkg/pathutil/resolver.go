// Package pathutil provides centralized path management for the ledger and
// the files derived from it.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathResolver manages paths relative to the main ledger file.
type PathResolver struct {
	ledgerFile   string
	ledgerRoot   string
	databasePath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerFile is the main Beancount file (e.g., ~/accounting/main.beancount)
	LedgerFile string
	// DatabasePath is the path to the SQLite database with resolution history
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// The ledger file is made absolute so that directive locations are stable.
// If DatabasePath is empty, it defaults to {ledger dir}/.favaopt/history.db
func New(config Config) *PathResolver {
	ledgerFile := config.LedgerFile
	if ledgerFile != "" {
		if abs, err := filepath.Abs(ledgerFile); err == nil {
			ledgerFile = abs
		}
	}
	ledgerRoot := filepath.Dir(ledgerFile)

	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(ledgerRoot, ".favaopt", "history.db")
	}

	return &PathResolver{
		ledgerFile:   ledgerFile,
		ledgerRoot:   ledgerRoot,
		databasePath: dbPath,
	}
}

// GetLedgerFile returns the absolute path of the main ledger file.
func (p *PathResolver) GetLedgerFile() string {
	return p.ledgerFile
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// ResolveFrom resolves target relative to the directory of fromFile.
// Absolute targets are returned cleaned.
// Example: ResolveFrom("/books/main.beancount", "2024/q1.beancount") = /books/2024/q1.beancount
func (p *PathResolver) ResolveFrom(fromFile, target string) string {
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(filepath.Dir(fromFile), target)
}

// ResolveOptionPath resolves a path-valued option (import-config, import-dirs)
// relative to the main ledger file.
func (p *PathResolver) ResolveOptionPath(value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(p.ledgerRoot, value)
}

// EnsureParentDir creates the parent directory of a file, along with any
// missing ancestors (like mkdir -p).
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
