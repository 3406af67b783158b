// Package ledger loads a Beancount ledger and resolves its fava-option
// directives.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/ledger-options/pkg/beancount"
	"github.com/shunichi-ikebuchi/ledger-options/pkg/options"
)

// Result is everything learned from one load of a ledger.
type Result struct {
	LedgerFile   string
	Options      options.Options
	OptionErrors []options.OptionError
	ParseErrors  []beancount.ParseError
	Files        []string
}

// HasErrors reports whether the load produced any parse or option errors.
func (r *Result) HasErrors() bool {
	return len(r.OptionErrors) > 0 || len(r.ParseErrors) > 0
}

// Insertion describes where Insert wrote an entry.
type Insertion struct {
	Filename  string
	LineIndex int  // 0-based line the entry was inserted before; -1 when appended
	Matched   bool // an insert-entry option picked the position
	Added     int  // number of lines written

	// InsertEntries are the ledger's insert-entry options with line numbers
	// moved to account for the written lines.
	InsertEntries []options.InsertEntryOption
}

// ErrNoAccounts is returned by Insert when no account is given.
var ErrNoAccounts = errors.New("at least one account is required")

// Loader reads ledgers through a repository and resolves their options.
type Loader struct {
	repo     beancount.Repository
	resolver *options.Resolver
	logger   *slog.Logger
}

// NewLoader creates a Loader. A nil resolver uses the built-in schema.
func NewLoader(repo beancount.Repository, resolver *options.Resolver, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if resolver == nil {
		resolver = options.NewResolver(options.WithLogger(logger))
	}
	return &Loader{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
	}
}

// Load reads the ledger at path and resolves its options. Only a failure to
// read the main file is returned as an error.
func (l *Loader) Load(path string) (*Result, error) {
	l.logger.Debug("Loading ledger", "path", path)

	ledger, err := l.repo.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	opts, optErrs := l.resolver.Resolve(Directives(ledger.Customs))

	result := &Result{
		Options:      opts,
		OptionErrors: optErrs,
		ParseErrors:  ledger.Errors,
		Files:        ledger.Files,
	}
	if len(ledger.Files) > 0 {
		result.LedgerFile = ledger.Files[0]
	}

	l.logger.Debug("Ledger loaded",
		"files", len(result.Files),
		"custom_entries", len(ledger.Customs),
		"option_errors", len(result.OptionErrors),
		"parse_errors", len(result.ParseErrors),
	)

	return result, nil
}

// Insert writes text into the ledger at path at the position chosen by the
// ledger's insert-entry options for the given accounts and date. Without a
// matching option the text is appended to the default-file option, or to the
// main ledger file when that is unset.
func (l *Loader) Insert(path string, accounts []string, date time.Time, text string) (*Insertion, error) {
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	result, err := l.Load(path)
	if err != nil {
		return nil, err
	}

	defaultFile, ok := result.Options.DefaultFile()
	if !ok {
		defaultFile = result.LedgerFile
	}

	entries := result.Options.InsertEntries()
	filename, lineIndex, matched := options.FindInsertPosition(entries, accounts, date, defaultFile)

	ins := &Insertion{Filename: filename, LineIndex: lineIndex, Matched: matched}
	if matched {
		ins.Added, err = l.repo.InsertText(filename, lineIndex, text)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry: %w", err)
		}
		ins.InsertEntries = options.ShiftInsertEntries(entries, filename, lineIndex, ins.Added)
	} else {
		if err := l.repo.AppendText(filename, text); err != nil {
			return nil, fmt.Errorf("failed to append entry: %w", err)
		}
		ins.Added = strings.Count(strings.TrimRight(text, "\n"), "\n") + 2
		// Appended lines come after every option.
		ins.InsertEntries = entries
	}

	l.logger.Info("Inserted entry",
		"file", ins.Filename,
		"line_index", ins.LineIndex,
		"matched", ins.Matched,
	)

	return ins, nil
}

// Directives converts custom records into option directives. Account values
// become plain strings, other non-string values keep their type.
func Directives(customs []beancount.Custom) []options.Directive {
	directives := make([]options.Directive, 0, len(customs))
	for _, c := range customs {
		values := make([]any, len(c.Values))
		for i, v := range c.Values {
			if account, ok := v.(beancount.Account); ok {
				v = string(account)
			}
			values[i] = v
		}
		directives = append(directives, options.Directive{
			Date:   c.Date,
			Type:   c.Type,
			Values: values,
			Meta: options.Meta{
				Filename: c.Pos.Filename,
				Lineno:   c.Pos.Line,
			},
		})
	}
	return directives
}
