// Package options resolves Fava option directives from a Beancount ledger into
// a typed options value.
//
// Options are written in the ledger as custom entries:
//
//	2016-04-01 custom "fava-option" "currency-column" "70"
//	2016-04-01 custom "fava-option" "collapse-pattern" "Expenses:Food:.*"
//
// The set of recognized keys, their kinds and their defaults is a static
// Schema. Resolving never mutates the schema: each run starts from a deep copy
// of the defaults, so resolvers can run concurrently (for example on reload).
package options

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Kind identifies how the raw string value of a directive is coerced.
type Kind int

const (
	// KindString keeps the value verbatim.
	KindString Kind = iota + 1
	// KindBool maps "true" (any letter case) to true and everything else to false.
	KindBool
	// KindInt parses a base-10 integer.
	KindInt
	// KindStringList splits the trimmed value on single spaces.
	KindStringList
	// KindInsertEntry compiles the value as a pattern and records where it was declared.
	KindInsertEntry
	// KindDefaultFile takes the directive's own file name as the value.
	KindDefaultFile
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStringList:
		return "string-list"
	case KindInsertEntry:
		return "insert-entry"
	case KindDefaultFile:
		return "default-file"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Spec declares a single option key.
type Spec struct {
	Key        string
	Kind       Kind
	Repeatable bool
	// Default is the value used when no directive sets the key. Nullable
	// string keys use nil.
	Default any
}

// Schema is an immutable table of option specs.
type Schema struct {
	specs []Spec
	index map[string]int
}

// Option keys with special handling.
const (
	KeyDefaultFile = "default-file"
	KeyInsertEntry = "insert-entry"
)

// NewSchema validates specs and builds a schema holding its own copy of
// every default.
func NewSchema(specs []Spec) (*Schema, error) {
	// Defaults are only copied once their type is known to be valid.
	var errs []error
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if err := validateSpec(spec); err != nil {
			errs = append(errs, fmt.Errorf("option %q: %w", spec.Key, err))
		}
		if seen[spec.Key] {
			errs = append(errs, fmt.Errorf("option %q declared more than once", spec.Key))
		}
		seen[spec.Key] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Schema{
		specs: make([]Spec, len(specs)),
		index: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		spec.Default = cloneValue(spec.Default)
		s.specs[i] = spec
		s.index[spec.Key] = i
	}
	return s, nil
}

// MustNewSchema is like NewSchema but panics on an invalid schema.
func MustNewSchema(specs []Spec) *Schema {
	s, err := NewSchema(specs)
	if err != nil {
		panic(fmt.Errorf("invalid option schema: %w", err))
	}
	return s
}

// Validate checks that every key has exactly one kind with a coercion rule and
// that each default matches the kind it is declared with.
func (s *Schema) Validate() error {
	var errs []error
	for _, spec := range s.specs {
		if err := validateSpec(spec); err != nil {
			errs = append(errs, fmt.Errorf("option %q: %w", spec.Key, err))
		}
	}
	return errors.Join(errs...)
}

func validateSpec(spec Spec) error {
	if spec.Key == "" {
		return errors.New("empty key")
	}
	if spec.Repeatable && spec.Kind != KindString {
		return fmt.Errorf("kind %s cannot be repeatable", spec.Kind)
	}

	switch spec.Kind {
	case KindString:
		if spec.Repeatable {
			if _, ok := spec.Default.([]string); !ok {
				return fmt.Errorf("repeatable default must be []string, got %T", spec.Default)
			}
			return nil
		}
		if spec.Default == nil {
			return nil
		}
		if _, ok := spec.Default.(string); !ok {
			return fmt.Errorf("default must be string or nil, got %T", spec.Default)
		}
	case KindBool:
		if _, ok := spec.Default.(bool); !ok {
			return fmt.Errorf("default must be bool, got %T", spec.Default)
		}
	case KindInt:
		if _, ok := spec.Default.(int); !ok {
			return fmt.Errorf("default must be int, got %T", spec.Default)
		}
	case KindStringList:
		if _, ok := spec.Default.([]string); !ok {
			return fmt.Errorf("default must be []string, got %T", spec.Default)
		}
	case KindInsertEntry:
		if _, ok := spec.Default.([]InsertEntryOption); !ok {
			return fmt.Errorf("default must be []InsertEntryOption, got %T", spec.Default)
		}
	case KindDefaultFile:
		if spec.Default == nil {
			return nil
		}
		if _, ok := spec.Default.(string); !ok {
			return fmt.Errorf("default must be string or nil, got %T", spec.Default)
		}
	default:
		return fmt.Errorf("no coercion rule for %s", spec.Kind)
	}
	return nil
}

// Lookup returns the spec for key.
func (s *Schema) Lookup(key string) (Spec, bool) {
	spec, ok := s.spec(key)
	if !ok {
		return Spec{}, false
	}
	spec.Default = cloneValue(spec.Default)
	return spec, true
}

func (s *Schema) spec(key string) (Spec, bool) {
	i, ok := s.index[key]
	if !ok {
		return Spec{}, false
	}
	return s.specs[i], true
}

// Has reports whether key is part of the schema.
func (s *Schema) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Keys returns all option keys in sorted order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.specs))
	for _, spec := range s.specs {
		keys = append(keys, spec.Key)
	}
	sort.Strings(keys)
	return keys
}

// Defaults returns a fresh deep copy of the default options.
func (s *Schema) Defaults() Options {
	opts := make(Options, len(s.specs))
	for _, spec := range s.specs {
		opts[spec.Key] = cloneValue(spec.Default)
	}
	return opts
}

var defaultSchema = sync.OnceValue(func() *Schema {
	return MustNewSchema(builtinSpecs())
})

// DefaultSchema returns the process-wide schema of Fava options.
func DefaultSchema() *Schema {
	return defaultSchema()
}

func init() {
	// Surface a broken built-in table at startup rather than on first use.
	DefaultSchema()
}

// conversionCurrencies is the ISO 4217 list offered for conversion by default.
var conversionCurrencies = []string{
	"AED", "AFN", "ALL", "AMD", "ANG", "AOA", "ARS", "AUD", "AWG", "AZN",
	"BAM", "BBD", "BDT", "BGN", "BHD", "BIF", "BMD", "BND", "BOB", "BOV",
	"BRL", "BSD", "BTN", "BWP", "BYN", "BZD", "CAD", "CDF", "CHE", "CHF",
	"CHW", "CLF", "CLP", "CNY", "COP", "COU", "CRC", "CUC", "CUP", "CVE",
	"CZK", "DJF", "DKK", "DOP", "DZD", "EGP", "ERN", "ETB", "EUR", "FJD",
	"FKP", "GBP", "GEL", "GHS", "GIP", "GMD", "GNF", "GTQ", "GYD", "HKD",
	"HNL", "HRK", "HTG", "HUF", "IDR", "ILS", "INR", "IQD", "IRR", "ISK",
	"JMD", "JOD", "JPY", "KES", "KGS", "KHR", "KMF", "KPW", "KRW", "KWD",
	"KYD", "KZT", "LAK", "LBP", "LKR", "LRD", "LSL", "LYD", "MAD", "MDL",
	"MGA", "MKD", "MMK", "MNT", "MOP", "MRU", "MUR", "MVR", "MWK", "MXN",
	"MXV", "MYR", "MZN", "NAD", "NGN", "NIO", "NOK", "NPR", "NZD", "OMR",
	"PAB", "PEN", "PGK", "PHP", "PKR", "PLN", "PYG", "QAR", "RON", "RSD",
	"RUB", "RWF", "SAR", "SBD", "SCR", "SDG", "SEK", "SGD", "SHP", "SLL",
	"SOS", "SRD", "SSP", "STN", "SVC", "SYP", "SZL", "THB", "TJS", "TMT",
	"TND", "TOP", "TRY", "TTD", "TWD", "TZS", "UAH", "UGX", "USD", "USN",
	"UYI", "UYU", "UYW", "UZS", "VES", "VND", "VUV", "WST", "XAF", "XAG",
	"XAU", "XBA", "XBB", "XBC", "XBD", "XCD", "XDR", "XOF", "XPD", "XPF",
	"XPT", "XSU", "XTS", "XUA", "XXX", "YER", "ZAR", "ZMW", "ZWL",
}

func builtinSpecs() []Spec {
	return []Spec{
		{Key: "account-journal-include-children", Kind: KindBool, Default: true},
		{Key: "auto-reload", Kind: KindBool, Default: false},
		{Key: "collapse-pattern", Kind: KindString, Repeatable: true, Default: []string{}},
		{Key: "conversion-currencies", Kind: KindStringList, Default: conversionCurrencies},
		{Key: "currency-column", Kind: KindInt, Default: 61},
		{Key: KeyDefaultFile, Kind: KindDefaultFile, Default: nil},
		{Key: "fiscal-year-end", Kind: KindString, Default: "12-31"},
		{Key: "import-config", Kind: KindString, Default: nil},
		{Key: "import-dirs", Kind: KindStringList, Default: []string{}},
		{Key: KeyInsertEntry, Kind: KindInsertEntry, Default: []InsertEntryOption{}},
		{Key: "interval", Kind: KindString, Default: "month"},
		{Key: "journal-show", Kind: KindStringList, Default: []string{
			"transaction", "balance", "note", "document", "custom", "budget", "query",
		}},
		{Key: "journal-show-document", Kind: KindStringList, Default: []string{"discovered", "statement"}},
		{Key: "journal-show-transaction", Kind: KindStringList, Default: []string{"cleared", "pending"}},
		{Key: "language", Kind: KindString, Default: nil},
		{Key: "locale", Kind: KindString, Default: nil},
		{Key: "show-accounts-with-zero-balance", Kind: KindBool, Default: true},
		{Key: "show-accounts-with-zero-transactions", Kind: KindBool, Default: true},
		{Key: "show-closed-accounts", Kind: KindBool, Default: false},
		{Key: "sidebar-show-queries", Kind: KindInt, Default: 5},
		{Key: "unrealized", Kind: KindString, Default: "Unrealized"},
		{Key: "upcoming-events", Kind: KindInt, Default: 7},
		{Key: "uptodate-indicator-grey-lookback-days", Kind: KindInt, Default: 60},
		{Key: "use-external-editor", Kind: KindBool, Default: false},
	}
}
