package options

import (
	"fmt"
	"time"
)

// DirectiveType is the custom entry type that marks an option directive.
const DirectiveType = "fava-option"

// Meta locates a directive in the ledger.
type Meta struct {
	Filename string
	Lineno   int
}

// String formats the location as file:line.
func (m Meta) String() string {
	if m.Filename == "" {
		return fmt.Sprintf("<unknown>:%d", m.Lineno)
	}
	return fmt.Sprintf("%s:%d", m.Filename, m.Lineno)
}

// Directive is a dated custom entry read from the ledger. Values keep the
// ledger's value types: quoted strings and account names are string, while
// numbers, amounts, dates and booleans keep their own types.
type Directive struct {
	Date   time.Time
	Type   string
	Values []any
	Meta   Meta
}

// IsOption reports whether d carries the fava-option marker.
func (d Directive) IsOption() bool {
	return d.Type == DirectiveType
}

func (d Directive) stringValue(i int) (string, error) {
	if i >= len(d.Values) {
		return "", ErrMissingValue
	}
	s, ok := d.Values[i].(string)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrNotString, d.Values[i])
	}
	return s, nil
}
