// Package beancount reads the parts of Beancount ledger files needed to
// resolve options, and writes new entries back into them.
package beancount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Position locates a line in a ledger file.
type Position struct {
	Filename string // Absolute path of the file
	Line     int    // 1-based line number
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// Account is an account name value (e.g., Assets:Bank:Checking).
type Account string

// Amount is a number with a currency (e.g., 10.00 USD).
type Amount struct {
	Number   decimal.Decimal
	Currency string
}

func (a Amount) String() string {
	return a.Number.String() + " " + a.Currency
}

// Custom is a dated custom directive.
//
//	2016-04-01 custom "fava-option" "currency-column" "70"
//
// Values hold string for quoted strings, Account, Amount, decimal.Decimal,
// bool (TRUE/FALSE) or time.Time (dates).
type Custom struct {
	Date   time.Time
	Type   string
	Values []any
	Pos    Position
}

// ParseError is a ledger line that could not be read.
type ParseError struct {
	Pos     Position
	Message string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// Ledger holds what was read from a ledger file and its includes.
type Ledger struct {
	Customs []Custom     // Custom directives in file order, includes expanded in place
	Errors  []ParseError // Lines that could not be read
	Files   []string     // Every file read, main file first
}
