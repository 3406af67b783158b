package beancount

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	customLineRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+custom(?:\s+(.*))?$`)
	includeLineRe = regexp.MustCompile(`^include\s+(.*)$`)

	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	numberRe   = regexp.MustCompile(`^[-+]?(?:\d+|\d{1,3}(?:,\d{3})+)(?:\.\d*)?$`)
	currencyRe = regexp.MustCompile(`^(?:[A-Z]|[A-Z][A-Z0-9'._-]{0,22}[A-Z0-9])$`)
	accountRe  = regexp.MustCompile(`^\p{Lu}[\p{L}\p{N}-]*(?::[\p{Lu}\p{N}][\p{L}\p{N}-]*)+$`)
)

// token is a raw lexeme of a directive line.
type token struct {
	text   string
	quoted bool
}

// splitTokens splits the value part of a directive line into tokens.
// A ';' outside a string starts a comment.
func splitTokens(s string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(s) {
		switch c := s[i]; {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			return tokens, nil
		case c == '"':
			end := i + 1
			for end < len(s) && s[end] != '"' {
				if s[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(s) {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{text: unquote(s[i+1 : end]), quoted: true})
			i = end + 1
		default:
			end := i
			for end < len(s) && !strings.ContainsRune(" \t\r;\"", rune(s[end])) {
				end++
			}
			tokens = append(tokens, token{text: s[i:end]})
			i = end
		}
	}
	return tokens, nil
}

// unquote resolves the escapes \" \\ \n and \t. Any other backslash is
// kept so that patterns such as "Assets:\d+" survive unchanged.
func unquote(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case '"', '\\':
			b.WriteByte(s[i+1])
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}

// parseValues converts tokens into typed directive values.
func parseValues(tokens []token) ([]any, error) {
	values := make([]any, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.quoted {
			values = append(values, tok.text)
			continue
		}

		switch {
		case tok.text == "TRUE":
			values = append(values, true)
		case tok.text == "FALSE":
			values = append(values, false)
		case dateRe.MatchString(tok.text):
			d, err := time.Parse(time.DateOnly, tok.text)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q", tok.text)
			}
			values = append(values, d)
		case numberRe.MatchString(tok.text):
			n, err := decimal.NewFromString(strings.ReplaceAll(tok.text, ",", ""))
			if err != nil {
				return nil, fmt.Errorf("invalid number %q: %w", tok.text, err)
			}
			if i+1 < len(tokens) && isCurrency(tokens[i+1]) {
				values = append(values, Amount{Number: n, Currency: tokens[i+1].text})
				i++
				continue
			}
			values = append(values, n)
		case accountRe.MatchString(tok.text):
			values = append(values, Account(tok.text))
		default:
			return nil, fmt.Errorf("unexpected token %q", tok.text)
		}
	}
	return values, nil
}

func isCurrency(tok token) bool {
	if tok.quoted || tok.text == "TRUE" || tok.text == "FALSE" {
		return false
	}
	return currencyRe.MatchString(tok.text)
}

// parseCustomLine reads a custom directive. ok is false when line is not one.
func parseCustomLine(line string) (c Custom, ok bool, err error) {
	m := customLineRe.FindStringSubmatch(line)
	if m == nil {
		return Custom{}, false, nil
	}

	date, err := time.Parse(time.DateOnly, m[1])
	if err != nil {
		return Custom{}, true, fmt.Errorf("invalid date %q", m[1])
	}
	tokens, err := splitTokens(m[2])
	if err != nil {
		return Custom{}, true, err
	}
	if len(tokens) == 0 || !tokens[0].quoted {
		return Custom{}, true, fmt.Errorf("custom directive requires a quoted type")
	}
	values, err := parseValues(tokens[1:])
	if err != nil {
		return Custom{}, true, err
	}

	return Custom{Date: date, Type: tokens[0].text, Values: values}, true, nil
}

// parseIncludeLine returns the include target. ok is false when line is not
// an include.
func parseIncludeLine(line string) (target string, ok bool, err error) {
	m := includeLineRe.FindStringSubmatch(line)
	if m == nil {
		return "", false, nil
	}
	tokens, err := splitTokens(m[1])
	if err != nil {
		return "", true, err
	}
	if len(tokens) != 1 || !tokens[0].quoted {
		return "", true, fmt.Errorf("include requires a single quoted file name")
	}
	return tokens[0].text, true, nil
}
