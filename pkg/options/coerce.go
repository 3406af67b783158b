package options

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// intRe accepts a signed decimal integer with single underscores between
// digits (1_000).
var intRe = regexp.MustCompile(`^[+-]?[0-9]+(?:_[0-9]+)*$`)

// coerce converts a raw directive value to the kind's Go type. A returned
// error is a user-input error; a kind without a rule is a schema defect and
// panics.
func coerce(kind Kind, raw string) (any, error) {
	switch kind {
	case KindString:
		return raw, nil
	case KindBool:
		// Lenient on purpose: any token other than "true" is false.
		return strings.ToLower(raw) == "true", nil
	case KindInt:
		digits := strings.TrimSpace(raw)
		if !intRe.MatchString(digits) {
			return nil, fmt.Errorf("%w %q", ErrInvalidInt, raw)
		}
		n, err := strconv.ParseInt(strings.ReplaceAll(digits, "_", ""), 10, strconv.IntSize)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrInvalidInt, raw)
		}
		return int(n), nil
	case KindStringList:
		return strings.Split(strings.TrimSpace(raw), " "), nil
	default:
		panic(fmt.Sprintf("options: no coercion rule for kind %s", kind))
	}
}
