package options

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// patternMatchTimeout bounds a single match of a user-supplied pattern.
const patternMatchTimeout = time.Second

// InsertEntryOption tells where new entries for matching accounts are inserted.
type InsertEntryOption struct {
	Date     time.Time
	Pattern  *regexp2.Regexp
	Filename string
	Lineno   int
}

// CompilePattern compiles an insert-entry pattern written in Python syntax.
// Lookarounds and backreferences are allowed, and Python named groups
// (?P<name>...) and (?P=name) are accepted.
func CompilePattern(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(translatePattern(expr), regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, expr, err)
	}
	re.MatchTimeout = patternMatchTimeout
	return re, nil
}

// translatePattern rewrites Python-only group syntax into the equivalent
// regexp2 form. Escaped characters and character classes are copied as is.
func translatePattern(expr string) string {
	if !strings.Contains(expr, "(?P") {
		return expr
	}
	var b strings.Builder
	b.Grow(len(expr))
	inClass := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case c == '\\' && i+1 < len(expr):
			b.WriteByte(c)
			b.WriteByte(expr[i+1])
			i++
			continue
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// A ']' right after '[' or '[^' is a literal member.
			if j := i + 1; j < len(expr) && expr[j] == '^' {
				b.WriteString("[^")
				i = j
			} else {
				b.WriteByte(c)
			}
			if i+1 < len(expr) && expr[i+1] == ']' {
				b.WriteByte(']')
				i++
			}
			continue
		case strings.HasPrefix(expr[i:], "(?P<"):
			b.WriteString("(?<")
			i += len("(?P<") - 1
			continue
		case strings.HasPrefix(expr[i:], "(?P="):
			if end := strings.IndexByte(expr[i:], ')'); end > 0 {
				b.WriteString(`\k<` + expr[i+len("(?P="):i+end] + ">")
				i += end
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Matches reports whether the pattern matches at the start of account.
func (o InsertEntryOption) Matches(account string) bool {
	if o.Pattern == nil {
		return false
	}
	m, err := o.Pattern.FindStringMatch(account)
	if err != nil || m == nil {
		return false
	}
	// The leftmost match starts at 0 whenever an anchored match exists.
	return m.Index == 0
}

// View returns a plain map representation of o with the pattern source.
func (o InsertEntryOption) View() map[string]any {
	pattern := ""
	if o.Pattern != nil {
		pattern = o.Pattern.String()
	}
	return map[string]any{
		"date":     o.Date.Format(time.DateOnly),
		"pattern":  pattern,
		"filename": o.Filename,
		"lineno":   o.Lineno,
	}
}

func (o InsertEntryOption) MarshalYAML() (any, error) {
	return o.View(), nil
}

func (o InsertEntryOption) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.View())
}

// FindInsertPosition picks where an entry dated date touching accounts should
// be inserted. Options are considered newest first and only when dated
// strictly before the entry; accounts are tried in the given order. The
// returned line index is 0-based: the entry goes before the option's line.
// When nothing matches, defaultFile is returned with ok=false and lineIndex -1
// (append to the end).
func FindInsertPosition(entries []InsertEntryOption, accounts []string, date time.Time, defaultFile string) (filename string, lineIndex int, ok bool) {
	sorted := append([]InsertEntryOption(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	for _, account := range accounts {
		for _, opt := range sorted {
			if !opt.Date.Before(date) {
				continue
			}
			if opt.Matches(account) {
				return opt.Filename, opt.Lineno - 1, true
			}
		}
	}
	return defaultFile, -1, false
}

// ShiftInsertEntries returns a copy of entries where every option in filename
// declared after lineIndex is moved down by added lines.
func ShiftInsertEntries(entries []InsertEntryOption, filename string, lineIndex, added int) []InsertEntryOption {
	out := make([]InsertEntryOption, len(entries))
	for i, opt := range entries {
		if opt.Filename == filename && opt.Lineno > lineIndex {
			opt.Lineno += added
		}
		out[i] = opt
	}
	return out
}
