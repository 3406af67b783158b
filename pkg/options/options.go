package options

import "fmt"

// Options maps option keys to resolved values.
//
// Value types per kind: bool, int, string or nil (nullable string keys),
// []string for string lists and repeatable keys, []InsertEntryOption for
// insert-entry.
type Options map[string]any

// Clone returns a deep copy of o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}
	clone := make(Options, len(o))
	for key, value := range o {
		clone[key] = cloneValue(value)
	}
	return clone
}

// Bool returns the boolean value of key.
func (o Options) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}

// Int returns the integer value of key.
func (o Options) Int(key string) int {
	v, _ := o[key].(int)
	return v
}

// String returns the string value of key. ok is false when the option is
// unset (nil) or not a string.
func (o Options) String(key string) (value string, ok bool) {
	value, ok = o[key].(string)
	return value, ok
}

// Strings returns a copy of the string list stored at key.
func (o Options) Strings(key string) []string {
	v, _ := o[key].([]string)
	return cloneStrings(v)
}

// InsertEntries returns the accumulated insert-entry options.
func (o Options) InsertEntries() []InsertEntryOption {
	v, _ := o[KeyInsertEntry].([]InsertEntryOption)
	return append([]InsertEntryOption(nil), v...)
}

// DefaultFile returns the file that declared default-file, if any.
func (o Options) DefaultFile() (string, bool) {
	return o.String(KeyDefaultFile)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool, int, string:
		return v
	case []string:
		return cloneStrings(v)
	case []InsertEntryOption:
		// Patterns are immutable once compiled and safe to share.
		out := make([]InsertEntryOption, len(v))
		copy(out, v)
		return out
	default:
		panic(fmt.Sprintf("options: cannot copy value of type %T", value))
	}
}
