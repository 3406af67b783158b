package options

import (
	"log/slog"
)

// Resolver folds option directives over the defaults of a schema.
type Resolver struct {
	schema *Schema
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSchema replaces the built-in schema.
func WithSchema(schema *Schema) ResolverOption {
	return func(r *Resolver) {
		if schema != nil {
			r.schema = schema
		}
	}
}

// WithLogger sets the logger used for per-directive debug output.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver using the built-in schema unless overridden.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		schema: DefaultSchema(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Schema returns the schema the resolver validates against.
func (r *Resolver) Schema() *Schema {
	return r.schema
}

// Parse resolves directives against the built-in schema.
func Parse(directives []Directive) (Options, []OptionError) {
	return NewResolver().Resolve(directives)
}

// Resolve applies directives in order on top of a fresh copy of the defaults.
//
// Entries that do not carry the fava-option marker are skipped. Every other
// directive either applies completely or yields exactly one OptionError and
// leaves the result untouched. For non-repeatable keys the last accepted
// directive wins; repeatable keys accumulate in input order after the default.
func (r *Resolver) Resolve(directives []Directive) (Options, []OptionError) {
	opts := r.schema.Defaults()
	var errs []OptionError

	for _, d := range directives {
		if !d.IsOption() {
			continue
		}
		key, err := r.apply(opts, d)
		if err != nil {
			r.logger.Debug("rejected fava-option entry",
				"source", d.Meta.String(),
				"error", err,
			)
			errs = append(errs, newOptionError(d, err))
			continue
		}
		r.logger.Debug("applied fava-option entry", "key", key, "source", d.Meta.String())
	}

	return opts, errs
}

// apply computes the directive's value first and only then writes it to opts.
func (r *Resolver) apply(opts Options, d Directive) (string, error) {
	key, err := d.stringValue(0)
	if err != nil {
		return "", err
	}
	spec, ok := r.schema.spec(key)
	if !ok {
		return key, ErrUnknownKey
	}

	switch spec.Kind {
	case KindDefaultFile:
		opts[key] = d.Meta.Filename
		return key, nil

	case KindInsertEntry:
		raw, err := d.stringValue(1)
		if err != nil {
			return key, err
		}
		re, err := CompilePattern(raw)
		if err != nil {
			return key, err
		}
		entries, _ := opts[key].([]InsertEntryOption)
		opts[key] = append(entries, InsertEntryOption{
			Date:     d.Date,
			Pattern:  re,
			Filename: d.Meta.Filename,
			Lineno:   d.Meta.Lineno,
		})
		return key, nil
	}

	raw, err := d.stringValue(1)
	if err != nil {
		return key, err
	}
	value, err := coerce(spec.Kind, raw)
	if err != nil {
		return key, err
	}

	if spec.Repeatable {
		list, _ := opts[key].([]string)
		opts[key] = append(list, value.(string))
		return key, nil
	}
	opts[key] = value
	return key, nil
}
