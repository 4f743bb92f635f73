package value

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultTransitField is the listing column holding station access text.
	DefaultTransitField = "アクセス"
	// DefaultTransitPattern matches "walk N minutes" in listing phrasing.
	DefaultTransitPattern = `歩(\d+)分`
)

// Extractor replaces the raw cell of a designated field with a derived value.
type Extractor func(raw Value) Value

// WalkingMinutes returns an extractor that collects every number captured by
// the first group of pattern and yields the smallest one.
// The pattern must contain at least one capture group.
func WalkingMinutes(pattern string) (Extractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, "transit pattern")
	}
	if re.NumSubexp() < 1 {
		return nil, errors.Errorf("transit pattern %q: capture group required", pattern)
	}

	return func(raw Value) Value {
		if raw.IsEmpty() {
			return None()
		}
		found := false
		minutes := math.Inf(1)
		for _, m := range re.FindAllStringSubmatch(raw.String(), -1) {
			n, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			found = true
			minutes = math.Min(minutes, n)
		}
		if !found {
			return None()
		}
		return Number(minutes)
	}, nil
}

// Resolver computes the value feeding an output metric from a record.
// A Resolver is read-only after construction and safe for concurrent use.
type Resolver struct {
	extractors map[string]Extractor
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithExtractor registers fn for the named field.
func WithExtractor(field string, fn Extractor) Option {
	return func(r *Resolver) {
		r.extractors[field] = fn
	}
}

// NewResolver creates a resolver. Without options no field is extracted;
// use NewDefaultResolver for the listing transit field.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{extractors: make(map[string]Extractor)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultResolver creates a resolver extracting walking minutes from
// DefaultTransitField.
func NewDefaultResolver() *Resolver {
	walk, err := WalkingMinutes(DefaultTransitPattern)
	if err != nil {
		panic(err)
	}
	return NewResolver(WithExtractor(DefaultTransitField, walk))
}

// SplitInput splits a comma-delimited input spec into trimmed field names.
// Empty names are dropped.
func SplitInput(spec string) []string {
	parts := strings.Split(spec, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, p)
		}
	}
	return fields
}

// Field resolves a single field of the record.
// Missing fields yield None.
func (r *Resolver) Field(name string, fields map[string]Value) Value {
	raw, found := fields[name]
	if !found {
		return None()
	}
	if extract, ok := r.extractors[name]; ok {
		return extract(raw)
	}
	if raw.Kind() == KindString {
		return Parse(raw.String())
	}
	return raw
}

// Resolve computes the value for the given input fields.
// A single field resolves directly. Several fields are resolved one by one,
// None results dropped, and the rest combined with method.
func (r *Resolver) Resolve(input []string, method Method, fields map[string]Value) Value {
	switch len(input) {
	case 0:
		return None()
	case 1:
		return r.Field(input[0], fields)
	}

	values := make([]Value, 0, len(input))
	for _, name := range input {
		if v := r.Field(name, fields); !v.IsNone() {
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return None()
	}
	if method == MethodNone {
		return values[0]
	}
	return Combine(values, method)
}
