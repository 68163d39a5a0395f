package audit

import (
	"reflect"
	"strconv"
)

// DefaultProbeNames are tried, in order, when no identity accessor is set.
var DefaultProbeNames = []string{"id", "user_id", "record_id"}

// IdentityResolver extracts the primary key of a record. A missing key is
// reported as absent, never as an error.
type IdentityResolver[T any] struct {
	schema   *Schema[T]
	accessor func(*T) (int64, bool)
	probes   []string
}

// IdentityOption configures an IdentityResolver.
type IdentityOption[T any] func(*IdentityResolver[T])

// WithAccessor sets the per-type identity accessor. It takes precedence over
// field probing.
func WithAccessor[T any](fn func(*T) (int64, bool)) IdentityOption[T] {
	return func(r *IdentityResolver[T]) {
		r.accessor = fn
	}
}

// WithProbeNames appends per-domain aliases after the default probe names.
func WithProbeNames[T any](names ...string) IdentityOption[T] {
	return func(r *IdentityResolver[T]) {
		r.probes = append(r.probes, names...)
	}
}

// NewIdentityResolver creates a resolver that probes fields of schema.
func NewIdentityResolver[T any](schema *Schema[T], opts ...IdentityOption[T]) *IdentityResolver[T] {
	r := &IdentityResolver[T]{
		schema: schema,
		probes: append([]string(nil), DefaultProbeNames...),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the record id, or nil when it cannot be determined.
func (r *IdentityResolver[T]) Resolve(rec *T) (id *int64) {
	if rec == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			id = nil
		}
	}()
	if r.accessor != nil {
		if v, ok := r.accessor(rec); ok {
			return &v
		}
		return nil
	}
	if r.schema == nil {
		return nil
	}
	for _, name := range r.probes {
		f, ok := r.schema.Lookup(name)
		if !ok {
			continue
		}
		if v, ok := toInt64(f.Get(rec)); ok {
			return &v
		}
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	v = deref(v)
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	case reflect.String:
		n, err := strconv.ParseInt(rv.String(), 10, 64)
		return n, err == nil
	}
	return 0, false
}
