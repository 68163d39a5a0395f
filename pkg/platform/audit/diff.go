package audit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"
)

// DefaultIgnoredFields are never reported as changes: synthetic ids, version
// counters and bookkeeping timestamps.
var DefaultIgnoredFields = []string{"id", "version", "created_at", "updated_at"}

// Change is one differing field with stringified values. A nil value means the
// field was null on that side.
type Change struct {
	Field string
	Old   *string
	New   *string
}

// Differ compares two snapshots of the same record shape field by field.
type Differ struct {
	ignored map[string]struct{}
	logger  *slog.Logger
}

// DifferOption configures a Differ.
type DifferOption func(*Differ)

// WithIgnoredFields adds names to the deny-list.
func WithIgnoredFields(names ...string) DifferOption {
	return func(d *Differ) {
		for _, n := range names {
			d.ignored[n] = struct{}{}
		}
	}
}

// WithDifferLogger sets the logger used for skipped-field warnings.
func WithDifferLogger(logger *slog.Logger) DifferOption {
	return func(d *Differ) {
		d.logger = logger
	}
}

// NewDiffer creates a Differ whose deny-list starts from DefaultIgnoredFields.
func NewDiffer(opts ...DifferOption) *Differ {
	d := &Differ{
		ignored: make(map[string]struct{}, len(DefaultIgnoredFields)),
		logger:  slog.Default(),
	}
	for _, n := range DefaultIgnoredFields {
		d.ignored[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ignores reports whether name is on the deny-list.
func (d *Differ) Ignores(name string) bool {
	_, ok := d.ignored[name]
	return ok
}

// Diff returns the non-ignored fields whose values differ between before and
// after, in schema order. Either side nil yields no changes. A field that
// cannot be read or compared is skipped with a warning.
func Diff[T any](ctx context.Context, d *Differ, schema *Schema[T], before, after *T) []Change {
	if before == nil || after == nil {
		return nil
	}
	var changes []Change
	for _, f := range schema.Fields() {
		if d.Ignores(f.Name) {
			continue
		}
		change, changed, err := compareField(f, before, after)
		if err != nil {
			d.logger.WarnContext(ctx, "skipping unreadable field in audit diff",
				"field", f.Name,
				"type", fmt.Sprintf("%T", before),
				"error", err,
			)
			continue
		}
		if changed {
			changes = append(changes, change)
		}
	}
	return changes
}

func compareField[T any](f FieldDescriptor[T], before, after *T) (Change, bool, error) {
	oldVal, err := readField(f, before)
	if err != nil {
		return Change{}, false, err
	}
	newVal, err := readField(f, after)
	if err != nil {
		return Change{}, false, err
	}
	changed, err := valuesDiffer(oldVal, newVal)
	if err != nil || !changed {
		return Change{}, false, err
	}
	return Change{Field: f.Name, Old: formatValue(oldVal), New: formatValue(newVal)}, true, nil
}

func readField[T any](f FieldDescriptor[T], rec *T) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read field %s: %v", f.Name, r)
		}
	}()
	return f.Get(rec), nil
}

func valuesDiffer(a, b any) (bool, error) {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return (a == nil) != (b == nil), nil
	}
	if err := checkComparable(a); err != nil {
		return false, err
	}
	if err := checkComparable(b); err != nil {
		return false, err
	}
	switch av := a.(type) {
	case time.Time:
		bv, ok := b.(time.Time)
		return !ok || !av.Equal(bv), nil
	case []byte:
		bv, ok := b.([]byte)
		return !ok || !bytes.Equal(av, bv), nil
	}
	return !reflect.DeepEqual(a, b), nil
}

func checkComparable(v any) error {
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Errorf("values of type %T cannot be compared", v)
	}
	return nil
}

// deref follows pointers so that two distinct pointers to equal values compare
// equal. Nil pointers and nil interfaces become untyped nil.
func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}
	return rv.Interface()
}

func formatValue(v any) *string {
	v = deref(v)
	if v == nil {
		return nil
	}
	var s string
	switch tv := v.(type) {
	case string:
		s = tv
	case time.Time:
		s = tv.UTC().Format(time.RFC3339Nano)
	case []byte:
		s = string(tv)
	case fmt.Stringer:
		s = tv.String()
	default:
		s = fmt.Sprint(tv)
	}
	return &s
}
