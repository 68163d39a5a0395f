package audit

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// FieldDescriptor names one direct field of T and reads it.
type FieldDescriptor[T any] struct {
	Name string
	Get  func(*T) any
}

// Field declares a descriptor entry.
func Field[T any](name string, get func(*T) any) FieldDescriptor[T] {
	return FieldDescriptor[T]{Name: name, Get: get}
}

// Schema is the field-descriptor table for one record shape. It is built once,
// at registration, and shared by every diff and identity lookup for T.
type Schema[T any] struct {
	fields []FieldDescriptor[T]
	index  map[string]int
}

// NewSchema builds a schema from explicit descriptors. It panics on empty or
// duplicate names; schemas are declared at package init.
func NewSchema[T any](fields ...FieldDescriptor[T]) *Schema[T] {
	s := &Schema[T]{
		fields: make([]FieldDescriptor[T], 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" || f.Get == nil {
			panic("audit: schema field requires a name and a getter")
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("audit: duplicate schema field %q", f.Name))
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// SchemaOf derives a schema from the exported fields of struct type T.
// The field name comes from the `audit` tag, then the `db` tag, then the
// snake_cased Go name. `audit:"-"` omits a field. Embedded structs are
// flattened into their promoted fields.
func SchemaOf[T any]() *Schema[T] {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		panic(fmt.Sprintf("audit: SchemaOf requires a struct type, got %s", rt))
	}
	var fields []FieldDescriptor[T]
	for _, sf := range reflect.VisibleFields(rt) {
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		name, ok := fieldName(sf)
		if !ok {
			continue
		}
		index := sf.Index
		fields = append(fields, Field(name, func(rec *T) any {
			return reflect.ValueOf(rec).Elem().FieldByIndex(index).Interface()
		}))
	}
	return NewSchema(fields...)
}

// Fields returns the descriptors in declaration order.
func (s *Schema[T]) Fields() []FieldDescriptor[T] {
	return s.fields
}

// Lookup finds a descriptor by name.
func (s *Schema[T]) Lookup(name string) (FieldDescriptor[T], bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDescriptor[T]{}, false
	}
	return s.fields[i], true
}

// Names lists field names in declaration order.
func (s *Schema[T]) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

func fieldName(sf reflect.StructField) (string, bool) {
	for _, key := range []string{"audit", "db"} {
		tag, ok := sf.Tag.Lookup(key)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return "", false
		}
		if name != "" {
			return name, true
		}
	}
	return snakeCase(sf.Name), true
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// "UserID" -> "user_id", "IPAddress" -> "ip_address"
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
