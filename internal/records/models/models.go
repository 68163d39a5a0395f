// Package models holds the personal-data records collected by the update
// forms and describes each one to the storage and audit layers.
package models

import (
	"time"

	audit "datatrail/pkg/platform/audit"
)

// IgnoredFields are left out of update diffs in addition to
// audit.DefaultIgnoredFields: the touch column the stores refresh on every
// save, and the id_usuario back-reference dependent records hold to their
// owner.
var IgnoredFields = []string{"fecha_actualizacion", "id_usuario"}

// Definition describes one record type: where it lives, how it is audited and
// which of its columns the API may write.
type Definition[T any] struct {
	// Table is the name written to audit entries.
	Table string

	// SQLTable and IDColumn locate the rows in PostgreSQL.
	SQLTable string
	IDColumn string

	// Path is the API collection segment under /api.
	Path string

	// Columns lists the writable columns in the order Values returns them.
	Columns []string
	Values  func(rec *T) []any

	// TouchColumn, when set, is refreshed with the save time. Touch does the
	// same on the struct for stores that do not do it in SQL.
	TouchColumn string
	Touch       func(rec *T, at time.Time)

	Schema   *audit.Schema[T]
	Identity *audit.IdentityResolver[T]
	ID       func(rec *T) int64
	SetID    func(rec *T, id int64)
	Version  func(rec *T) *int

	Normalize func(rec *T)
	Validate  func(rec *T) error

	// Unique returns the values of the columns with unique constraints, each
	// prefixed with its column name.
	Unique func(rec *T) []string
}

// identity builds the resolver from the record's own id accessor.
func identity[T any](schema *audit.Schema[T], id func(*T) int64) *audit.IdentityResolver[T] {
	return audit.NewIdentityResolver(schema, audit.WithAccessor(func(rec *T) (int64, bool) {
		v := id(rec)
		return v, v != 0
	}))
}
