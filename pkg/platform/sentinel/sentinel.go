// Package sentinel holds the storage-level error facts shared by the record
// stores and the audit stores. Stores wrap them with context; services
// translate them into domain errors with errors.Is.
package sentinel

import "errors"

var (
	// ErrNotFound: no row under the requested id, or a referenced row is
	// missing.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a unique key is taken, or dependents block a delete.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the row breaks a table constraint.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: the backing store cannot be reached right now.
	ErrUnavailable = errors.New("unavailable")
)
