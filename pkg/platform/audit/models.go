package audit

import (
	"fmt"
	"strings"
	"time"
)

// Kind classifies the mutation an entry records.
type Kind string

const (
	KindCreate Kind = "CREATE"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	}
	return false
}

// ParseKind parses a kind case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("unknown audit kind %q", s)
	}
	return k, nil
}

// SystemActorName is credited when no caller can be identified.
const SystemActorName = "SYSTEM"

// Actor is the party credited with a mutation.
type Actor struct {
	Name string
	ID   *int64
}

// SystemActor returns the sentinel actor for background work.
func SystemActor() Actor {
	return Actor{Name: SystemActorName}
}

// IsSystem reports whether a is the sentinel actor.
func (a Actor) IsSystem() bool {
	return a.Name == SystemActorName && a.ID == nil
}

// Entry is one immutable audit row. UPDATE entries carry a single field
// change; CREATE and DELETE entries describe the whole record and leave
// FieldName, OldValue and NewValue nil.
type Entry struct {
	ID          int64     `json:"id"`
	TableName   string    `json:"table_name"`
	RecordID    *int64    `json:"record_id"`
	FieldName   *string   `json:"field_name"`
	OldValue    *string   `json:"old_value"`
	NewValue    *string   `json:"new_value"`
	Kind        Kind      `json:"kind"`
	ActorName   string    `json:"actor_name"`
	ActorID     *int64    `json:"actor_id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ip_address"`
	UserAgent   *string   `json:"user_agent"`
}

// Actor returns the actor recorded on the entry.
func (e Entry) Actor() Actor {
	return Actor{Name: e.ActorName, ID: e.ActorID}
}

// NewCreateEntry builds the whole-record entry for an insert.
func NewCreateEntry(table string, recordID *int64, actor Actor, at time.Time) Entry {
	return newEntry(KindCreate, table, recordID, actor, at)
}

// NewDeleteEntry builds the whole-record entry for a removal.
func NewDeleteEntry(table string, recordID *int64, actor Actor, at time.Time) Entry {
	return newEntry(KindDelete, table, recordID, actor, at)
}

// NewUpdateEntries builds one entry per change. An empty change set still
// yields a single entry with a nil FieldName.
func NewUpdateEntries(table string, recordID *int64, actor Actor, at time.Time, changes []Change) []Entry {
	if len(changes) == 0 {
		return []Entry{newEntry(KindUpdate, table, recordID, actor, at)}
	}
	entries := make([]Entry, 0, len(changes))
	for _, c := range changes {
		e := newEntry(KindUpdate, table, recordID, actor, at)
		field := c.Field
		e.FieldName = &field
		e.OldValue = c.Old
		e.NewValue = c.New
		e.Description = Describe(KindUpdate, table, e.FieldName)
		entries = append(entries, e)
	}
	return entries
}

func newEntry(kind Kind, table string, recordID *int64, actor Actor, at time.Time) Entry {
	return Entry{
		TableName:   table,
		RecordID:    recordID,
		Kind:        kind,
		ActorName:   actor.Name,
		ActorID:     actor.ID,
		Timestamp:   at,
		Description: Describe(kind, table, nil),
	}
}

// Describe renders the default description for an entry.
func Describe(kind Kind, table string, field *string) string {
	switch kind {
	case KindCreate:
		return fmt.Sprintf("Creation of record in table %s", table)
	case KindDelete:
		return fmt.Sprintf("Deletion of record in table %s", table)
	case KindUpdate:
		if field != nil {
			return fmt.Sprintf("Update of field '%s' in table %s", *field, table)
		}
		return fmt.Sprintf("Update of record in table %s with no field changes", table)
	default:
		return fmt.Sprintf("%s in table %s", kind, table)
	}
}
