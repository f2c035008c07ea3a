package policy

import (
	"sort"
	"time"
)

// Table maps field names of one object type to their level.
type Table struct {
	objectType string
	levels     map[string]Level
}

// NewTable copies levels into a read-only table.
func NewTable(objectType string, levels map[string]Level) Table {
	copied := make(map[string]Level, len(levels))
	for field, level := range levels {
		if field == "" {
			continue
		}
		copied[field] = level
	}
	return Table{objectType: objectType, levels: copied}
}

// ObjectType returns the table name.
func (t Table) ObjectType() string {
	return t.objectType
}

// Level returns the configured level of field, or the zero Level.
func (t Table) Level(field string) Level {
	return t.levels[field]
}

// Len returns the number of configured fields.
func (t Table) Len() int {
	return len(t.levels)
}

// Fields returns the configured field names, sorted.
func (t Table) Fields() []string {
	fields := make([]string, 0, len(t.levels))
	for field := range t.levels {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Tables is an immutable snapshot of every loaded table.
type Tables struct {
	tables     map[string]Table
	generation int64
	loadedAt   time.Time
}

// NewTables builds a snapshot from raw level maps.
func NewTables(levels map[string]map[string]Level) *Tables {
	tables := make(map[string]Table, len(levels))
	for objectType, fields := range levels {
		tables[objectType] = NewTable(objectType, fields)
	}
	return &Tables{tables: tables, loadedAt: time.Now()}
}

// Table returns the table of objectType.
func (ts *Tables) Table(objectType string) (Table, bool) {
	t, ok := ts.tables[objectType]
	return t, ok
}

// Types returns the loaded object types, sorted.
func (ts *Tables) Types() []string {
	types := make([]string, 0, len(ts.tables))
	for objectType := range ts.tables {
		types = append(types, objectType)
	}
	sort.Strings(types)
	return types
}

// Generation increases by one with every published reload.
func (ts *Tables) Generation() int64 {
	return ts.generation
}

// LoadedAt is the time the snapshot was built.
func (ts *Tables) LoadedAt() time.Time {
	return ts.loadedAt
}
