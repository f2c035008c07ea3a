package redact

import (
	"context"
	"errors"

	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/policy"
)

// descender redacts the nested content of a disclosed field.
type descender[T any] func(w *walker, obj *T, viewer policy.Viewer) (bool, error)

// field describes one policy-controlled member of T.
type field[T any] struct {
	name    string
	value   func(*T) any
	clear   func(*T)
	descend descender[T]
}

// slot builds a field from a pointer to the member; clearing stores the zero
// value of V.
func slot[T, V any](name string, at func(*T) *V) field[T] {
	return field[T]{
		name:  name,
		value: func(obj *T) any { return *at(obj) },
		clear: func(obj *T) {
			var zero V
			*at(obj) = zero
		},
	}
}

func (f field[T]) then(d descender[T]) field[T] {
	f.descend = d
	return f
}

// walker carries the state of one top-level redaction call.
type walker struct {
	ctx       context.Context
	tables    *policy.Tables
	requester Requester
	owners    OwnershipChecker
	visited   int
}

// viewerFor computes the viewer for a record that has its own owner.
func (w *walker) viewerFor(obj domain.Object) policy.Viewer {
	viewer := policy.Viewer{Authenticated: w.requester.Authenticated}
	if w.requester.Authenticated && w.owners != nil {
		viewer.Owner = w.owners.IsOwner(w.ctx, w.requester.Username, obj)
	}
	return viewer
}

// table returns the named table; an absent table behaves as an empty one so
// the first field holding data reports the gap.
func (w *walker) table(name string) policy.Table {
	if w.tables != nil {
		if t, ok := w.tables.Table(name); ok {
			return t
		}
	}
	return policy.NewTable(name, nil)
}

// apply redacts obj against the named table and reports whether anything on
// obj or below it was withheld.
func apply[T any](w *walker, tableName string, fields []field[T], obj *T, viewer policy.Viewer) (bool, error) {
	if obj == nil {
		return false, nil
	}
	w.visited++

	table := w.table(tableName)
	redacted := false
	for _, f := range fields {
		value := f.value(obj)
		disclosed, err := policy.IsDisclosed(value, f.name, table.Level(f.name), viewer)
		if err != nil {
			var missing *policy.MissingPolicyError
			if errors.As(err, &missing) && missing.ObjectType == "" {
				missing.ObjectType = tableName
			}
			return redacted, err
		}

		if !disclosed {
			if !policy.IsEmpty(value) {
				f.clear(obj)
				redacted = true
			}
			continue
		}

		if f.descend != nil {
			nested, err := f.descend(w, obj, viewer)
			if err != nil {
				return redacted, err
			}
			redacted = redacted || nested
		}
	}

	return redacted, nil
}

// each applies the element schema to every member of a value collection.
func each[E any](w *walker, tableName string, fields []field[E], items []E, viewer policy.Viewer) (bool, error) {
	redacted := false
	for i := range items {
		r, err := apply(w, tableName, fields, &items[i], viewer)
		if err != nil {
			return redacted, err
		}
		redacted = redacted || r
	}
	return redacted, nil
}
