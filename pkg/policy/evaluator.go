package policy

import "reflect"

// Viewer is the requester as seen from one specific object.
type Viewer struct {
	Authenticated bool
	// Owner is computed per object; siblings in one response may differ.
	Owner bool
}

// IsDisclosed decides whether a field value may be shown to the viewer.
//
// Absent or empty values are never disclosed, whatever the level, so callers
// can treat "null" and "empty" alike. For values with content, an unconfigured
// level fails with MissingPolicyError.
func IsDisclosed(value any, field string, level Level, viewer Viewer) (bool, error) {
	if IsEmpty(value) {
		return false, nil
	}

	switch level {
	case LevelOwner:
		return viewer.Owner, nil
	case LevelAuthenticate:
		return viewer.Authenticated, nil
	case LevelAny:
		return true, nil
	case LevelNone:
		return false, nil
	default:
		return false, &MissingPolicyError{Field: field}
	}
}

// IsEmpty reports whether value carries no content: nil, a nil pointer, an
// empty string, or a zero-length slice, array or map.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
