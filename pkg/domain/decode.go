package domain

import (
	"encoding/json"
	"fmt"
)

// New returns an empty object of the given kind.
func New(kind Kind) (Object, error) {
	switch kind {
	case KindDomain:
		return &Domain{}, nil
	case KindEntity:
		return &Entity{}, nil
	case KindNameserver:
		return &Nameserver{}, nil
	case KindAutnum:
		return &Autnum{}, nil
	case KindIPNetwork:
		return &IPNetwork{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown object kind %q", ErrInvalidValue, kind)
	}
}

// Decode builds a fresh object graph of the given kind from its JSON form.
func Decode(kind Kind, data []byte) (Object, error) {
	obj, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return obj, nil
}

// Clone deep-copies an object through its JSON form.
func Clone(obj Object) (Object, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", obj.Kind(), err)
	}
	return Decode(obj.Kind(), data)
}
