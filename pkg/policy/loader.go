package policy

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/magiconair/properties"
)

//go:embed defaults/*.properties
var defaultFiles embed.FS

// DefaultFS returns the built-in policy files, one `<type>.properties` per
// object type.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(defaultFiles, "defaults")
	if err != nil {
		panic(fmt.Sprintf("policy: embedded defaults: %v", err))
	}
	return sub
}

// Loader reads and merges the two policy tiers.
type Loader struct {
	// Defaults holds the mandatory files.
	Defaults fs.FS
	// Overrides holds optional operator files; nil disables overriding.
	Overrides fs.FS
	// ObjectTypes to load; empty means ObjectTypes.
	ObjectTypes []string
}

// NewLoader returns a loader over the built-in defaults and, when overrideDir
// is set, the operator files in that directory.
func NewLoader(overrideDir string) Loader {
	l := Loader{Defaults: DefaultFS()}
	if strings.TrimSpace(overrideDir) != "" {
		l.Overrides = os.DirFS(overrideDir)
	}
	return l
}

// Load builds a complete snapshot. Every object type is attempted; the
// failures of all types are joined into the returned error and no snapshot is
// produced.
func (l Loader) Load() (*Tables, error) {
	types := l.ObjectTypes
	if len(types) == 0 {
		types = ObjectTypes
	}

	levels := make(map[string]map[string]Level, len(types))
	var errs []error
	for _, objectType := range types {
		fields, err := l.loadType(objectType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		levels[objectType] = fields
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return NewTables(levels), nil
}

func (l Loader) loadType(objectType string) (map[string]Level, error) {
	name := objectType + ".properties"

	if l.Defaults == nil {
		return nil, &ConfigurationError{ObjectType: objectType, Err: fmt.Errorf("missing default policy for %s", objectType)}
	}
	defaults, err := readProperties(l.Defaults, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigurationError{ObjectType: objectType, Err: fmt.Errorf("missing default policy for %s", objectType)}
		}
		return nil, &ConfigurationError{ObjectType: objectType, Err: err}
	}

	merged := make(map[string]string)
	collect(defaults, merged)

	if l.Overrides != nil {
		overrides, err := readProperties(l.Overrides, name)
		switch {
		case err == nil:
			collect(overrides, merged)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, &ConfigurationError{ObjectType: objectType, Err: err}
		}
	}

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	levels := make(map[string]Level, len(merged))
	var invalid []InvalidEntry
	for _, key := range keys {
		level, err := ParseLevel(merged[key])
		if err != nil {
			invalid = append(invalid, InvalidEntry{Key: key, Value: strings.TrimSpace(merged[key])})
			continue
		}
		levels[key] = level
	}
	if len(invalid) > 0 {
		return nil, &ConfigurationError{ObjectType: objectType, Invalid: invalid}
	}

	return levels, nil
}

func readProperties(fsys fs.FS, name string) (*properties.Properties, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	p.DisableExpansion = true
	return p, nil
}

// collect copies p into dst, later calls replacing earlier keys. Blank keys
// are ignored.
func collect(p *properties.Properties, dst map[string]string) {
	for _, key := range p.Keys() {
		if strings.TrimSpace(key) == "" {
			continue
		}
		value, _ := p.Get(key)
		dst[key] = value
	}
}
