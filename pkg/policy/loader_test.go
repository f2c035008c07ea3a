package policy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/magiconair/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsCoverEveryObjectType(t *testing.T) {
	tables, err := NewLoader("").Load()
	require.NoError(t, err)

	for _, objectType := range ObjectTypes {
		table, ok := tables.Table(objectType)
		require.True(t, ok, "missing table %s", objectType)
		assert.Positive(t, table.Len(), "empty table %s", objectType)
	}
	assert.Len(t, tables.Types(), len(ObjectTypes))
}

func TestDefaultsShipExpectedLevels(t *testing.T) {
	tables, err := NewLoader("").Load()
	require.NoError(t, err)

	vcard, ok := tables.Table(TableEntityVCard)
	require.True(t, ok)
	assert.Equal(t, LevelOwner, vcard.Level("email"))
	assert.Equal(t, LevelAuthenticate, vcard.Level("fn"))

	events, ok := tables.Table(Nested(TableDomain).Events)
	require.True(t, ok)
	assert.Equal(t, LevelAuthenticate, events.Level("eventActor"))
	assert.Equal(t, LevelAny, events.Level("eventDate"))
}

func TestLoaderOverridesReplaceDefaults(t *testing.T) {
	loader := Loader{
		Defaults: fstest.MapFS{
			"domain.properties": {Data: []byte("handle = ANY\nldhName = ANY\n")},
		},
		Overrides: fstest.MapFS{
			"domain.properties": {Data: []byte("# operator\nhandle = owner\nstatus = NONE\n")},
		},
		ObjectTypes: []string{TableDomain},
	}

	tables, err := loader.Load()
	require.NoError(t, err)

	table, ok := tables.Table(TableDomain)
	require.True(t, ok)
	assert.Equal(t, LevelOwner, table.Level("handle"))
	assert.Equal(t, LevelAny, table.Level("ldhName"))
	assert.Equal(t, LevelNone, table.Level("status"))
	assert.Equal(t, []string{"handle", "ldhName", "status"}, table.Fields())
}

func TestLoaderMissingOverrideFileIsIgnored(t *testing.T) {
	loader := Loader{
		Defaults:    fstest.MapFS{"entity.properties": {Data: []byte("handle = ANY\n")}},
		Overrides:   fstest.MapFS{},
		ObjectTypes: []string{TableEntity},
	}

	tables, err := loader.Load()
	require.NoError(t, err)
	table, _ := tables.Table(TableEntity)
	assert.Equal(t, LevelAny, table.Level("handle"))
}

func TestLoaderReportsEveryInvalidEntry(t *testing.T) {
	loader := Loader{
		Defaults: fstest.MapFS{
			"domain.properties": {Data: []byte("handle = ANY\nstatus = PUBLIC\nport43 = maybe\n")},
			"entity.properties": {Data: []byte("handle = EVERYONE\n")},
		},
		ObjectTypes: []string{TableDomain, TableEntity},
	}

	tables, err := loader.Load()
	require.Error(t, err)
	assert.Nil(t, tables)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, TableDomain, cfgErr.ObjectType)
	assert.Equal(t, []InvalidEntry{{Key: "port43", Value: "maybe"}, {Key: "status", Value: "PUBLIC"}}, cfgErr.Invalid)
	assert.Contains(t, err.Error(), `invalid policy file "domain.properties": invalid values: port43=maybe, status=PUBLIC`)
	assert.Contains(t, err.Error(), `invalid policy file "entity.properties": invalid values: handle=EVERYONE`)
}

func TestLoaderMissingDefault(t *testing.T) {
	loader := Loader{
		Defaults:    fstest.MapFS{},
		ObjectTypes: []string{TableAutnum},
	}

	_, err := loader.Load()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, TableAutnum, cfgErr.ObjectType)
	assert.Contains(t, err.Error(), "missing default policy for autnum")
}

func TestLoaderUnreadableOverride(t *testing.T) {
	loader := Loader{
		Defaults:    fstest.MapFS{"autnum.properties": {Data: []byte("handle = ANY\n")}},
		Overrides:   failingFS{},
		ObjectTypes: []string{TableAutnum},
	}

	_, err := loader.Load()
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, errUnreadable)
}

func TestCollectSkipsBlankKeys(t *testing.T) {
	p := properties.NewProperties()
	_, _, err := p.Set("  ", "ANY")
	require.NoError(t, err)
	_, _, err = p.Set("handle", "ANY")
	require.NoError(t, err)

	dst := map[string]string{"handle": "NONE"}
	collect(p, dst)
	assert.Equal(t, map[string]string{"handle": "ANY"}, dst)
}

func TestNewLoaderReadsOverrideDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entity_vcard.properties"), []byte("email = ANY\n"), 0o600))

	tables, err := NewLoader(dir).Load()
	require.NoError(t, err)

	vcard, _ := tables.Table(TableEntityVCard)
	assert.Equal(t, LevelAny, vcard.Level("email"))
	assert.Equal(t, LevelAuthenticate, vcard.Level("fn"))
}

var errUnreadable = errors.New("permission denied")

type failingFS struct{}

func (failingFS) Open(string) (fs.File, error) {
	return nil, errUnreadable
}
