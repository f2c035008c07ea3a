package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestIsDisclosedTruthTable(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		viewer Viewer
		want   bool
	}{
		{"owner level, anonymous", LevelOwner, Viewer{}, false},
		{"owner level, authenticated", LevelOwner, Viewer{Authenticated: true}, false},
		{"owner level, owner", LevelOwner, Viewer{Authenticated: true, Owner: true}, true},
		{"authenticate level, anonymous", LevelAuthenticate, Viewer{}, false},
		{"authenticate level, authenticated", LevelAuthenticate, Viewer{Authenticated: true}, true},
		{"authenticate level, owner", LevelAuthenticate, Viewer{Authenticated: true, Owner: true}, true},
		{"any level, anonymous", LevelAny, Viewer{}, true},
		{"any level, owner", LevelAny, Viewer{Authenticated: true, Owner: true}, true},
		{"none level, anonymous", LevelNone, Viewer{}, false},
		{"none level, owner", LevelNone, Viewer{Authenticated: true, Owner: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IsDisclosed("value", "field", tt.level, tt.viewer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsDisclosedEmptyValues(t *testing.T) {
	var nilPtr *string
	var nilSlice []string
	empties := []any{nil, "", nilPtr, nilSlice, []int{}, map[string]string{}, [0]int{}}

	for _, value := range empties {
		for _, level := range append(Levels, Level(0)) {
			got, err := IsDisclosed(value, "field", level, Viewer{Authenticated: true, Owner: true})
			require.NoError(t, err, "empty %#v at %s", value, level)
			assert.False(t, got, "empty %#v at %s", value, level)
		}
	}
}

func TestIsDisclosedMissingLevel(t *testing.T) {
	_, err := IsDisclosed("value", "handle", Level(0), Viewer{})
	var missing *MissingPolicyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "handle", missing.Field)
	assert.Equal(t, `attribute "handle" does not have privacy status configured`, err.Error())
}

func TestIsDisclosedNonePropertyHolds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		value := rapid.StringN(1, 20, -1).Draw(rt, "value")
		viewer := Viewer{
			Authenticated: rapid.Bool().Draw(rt, "authenticated"),
			Owner:         rapid.Bool().Draw(rt, "owner"),
		}
		got, err := IsDisclosed(value, "field", LevelNone, viewer)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if got {
			rt.Fatalf("NONE disclosed %q to %+v", value, viewer)
		}
	})
}

func TestIsDisclosedMonotonicInViewer(t *testing.T) {
	// A viewer with more standing never sees less.
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.SampledFrom(Levels).Draw(rt, "level")
		anon, _ := IsDisclosed("v", "f", level, Viewer{})
		authed, _ := IsDisclosed("v", "f", level, Viewer{Authenticated: true})
		owner, _ := IsDisclosed("v", "f", level, Viewer{Authenticated: true, Owner: true})
		if anon && !authed {
			rt.Fatalf("%s: anonymous sees more than authenticated", level)
		}
		if authed && !owner {
			rt.Fatalf("%s: authenticated sees more than owner", level)
		}
	})
}

func TestParseLevel(t *testing.T) {
	for _, level := range Levels {
		parsed, err := ParseLevel("  " + level.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, level, parsed)
	}

	parsed, err := ParseLevel("authenticate")
	require.NoError(t, err)
	assert.Equal(t, LevelAuthenticate, parsed)

	_, err = ParseLevel("PUBLIC")
	assert.Error(t, err)
	assert.False(t, Level(0).Configured())
	assert.Equal(t, "Level(0)", Level(0).String())
}
