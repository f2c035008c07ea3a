package policy

import (
	"fmt"
	"strings"
)

// Level is the disclosure level configured for a field. The zero value means
// no level is configured.
type Level int

const (
	// LevelOwner discloses the field only to the owner of the object.
	LevelOwner Level = iota + 1
	// LevelAuthenticate discloses the field to any authenticated requester.
	LevelAuthenticate
	// LevelAny always discloses the field.
	LevelAny
	// LevelNone never discloses the field to an external requester.
	LevelNone
)

var levelNames = map[Level]string{
	LevelOwner:        "OWNER",
	LevelAuthenticate: "AUTHENTICATE",
	LevelAny:          "ANY",
	LevelNone:         "NONE",
}

// Levels lists the configurable levels.
var Levels = []Level{LevelOwner, LevelAuthenticate, LevelAny, LevelNone}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Configured reports whether l is one of the four levels.
func (l Level) Configured() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel parses a level name, ignoring case and surrounding whitespace.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OWNER":
		return LevelOwner, nil
	case "AUTHENTICATE":
		return LevelAuthenticate, nil
	case "ANY":
		return LevelAny, nil
	case "NONE":
		return LevelNone, nil
	default:
		return 0, fmt.Errorf("unknown visibility level %q", s)
	}
}
