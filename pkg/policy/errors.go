package policy

import (
	"fmt"
	"strings"
)

// InvalidEntry is one rejected key/value pair of a policy file.
type InvalidEntry struct {
	Key   string
	Value string
}

// ConfigurationError reports a policy table that could not be built. Invalid
// lists every offending entry of the object type, not just the first one.
type ConfigurationError struct {
	ObjectType string
	Invalid    []InvalidEntry
	Err        error
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Invalid) > 0:
		pairs := make([]string, 0, len(e.Invalid))
		for _, entry := range e.Invalid {
			pairs = append(pairs, entry.Key+"="+entry.Value)
		}
		return fmt.Sprintf("invalid policy file %q: invalid values: %s", e.ObjectType+".properties", strings.Join(pairs, ", "))
	case e.Err != nil:
		return fmt.Sprintf("policy %q: %v", e.ObjectType, e.Err)
	default:
		return fmt.Sprintf("policy %q: invalid configuration", e.ObjectType)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// MissingPolicyError is raised when a field holding data has no configured
// level. It marks a configuration defect and must fail the request.
type MissingPolicyError struct {
	ObjectType string
	Field      string
}

func (e *MissingPolicyError) Error() string {
	if e.ObjectType == "" {
		return fmt.Sprintf("attribute %q does not have privacy status configured", e.Field)
	}
	return fmt.Sprintf("attribute %q of %q does not have privacy status configured", e.Field, e.ObjectType)
}
