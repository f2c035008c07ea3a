package domain

import (
	"fmt"
	"strings"
)

// Kind identifies a root RDAP object class.
type Kind string

// Root object classes, named after their RFC 9083 objectClassName.
const (
	KindDomain     Kind = "domain"
	KindEntity     Kind = "entity"
	KindNameserver Kind = "nameserver"
	KindAutnum     Kind = "autnum"
	KindIPNetwork  Kind = "ip network"
)

// Kinds lists every root object class in a stable order.
var Kinds = []Kind{KindDomain, KindEntity, KindNameserver, KindAutnum, KindIPNetwork}

func (k Kind) String() string {
	return string(k)
}

// Slug returns the identifier-safe form of the kind, used for storage keys,
// metric attributes and policy table prefixes.
func (k Kind) Slug() string {
	return strings.ReplaceAll(string(k), " ", "_")
}

// ParseKind resolves a kind from its class name, slug or path segment.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain", "domains":
		return KindDomain, nil
	case "entity", "entities":
		return KindEntity, nil
	case "nameserver", "nameservers":
		return KindNameserver, nil
	case "autnum":
		return KindAutnum, nil
	case "ip", "ip network", "ip_network":
		return KindIPNetwork, nil
	default:
		return "", fmt.Errorf("%w: unknown object kind %q", ErrInvalidValue, s)
	}
}
