package dispatch

import (
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// ZoneNotServedMessage is the description of lookups outside the configured zones.
const ZoneNotServedMessage = "The RDAP server doesn't have information about the requested zone"

// Identifiers validates and normalizes path identifiers.
type Identifiers struct {
	// Zones served, lowercase without leading dots. Empty serves every zone.
	Zones []string
}

// NormalizeZones lowercases zones and strips dots around them.
func NormalizeZones(zones []string) []string {
	out := make([]string, 0, len(zones))
	for _, z := range zones {
		z = strings.Trim(strings.ToLower(strings.TrimSpace(z)), ".")
		if z != "" {
			out = append(out, z)
		}
	}
	return out
}

// toASCII converts a DNS name to its lowercase A-label form.
func toASCII(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if name == "" {
		return "", domain.InvalidValuef("name is empty")
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", domain.InvalidValuef("%q is not a valid domain name", name)
	}
	return strings.ToLower(ascii), nil
}

// Domain parses a domain name. The name must have a zone the server
// answers for.
func (p Identifiers) Domain(name string) (string, error) {
	ascii, err := toASCII(name)
	if err != nil {
		return "", err
	}
	if !strings.Contains(ascii, ".") {
		return "", domain.InvalidValuef("Domain must contain a zone.")
	}
	if !p.ServesZone(ascii) {
		return "", domain.NotFoundf(ZoneNotServedMessage)
	}
	return ascii, nil
}

// ServesZone reports whether name falls under a configured zone.
func (p Identifiers) ServesZone(name string) bool {
	if len(p.Zones) == 0 {
		return true
	}
	for _, zone := range p.Zones {
		if strings.HasSuffix(name, "."+zone) {
			return true
		}
	}
	return false
}

// Nameserver parses a nameserver host name.
func (p Identifiers) Nameserver(name string) (string, error) {
	return toASCII(name)
}

// Entity validates an entity handle.
func (p Identifiers) Entity(handle string) (string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return "", domain.InvalidValuef("entity handle is empty")
	}
	return handle, nil
}

// Autnum parses an autonomous system number.
func (p Identifiers) Autnum(asn string) (string, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(asn), 10, 32)
	if err != nil {
		return "", domain.InvalidValuef("%q is not an autonomous system number", asn)
	}
	return strconv.FormatUint(n, 10), nil
}

// IP parses an address, or a prefix when length is set.
func (p Identifiers) IP(address, length string) (string, error) {
	address = strings.TrimSpace(address)
	if length == "" {
		addr, err := netip.ParseAddr(address)
		if err != nil {
			return "", domain.InvalidValuef("%q is not a valid IP address", address)
		}
		return addr.WithZone("").String(), nil
	}

	prefix, err := netip.ParsePrefix(address + "/" + strings.TrimSpace(length))
	if err != nil {
		return "", domain.InvalidValuef("%q is not a valid IP prefix", address+"/"+length)
	}
	return prefix.Masked().String(), nil
}
