package storage

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// NormalizeName lowercases a DNS name and strips the trailing root label.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}

// lookup is a normalized query key. Ranged lookups match the most specific
// stored range that contains [start, end].
type lookup struct {
	key    string
	start  string
	end    string
	ranged bool
}

func lookupFor(kind domain.Kind, key string) (lookup, error) {
	switch kind {
	case domain.KindDomain, domain.KindNameserver:
		return lookup{key: NormalizeName(key)}, nil
	case domain.KindEntity:
		return lookup{key: strings.TrimSpace(key)}, nil
	case domain.KindAutnum:
		n, err := strconv.ParseUint(strings.TrimSpace(key), 10, 32)
		if err != nil {
			return lookup{}, domain.InvalidValuef("%q is not an autonomous system number", key)
		}
		bound := autnumBound(uint32(n))
		return lookup{key: key, start: bound, end: bound, ranged: true}, nil
	case domain.KindIPNetwork:
		start, end, err := ipQueryRange(strings.TrimSpace(key))
		if err != nil {
			return lookup{}, err
		}
		return lookup{key: key, start: start, end: end, ranged: true}, nil
	default:
		return lookup{}, domain.InvalidValuef("unknown object kind %q", kind)
	}
}

// record is the stored form of an object.
type record struct {
	kind      domain.Kind
	key       string
	searchKey string
	start     string
	end       string
	body      []byte
}

func (r record) contains(l lookup) bool {
	return r.start != "" && r.start <= l.start && r.end >= l.end
}

// moreSpecific reports whether r is a narrower range than other.
func (r record) moreSpecific(other record) bool {
	if r.start != other.start {
		return r.start > other.start
	}
	if r.end != other.end {
		return r.end < other.end
	}
	return r.key < other.key
}

func recordFor(obj domain.Object, body []byte) (record, error) {
	rec := record{kind: obj.Kind(), body: body}

	switch o := obj.(type) {
	case *domain.Domain:
		rec.key = NormalizeName(o.LDHName)
		rec.searchKey = rec.key
	case *domain.Nameserver:
		rec.key = NormalizeName(o.LDHName)
		rec.searchKey = rec.key
	case *domain.Entity:
		rec.key = strings.TrimSpace(o.Handle)
		if o.VCard != nil {
			rec.searchKey = strings.ToLower(strings.TrimSpace(o.VCard.FN))
		}
	case *domain.Autnum:
		if o.StartAutnum == nil {
			return record{}, domain.InvalidValuef("autnum %q has no startAutnum", o.Handle)
		}
		end := o.EndAutnum
		if end == nil {
			end = o.StartAutnum
		}
		rec.key = o.Key()
		rec.start, rec.end = autnumBound(*o.StartAutnum), autnumBound(*end)
	case *domain.IPNetwork:
		start, end, err := networkRange(o)
		if err != nil {
			return record{}, err
		}
		rec.key = o.Key()
		rec.start, rec.end = start, end
	default:
		return record{}, domain.InvalidValuef("cannot store %T", obj)
	}

	if rec.key == "" {
		return record{}, domain.InvalidValuef("%s has no lookup key", obj.Kind())
	}
	if rec.start > rec.end {
		return record{}, domain.InvalidValuef("%s %q: range start is after range end", obj.Kind(), rec.key)
	}
	return rec, nil
}

// autnumBound renders n fixed-width so string order equals numeric order.
func autnumBound(n uint32) string {
	return fmt.Sprintf("%010d", n)
}

// addrBound renders an address as 32 hex digits; IPv4 uses its mapped form.
func addrBound(addr netip.Addr) string {
	b := addr.As16()
	return hex.EncodeToString(b[:])
}

func lastAddr(prefix netip.Prefix) netip.Addr {
	b := prefix.Addr().As16()
	bits := prefix.Bits()
	if prefix.Addr().Is4() {
		bits += 96
	}
	for i := bits; i < 128; i++ {
		b[i/8] |= 1 << (7 - uint(i%8))
	}
	return netip.AddrFrom16(b)
}

func ipQueryRange(key string) (string, string, error) {
	if strings.Contains(key, "/") {
		prefix, err := netip.ParsePrefix(key)
		if err != nil {
			return "", "", domain.InvalidValuef("%q is not a valid IP prefix", key)
		}
		prefix = prefix.Masked()
		return addrBound(prefix.Addr()), addrBound(lastAddr(prefix)), nil
	}

	addr, err := netip.ParseAddr(key)
	if err != nil {
		return "", "", domain.InvalidValuef("%q is not a valid IP address", key)
	}
	bound := addrBound(addr.WithZone(""))
	return bound, bound, nil
}

func networkRange(n *domain.IPNetwork) (string, string, error) {
	start, err := netip.ParseAddr(n.StartAddress)
	if err != nil {
		return "", "", domain.InvalidValuef("network %q: invalid startAddress %q", n.Handle, n.StartAddress)
	}
	end := start
	if n.EndAddress != "" {
		end, err = netip.ParseAddr(n.EndAddress)
		if err != nil {
			return "", "", domain.InvalidValuef("network %q: invalid endAddress %q", n.Handle, n.EndAddress)
		}
	}
	if start.Is4() != end.Is4() {
		return "", "", domain.InvalidValuef("network %q mixes address families", n.Handle)
	}
	return addrBound(start), addrBound(end), nil
}
