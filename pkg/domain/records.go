package domain

import (
	"encoding/json"
	"strconv"
)

// Object is implemented by the root record types.
type Object interface {
	// Kind reports the object class.
	Kind() Kind
	// Key is the canonical lookup key (name, handle or range handle).
	Key() string
	// Registrants returns the handles that identify the object's owner.
	Registrants() []string
	// ResponseHeader returns the top-level response members.
	ResponseHeader() *Header
	// ApplyDefaults fills server-wide defaults into absent members.
	ApplyDefaults(lang, port43 string)
}

// Domain is a registered domain name (RFC 9083 §5.3).
type Domain struct {
	Header
	Handle      string        `json:"handle,omitempty"`
	LDHName     string        `json:"ldhName,omitempty"`
	UnicodeName string        `json:"unicodeName,omitempty"`
	Variants    []Variant     `json:"variants,omitempty"`
	Nameservers []*Nameserver `json:"nameservers,omitempty"`
	SecureDNS   *SecureDNS    `json:"secureDNS,omitempty"`
	Entities    []*Entity     `json:"entities,omitempty"`
	Status      []string      `json:"status,omitempty"`
	PublicIDs   []PublicID    `json:"publicIds,omitempty"`
	Remarks     []Remark      `json:"remarks,omitempty"`
	Links       []Link        `json:"links,omitempty"`
	Port43      string        `json:"port43,omitempty"`
	Events      []Event       `json:"events,omitempty"`
	Network     *IPNetwork    `json:"network,omitempty"`
	Lang        string        `json:"lang,omitempty"`
}

// Entity is an organisation or person (RFC 9083 §5.1).
type Entity struct {
	Header
	Handle       string       `json:"handle,omitempty"`
	VCard        *VCard       `json:"vcardArray,omitempty"`
	Roles        []string     `json:"roles,omitempty"`
	PublicIDs    []PublicID   `json:"publicIds,omitempty"`
	Entities     []*Entity    `json:"entities,omitempty"`
	Remarks      []Remark     `json:"remarks,omitempty"`
	Links        []Link       `json:"links,omitempty"`
	Events       []Event      `json:"events,omitempty"`
	AsEventActor []Event      `json:"asEventActor,omitempty"`
	Status       []string     `json:"status,omitempty"`
	Port43       string       `json:"port43,omitempty"`
	Networks     []*IPNetwork `json:"networks,omitempty"`
	Autnums      []*Autnum    `json:"autnums,omitempty"`
	Lang         string       `json:"lang,omitempty"`
}

// Nameserver is a DNS server (RFC 9083 §5.2).
type Nameserver struct {
	Header
	Handle      string       `json:"handle,omitempty"`
	LDHName     string       `json:"ldhName,omitempty"`
	UnicodeName string       `json:"unicodeName,omitempty"`
	IPAddresses *IPAddresses `json:"ipAddresses,omitempty"`
	Entities    []*Entity    `json:"entities,omitempty"`
	Status      []string     `json:"status,omitempty"`
	Remarks     []Remark     `json:"remarks,omitempty"`
	Links       []Link       `json:"links,omitempty"`
	Port43      string       `json:"port43,omitempty"`
	Events      []Event      `json:"events,omitempty"`
	Lang        string       `json:"lang,omitempty"`
}

// Autnum is a range of autonomous system numbers (RFC 9083 §5.5).
type Autnum struct {
	Header
	Handle      string    `json:"handle,omitempty"`
	StartAutnum *uint32   `json:"startAutnum,omitempty"`
	EndAutnum   *uint32   `json:"endAutnum,omitempty"`
	Name        string    `json:"name,omitempty"`
	Type        string    `json:"type,omitempty"`
	Status      []string  `json:"status,omitempty"`
	Country     string    `json:"country,omitempty"`
	Entities    []*Entity `json:"entities,omitempty"`
	Remarks     []Remark  `json:"remarks,omitempty"`
	Links       []Link    `json:"links,omitempty"`
	Port43      string    `json:"port43,omitempty"`
	Events      []Event   `json:"events,omitempty"`
	Lang        string    `json:"lang,omitempty"`
}

// IPNetwork is an IP address block (RFC 9083 §5.4).
type IPNetwork struct {
	Header
	Handle       string    `json:"handle,omitempty"`
	StartAddress string    `json:"startAddress,omitempty"`
	EndAddress   string    `json:"endAddress,omitempty"`
	IPVersion    string    `json:"ipVersion,omitempty"`
	Name         string    `json:"name,omitempty"`
	Type         string    `json:"type,omitempty"`
	Country      string    `json:"country,omitempty"`
	ParentHandle string    `json:"parentHandle,omitempty"`
	Status       []string  `json:"status,omitempty"`
	Entities     []*Entity `json:"entities,omitempty"`
	Remarks      []Remark  `json:"remarks,omitempty"`
	Links        []Link    `json:"links,omitempty"`
	Port43       string    `json:"port43,omitempty"`
	Events       []Event   `json:"events,omitempty"`
	Lang         string    `json:"lang,omitempty"`
}

func (d *Domain) Kind() Kind            { return KindDomain }
func (d *Domain) Key() string           { return d.LDHName }
func (d *Domain) Registrants() []string { return registrantHandles(d.Entities) }

func (e *Entity) Kind() Kind  { return KindEntity }
func (e *Entity) Key() string { return e.Handle }

// Registrants of an entity is the entity itself.
func (e *Entity) Registrants() []string {
	if e.Handle == "" {
		return nil
	}
	return []string{e.Handle}
}

func (n *Nameserver) Kind() Kind            { return KindNameserver }
func (n *Nameserver) Key() string           { return n.LDHName }
func (n *Nameserver) Registrants() []string { return registrantHandles(n.Entities) }

func (a *Autnum) Kind() Kind { return KindAutnum }

// Key of an autnum is its handle, or the start of its range when unnamed.
func (a *Autnum) Key() string {
	if a.Handle == "" && a.StartAutnum != nil {
		return strconv.FormatUint(uint64(*a.StartAutnum), 10)
	}
	return a.Handle
}
func (a *Autnum) Registrants() []string { return registrantHandles(a.Entities) }

func (n *IPNetwork) Kind() Kind            { return KindIPNetwork }
func (n *IPNetwork) Key() string           { return n.Handle }
func (n *IPNetwork) Registrants() []string { return registrantHandles(n.Entities) }

func (d *Domain) ApplyDefaults(lang, port43 string) {
	d.Lang = firstNonEmpty(d.Lang, lang)
	d.Port43 = firstNonEmpty(d.Port43, port43)
}

func (e *Entity) ApplyDefaults(lang, port43 string) {
	e.Lang = firstNonEmpty(e.Lang, lang)
	e.Port43 = firstNonEmpty(e.Port43, port43)
}

func (n *Nameserver) ApplyDefaults(lang, port43 string) {
	n.Lang = firstNonEmpty(n.Lang, lang)
	n.Port43 = firstNonEmpty(n.Port43, port43)
}

func (a *Autnum) ApplyDefaults(lang, port43 string) {
	a.Lang = firstNonEmpty(a.Lang, lang)
	a.Port43 = firstNonEmpty(a.Port43, port43)
}

func (n *IPNetwork) ApplyDefaults(lang, port43 string) {
	n.Lang = firstNonEmpty(n.Lang, lang)
	n.Port43 = firstNonEmpty(n.Port43, port43)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// MarshalJSON adds the objectClassName member.
func (d Domain) MarshalJSON() ([]byte, error) {
	type plain Domain
	return json.Marshal(struct {
		ObjectClassName string `json:"objectClassName"`
		plain
	}{string(KindDomain), plain(d)})
}

// MarshalJSON adds the objectClassName member.
func (e Entity) MarshalJSON() ([]byte, error) {
	type plain Entity
	return json.Marshal(struct {
		ObjectClassName string `json:"objectClassName"`
		plain
	}{string(KindEntity), plain(e)})
}

// MarshalJSON adds the objectClassName member.
func (n Nameserver) MarshalJSON() ([]byte, error) {
	type plain Nameserver
	return json.Marshal(struct {
		ObjectClassName string `json:"objectClassName"`
		plain
	}{string(KindNameserver), plain(n)})
}

// MarshalJSON adds the objectClassName member.
func (a Autnum) MarshalJSON() ([]byte, error) {
	type plain Autnum
	return json.Marshal(struct {
		ObjectClassName string `json:"objectClassName"`
		plain
	}{string(KindAutnum), plain(a)})
}

// MarshalJSON adds the objectClassName member.
func (n IPNetwork) MarshalJSON() ([]byte, error) {
	type plain IPNetwork
	return json.Marshal(struct {
		ObjectClassName string `json:"objectClassName"`
		plain
	}{string(KindIPNetwork), plain(n)})
}
