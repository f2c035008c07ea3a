package domain

// ConformanceLevel is the rdapConformance value every response advertises.
const ConformanceLevel = "rdap_level_0"

// Header carries the response-level members RFC 9083 only allows on the
// topmost object of a response.
type Header struct {
	Conformance []string `json:"rdapConformance,omitempty"`
	Notices     []Notice `json:"notices,omitempty"`
}

// ResponseHeader exposes the header for the dispatch layer.
func (h *Header) ResponseHeader() *Header {
	return h
}

// Link signifies a link to another resource on the Internet (RFC 9083 §4.2).
type Link struct {
	Value    string   `json:"value,omitempty"`
	Rel      string   `json:"rel,omitempty"`
	Href     string   `json:"href,omitempty"`
	HrefLang []string `json:"hreflang,omitempty"`
	Title    string   `json:"title,omitempty"`
	Media    string   `json:"media,omitempty"`
	Type     string   `json:"type,omitempty"`
}

// Remark contains information about the containing object (RFC 9083 §4.3).
type Remark struct {
	Title       string   `json:"title,omitempty"`
	Type        string   `json:"type,omitempty"`
	Description []string `json:"description,omitempty"`
	Links       []Link   `json:"links,omitempty"`
}

// Notice contains information about the entire response. Notices are produced
// by the server itself and are never subject to redaction.
type Notice = Remark

// Event represents something that happened to an object (RFC 9083 §4.5).
type Event struct {
	EventAction string `json:"eventAction,omitempty"`
	EventActor  string `json:"eventActor,omitempty"`
	EventDate   string `json:"eventDate,omitempty"`
	Links       []Link `json:"links,omitempty"`
}

// PublicID maps a public identifier to an object class (RFC 9083 §4.8).
type PublicID struct {
	Type       string `json:"type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// VariantName is one name of an IDN variant set.
type VariantName struct {
	LDHName     string `json:"ldhName,omitempty"`
	UnicodeName string `json:"unicodeName,omitempty"`
}

// Variant describes IDN variants of a domain name.
type Variant struct {
	Relation     []string      `json:"relation,omitempty"`
	IDNTable     string        `json:"idnTable,omitempty"`
	VariantNames []VariantName `json:"variantNames,omitempty"`
}

// SecureDNS holds the DNSSEC delegation data of a domain.
type SecureDNS struct {
	ZoneSigned       *bool    `json:"zoneSigned,omitempty"`
	DelegationSigned *bool    `json:"delegationSigned,omitempty"`
	MaxSigLife       *int     `json:"maxSigLife,omitempty"`
	DSData           []DSData `json:"dsData,omitempty"`
}

// DSData is one delegation signer record.
type DSData struct {
	KeyTag     *uint16 `json:"keyTag,omitempty"`
	Algorithm  *uint8  `json:"algorithm,omitempty"`
	Digest     string  `json:"digest,omitempty"`
	DigestType *uint8  `json:"digestType,omitempty"`
	Events     []Event `json:"events,omitempty"`
	Links      []Link  `json:"links,omitempty"`
}

// IPAddresses lists the glue addresses of a nameserver.
type IPAddresses struct {
	V4 []string `json:"v4,omitempty"`
	V6 []string `json:"v6,omitempty"`
}

// RoleRegistrant is the entity role that marks an object's owner.
const RoleRegistrant = "registrant"

func registrantHandles(entities []*Entity) []string {
	var handles []string
	for _, e := range entities {
		if e == nil || e.Handle == "" {
			continue
		}
		for _, role := range e.Roles {
			if role == RoleRegistrant {
				handles = append(handles, e.Handle)
				break
			}
		}
	}
	return handles
}
