package redact

import (
	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/policy"
)

// schemas holds the field lists of every record type. Descenders reach the
// lists through s at call time, which lets the record types nest recursively.
type schemas struct {
	link     []field[domain.Link]
	publicID []field[domain.PublicID]
	variant  []field[domain.Variant]
	vcard    []field[domain.VCard]

	secureDNS    []field[domain.SecureDNS]
	dsData       []field[domain.DSData]
	dsDataEvents []field[domain.Event]

	domain     []field[domain.Domain]
	entity     []field[domain.Entity]
	nameserver []field[domain.Nameserver]
	autnum     []field[domain.Autnum]
	ipNetwork  []field[domain.IPNetwork]
}

// collections groups the per-root remark and event schemas, whose link
// tables differ by root.
type collections struct {
	tables  policy.NestedTables
	remarks []field[domain.Remark]
	events  []field[domain.Event]
}

func newSchemas() *schemas {
	s := &schemas{}

	s.link = []field[domain.Link]{
		slot("value", func(l *domain.Link) *string { return &l.Value }),
		slot("rel", func(l *domain.Link) *string { return &l.Rel }),
		slot("href", func(l *domain.Link) *string { return &l.Href }),
		slot("hreflang", func(l *domain.Link) *[]string { return &l.HrefLang }),
		slot("title", func(l *domain.Link) *string { return &l.Title }),
		slot("media", func(l *domain.Link) *string { return &l.Media }),
		slot("type", func(l *domain.Link) *string { return &l.Type }),
	}

	s.publicID = []field[domain.PublicID]{
		slot("type", func(p *domain.PublicID) *string { return &p.Type }),
		slot("identifier", func(p *domain.PublicID) *string { return &p.Identifier }),
	}

	s.variant = []field[domain.Variant]{
		slot("relation", func(v *domain.Variant) *[]string { return &v.Relation }),
		slot("idnTable", func(v *domain.Variant) *string { return &v.IDNTable }),
		slot("variantNames", func(v *domain.Variant) *[]domain.VariantName { return &v.VariantNames }),
	}

	s.vcard = []field[domain.VCard]{
		slot("kind", func(c *domain.VCard) *string { return &c.Kind }),
		slot("fn", func(c *domain.VCard) *string { return &c.FN }),
		slot("org", func(c *domain.VCard) *string { return &c.Org }),
		slot("title", func(c *domain.VCard) *string { return &c.Title }),
		slot("role", func(c *domain.VCard) *string { return &c.Role }),
		slot("email", func(c *domain.VCard) *[]string { return &c.Emails }),
		slot("tel", func(c *domain.VCard) *[]string { return &c.Phones }),
		slot("adr", func(c *domain.VCard) *string { return &c.Address }),
		slot("url", func(c *domain.VCard) *string { return &c.URL }),
		slot("lang", func(c *domain.VCard) *string { return &c.Lang }),
	}

	s.dsDataEvents = eventFields(s, policy.TableDSDataEventsLinks)
	s.dsData = []field[domain.DSData]{
		slot("keyTag", func(d *domain.DSData) **uint16 { return &d.KeyTag }),
		slot("algorithm", func(d *domain.DSData) **uint8 { return &d.Algorithm }),
		slot("digest", func(d *domain.DSData) *string { return &d.Digest }),
		slot("digestType", func(d *domain.DSData) **uint8 { return &d.DigestType }),
		eventsField("events", policy.TableDSDataEvents, s.dsDataEvents, func(d *domain.DSData) *[]domain.Event { return &d.Events }),
		linksField(s, policy.TableDSDataLinks, func(d *domain.DSData) *[]domain.Link { return &d.Links }),
	}

	s.secureDNS = []field[domain.SecureDNS]{
		slot("zoneSigned", func(d *domain.SecureDNS) **bool { return &d.ZoneSigned }),
		slot("delegationSigned", func(d *domain.SecureDNS) **bool { return &d.DelegationSigned }),
		slot("maxSigLife", func(d *domain.SecureDNS) **int { return &d.MaxSigLife }),
		slot("dsData", func(d *domain.SecureDNS) *[]domain.DSData { return &d.DSData }).
			then(func(w *walker, d *domain.SecureDNS, v policy.Viewer) (bool, error) {
				return each(w, policy.TableDSData, s.dsData, d.DSData, v)
			}),
	}

	s.domain = domainFields(s, newCollections(s, policy.TableDomain))
	s.entity = entityFields(s, newCollections(s, policy.TableEntity))
	s.nameserver = nameserverFields(s, newCollections(s, policy.TableNameserver))
	s.autnum = autnumFields(s, newCollections(s, policy.TableAutnum))
	s.ipNetwork = ipNetworkFields(s, newCollections(s, policy.TableIPNetwork))

	return s
}

func newCollections(s *schemas, root string) collections {
	tables := policy.Nested(root)
	return collections{
		tables:  tables,
		remarks: remarkFields(s, tables.RemarksLinks),
		events:  eventFields(s, tables.EventsLinks),
	}
}

func remarkFields(s *schemas, linksTable string) []field[domain.Remark] {
	return []field[domain.Remark]{
		slot("title", func(r *domain.Remark) *string { return &r.Title }),
		slot("type", func(r *domain.Remark) *string { return &r.Type }),
		slot("description", func(r *domain.Remark) *[]string { return &r.Description }),
		linksField(s, linksTable, func(r *domain.Remark) *[]domain.Link { return &r.Links }),
	}
}

func eventFields(s *schemas, linksTable string) []field[domain.Event] {
	return []field[domain.Event]{
		slot("eventAction", func(e *domain.Event) *string { return &e.EventAction }),
		slot("eventActor", func(e *domain.Event) *string { return &e.EventActor }),
		slot("eventDate", func(e *domain.Event) *string { return &e.EventDate }),
		linksField(s, linksTable, func(e *domain.Event) *[]domain.Link { return &e.Links }),
	}
}

func linksField[T any](s *schemas, table string, at func(*T) *[]domain.Link) field[T] {
	return slot("links", at).then(func(w *walker, obj *T, v policy.Viewer) (bool, error) {
		return each(w, table, s.link, *at(obj), v)
	})
}

func remarksField[T any](c collections, at func(*T) *[]domain.Remark) field[T] {
	return slot("remarks", at).then(func(w *walker, obj *T, v policy.Viewer) (bool, error) {
		return each(w, c.tables.Remarks, c.remarks, *at(obj), v)
	})
}

func eventsField[T any](name, table string, events []field[domain.Event], at func(*T) *[]domain.Event) field[T] {
	return slot(name, at).then(func(w *walker, obj *T, v policy.Viewer) (bool, error) {
		return each(w, table, events, *at(obj), v)
	})
}

func publicIDsField[T any](s *schemas, table string, at func(*T) *[]domain.PublicID) field[T] {
	return slot("publicIds", at).then(func(w *walker, obj *T, v policy.Viewer) (bool, error) {
		return each(w, table, s.publicID, *at(obj), v)
	})
}

// Nested roots are owned independently, so their descenders ignore the
// containing object's viewer.

func entitiesField[T any](s *schemas, at func(*T) *[]*domain.Entity) field[T] {
	return slot("entities", at).then(func(w *walker, obj *T, _ policy.Viewer) (bool, error) {
		return s.redactEntities(w, *at(obj))
	})
}

func domainFields(s *schemas, c collections) []field[domain.Domain] {
	return []field[domain.Domain]{
		slot("handle", func(d *domain.Domain) *string { return &d.Handle }),
		slot("ldhName", func(d *domain.Domain) *string { return &d.LDHName }),
		slot("unicodeName", func(d *domain.Domain) *string { return &d.UnicodeName }),
		slot("variants", func(d *domain.Domain) *[]domain.Variant { return &d.Variants }).
			then(func(w *walker, d *domain.Domain, v policy.Viewer) (bool, error) {
				return each(w, policy.TableDomainVariants, s.variant, d.Variants, v)
			}),
		slot("nameservers", func(d *domain.Domain) *[]*domain.Nameserver { return &d.Nameservers }).
			then(func(w *walker, d *domain.Domain, _ policy.Viewer) (bool, error) {
				return redactList(w, d.Nameservers, s.redactNameserver)
			}),
		slot("secureDNS", func(d *domain.Domain) **domain.SecureDNS { return &d.SecureDNS }).
			then(func(w *walker, d *domain.Domain, v policy.Viewer) (bool, error) {
				return apply(w, policy.TableSecureDNS, s.secureDNS, d.SecureDNS, v)
			}),
		entitiesField(s, func(d *domain.Domain) *[]*domain.Entity { return &d.Entities }),
		slot("status", func(d *domain.Domain) *[]string { return &d.Status }),
		publicIDsField(s, policy.TableDomainPublicID, func(d *domain.Domain) *[]domain.PublicID { return &d.PublicIDs }),
		remarksField(c, func(d *domain.Domain) *[]domain.Remark { return &d.Remarks }),
		linksField(s, c.tables.Links, func(d *domain.Domain) *[]domain.Link { return &d.Links }),
		slot("port43", func(d *domain.Domain) *string { return &d.Port43 }),
		eventsField("events", c.tables.Events, c.events, func(d *domain.Domain) *[]domain.Event { return &d.Events }),
		slot("network", func(d *domain.Domain) **domain.IPNetwork { return &d.Network }).
			then(func(w *walker, d *domain.Domain, _ policy.Viewer) (bool, error) {
				return s.redactIPNetwork(w, d.Network)
			}),
		slot("lang", func(d *domain.Domain) *string { return &d.Lang }),
	}
}

func entityFields(s *schemas, c collections) []field[domain.Entity] {
	return []field[domain.Entity]{
		slot("handle", func(e *domain.Entity) *string { return &e.Handle }),
		slot("vcardArray", func(e *domain.Entity) **domain.VCard { return &e.VCard }).
			then(func(w *walker, e *domain.Entity, v policy.Viewer) (bool, error) {
				return apply(w, policy.TableEntityVCard, s.vcard, e.VCard, v)
			}),
		slot("roles", func(e *domain.Entity) *[]string { return &e.Roles }),
		publicIDsField(s, policy.TableEntityPublicID, func(e *domain.Entity) *[]domain.PublicID { return &e.PublicIDs }),
		entitiesField(s, func(e *domain.Entity) *[]*domain.Entity { return &e.Entities }),
		remarksField(c, func(e *domain.Entity) *[]domain.Remark { return &e.Remarks }),
		linksField(s, c.tables.Links, func(e *domain.Entity) *[]domain.Link { return &e.Links }),
		eventsField("events", c.tables.Events, c.events, func(e *domain.Entity) *[]domain.Event { return &e.Events }),
		eventsField("asEventActor", c.tables.Events, c.events, func(e *domain.Entity) *[]domain.Event { return &e.AsEventActor }),
		slot("status", func(e *domain.Entity) *[]string { return &e.Status }),
		slot("port43", func(e *domain.Entity) *string { return &e.Port43 }),
		slot("networks", func(e *domain.Entity) *[]*domain.IPNetwork { return &e.Networks }).
			then(func(w *walker, e *domain.Entity, _ policy.Viewer) (bool, error) {
				return redactList(w, e.Networks, s.redactIPNetwork)
			}),
		slot("autnums", func(e *domain.Entity) *[]*domain.Autnum { return &e.Autnums }).
			then(func(w *walker, e *domain.Entity, _ policy.Viewer) (bool, error) {
				return redactList(w, e.Autnums, s.redactAutnum)
			}),
		slot("lang", func(e *domain.Entity) *string { return &e.Lang }),
	}
}

func nameserverFields(s *schemas, c collections) []field[domain.Nameserver] {
	return []field[domain.Nameserver]{
		slot("handle", func(n *domain.Nameserver) *string { return &n.Handle }),
		slot("ldhName", func(n *domain.Nameserver) *string { return &n.LDHName }),
		slot("unicodeName", func(n *domain.Nameserver) *string { return &n.UnicodeName }),
		slot("ipAddresses", func(n *domain.Nameserver) **domain.IPAddresses { return &n.IPAddresses }),
		entitiesField(s, func(n *domain.Nameserver) *[]*domain.Entity { return &n.Entities }),
		slot("status", func(n *domain.Nameserver) *[]string { return &n.Status }),
		remarksField(c, func(n *domain.Nameserver) *[]domain.Remark { return &n.Remarks }),
		linksField(s, c.tables.Links, func(n *domain.Nameserver) *[]domain.Link { return &n.Links }),
		slot("port43", func(n *domain.Nameserver) *string { return &n.Port43 }),
		eventsField("events", c.tables.Events, c.events, func(n *domain.Nameserver) *[]domain.Event { return &n.Events }),
		slot("lang", func(n *domain.Nameserver) *string { return &n.Lang }),
	}
}

func autnumFields(s *schemas, c collections) []field[domain.Autnum] {
	return []field[domain.Autnum]{
		slot("handle", func(a *domain.Autnum) *string { return &a.Handle }),
		slot("startAutnum", func(a *domain.Autnum) **uint32 { return &a.StartAutnum }),
		slot("endAutnum", func(a *domain.Autnum) **uint32 { return &a.EndAutnum }),
		slot("name", func(a *domain.Autnum) *string { return &a.Name }),
		slot("type", func(a *domain.Autnum) *string { return &a.Type }),
		slot("status", func(a *domain.Autnum) *[]string { return &a.Status }),
		slot("country", func(a *domain.Autnum) *string { return &a.Country }),
		entitiesField(s, func(a *domain.Autnum) *[]*domain.Entity { return &a.Entities }),
		remarksField(c, func(a *domain.Autnum) *[]domain.Remark { return &a.Remarks }),
		linksField(s, c.tables.Links, func(a *domain.Autnum) *[]domain.Link { return &a.Links }),
		slot("port43", func(a *domain.Autnum) *string { return &a.Port43 }),
		eventsField("events", c.tables.Events, c.events, func(a *domain.Autnum) *[]domain.Event { return &a.Events }),
		slot("lang", func(a *domain.Autnum) *string { return &a.Lang }),
	}
}

func ipNetworkFields(s *schemas, c collections) []field[domain.IPNetwork] {
	return []field[domain.IPNetwork]{
		slot("handle", func(n *domain.IPNetwork) *string { return &n.Handle }),
		slot("startAddress", func(n *domain.IPNetwork) *string { return &n.StartAddress }),
		slot("endAddress", func(n *domain.IPNetwork) *string { return &n.EndAddress }),
		slot("ipVersion", func(n *domain.IPNetwork) *string { return &n.IPVersion }),
		slot("name", func(n *domain.IPNetwork) *string { return &n.Name }),
		slot("type", func(n *domain.IPNetwork) *string { return &n.Type }),
		slot("country", func(n *domain.IPNetwork) *string { return &n.Country }),
		slot("parentHandle", func(n *domain.IPNetwork) *string { return &n.ParentHandle }),
		slot("status", func(n *domain.IPNetwork) *[]string { return &n.Status }),
		entitiesField(s, func(n *domain.IPNetwork) *[]*domain.Entity { return &n.Entities }),
		remarksField(c, func(n *domain.IPNetwork) *[]domain.Remark { return &n.Remarks }),
		linksField(s, c.tables.Links, func(n *domain.IPNetwork) *[]domain.Link { return &n.Links }),
		slot("port43", func(n *domain.IPNetwork) *string { return &n.Port43 }),
		eventsField("events", c.tables.Events, c.events, func(n *domain.IPNetwork) *[]domain.Event { return &n.Events }),
		slot("lang", func(n *domain.IPNetwork) *string { return &n.Lang }),
	}
}

func (s *schemas) redactDomain(w *walker, d *domain.Domain) (bool, error) {
	if d == nil {
		return false, nil
	}
	return apply(w, policy.TableDomain, s.domain, d, w.viewerFor(d))
}

func (s *schemas) redactEntity(w *walker, e *domain.Entity) (bool, error) {
	if e == nil {
		return false, nil
	}
	return apply(w, policy.TableEntity, s.entity, e, w.viewerFor(e))
}

func (s *schemas) redactNameserver(w *walker, n *domain.Nameserver) (bool, error) {
	if n == nil {
		return false, nil
	}
	return apply(w, policy.TableNameserver, s.nameserver, n, w.viewerFor(n))
}

func (s *schemas) redactAutnum(w *walker, a *domain.Autnum) (bool, error) {
	if a == nil {
		return false, nil
	}
	return apply(w, policy.TableAutnum, s.autnum, a, w.viewerFor(a))
}

func (s *schemas) redactIPNetwork(w *walker, n *domain.IPNetwork) (bool, error) {
	if n == nil {
		return false, nil
	}
	return apply(w, policy.TableIPNetwork, s.ipNetwork, n, w.viewerFor(n))
}

func (s *schemas) redactEntities(w *walker, entities []*domain.Entity) (bool, error) {
	return redactList(w, entities, s.redactEntity)
}

// redactObject dispatches on the root type.
func (s *schemas) redactObject(w *walker, obj domain.Object) (bool, error) {
	switch o := obj.(type) {
	case *domain.Domain:
		return s.redactDomain(w, o)
	case *domain.Entity:
		return s.redactEntity(w, o)
	case *domain.Nameserver:
		return s.redactNameserver(w, o)
	case *domain.Autnum:
		return s.redactAutnum(w, o)
	case *domain.IPNetwork:
		return s.redactIPNetwork(w, o)
	case nil:
		return false, nil
	default:
		return false, domain.NotImplementedf("redaction of %T is not supported", obj)
	}
}

func redactList[E any](w *walker, items []*E, redact func(*walker, *E) (bool, error)) (bool, error) {
	redacted := false
	for _, item := range items {
		r, err := redact(w, item)
		if err != nil {
			return redacted, err
		}
		redacted = redacted || r
	}
	return redacted, nil
}
