package policy

// Root table names, one per RDAP object class.
const (
	TableDomain     = "domain"
	TableEntity     = "entity"
	TableNameserver = "nameserver"
	TableAutnum     = "autnum"
	TableIPNetwork  = "ip_network"
)

// Tables for nested objects that are not shared across roots.
const (
	TableDomainPublicID    = "domain_public_id"
	TableEntityPublicID    = "entity_public_id"
	TableDomainVariants    = "domain_variants"
	TableSecureDNS         = "secure_dns"
	TableDSData            = "ds_data"
	TableDSDataLinks       = "ds_data_links"
	TableDSDataEvents      = "ds_data_events"
	TableDSDataEventsLinks = "ds_data_events_links"
	TableEntityVCard       = "entity_vcard"
)

// Roots lists the root table names.
var Roots = []string{TableDomain, TableEntity, TableNameserver, TableAutnum, TableIPNetwork}

// Nested returns the per-root collection tables of root.
func Nested(root string) NestedTables {
	return NestedTables{
		Links:        root + "_links",
		Remarks:      root + "_remarks",
		RemarksLinks: root + "_remarks_links",
		Events:       root + "_events",
		EventsLinks:  root + "_events_links",
	}
}

// NestedTables names the collection tables that belong to one root.
type NestedTables struct {
	Links        string
	Remarks      string
	RemarksLinks string
	Events       string
	EventsLinks  string
}

// ObjectTypes lists every table the server loads, in load order.
var ObjectTypes = objectTypes()

func objectTypes() []string {
	var types []string
	for _, root := range Roots {
		nested := Nested(root)
		types = append(types, root, nested.Links, nested.Remarks, nested.RemarksLinks, nested.Events, nested.EventsLinks)
	}
	return append(types,
		TableDomainPublicID,
		TableEntityPublicID,
		TableDomainVariants,
		TableSecureDNS,
		TableDSData,
		TableDSDataLinks,
		TableDSDataEvents,
		TableDSDataEventsLinks,
		TableEntityVCard,
	)
}
