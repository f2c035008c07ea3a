package redact

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcarana/rdap-server/pkg/domain"
	"github.com/pcarana/rdap-server/pkg/policy"
)

func defaultTables(t testing.TB) *policy.Tables {
	t.Helper()
	tables, err := policy.NewLoader("").Load()
	require.NoError(t, err)
	return tables
}

// withLevels returns a copy of base with the given fields replaced. A zero
// level removes the field.
func withLevels(base *policy.Tables, changes map[string]map[string]policy.Level) *policy.Tables {
	raw := make(map[string]map[string]policy.Level)
	for _, objectType := range base.Types() {
		table, _ := base.Table(objectType)
		fields := make(map[string]policy.Level, table.Len())
		for _, name := range table.Fields() {
			fields[name] = table.Level(name)
		}
		raw[objectType] = fields
	}
	for objectType, fields := range changes {
		if raw[objectType] == nil {
			raw[objectType] = make(map[string]policy.Level)
		}
		for name, level := range fields {
			if level == 0 {
				delete(raw[objectType], name)
				continue
			}
			raw[objectType][name] = level
		}
	}
	return policy.NewTables(raw)
}

// registrantOwners treats a requester as owner of every object that lists
// their username as registrant.
var registrantOwners = OwnershipFunc(func(_ context.Context, username string, obj domain.Object) bool {
	for _, handle := range obj.Registrants() {
		if strings.EqualFold(handle, username) {
			return true
		}
	}
	return false
})

func newTestEngine(tables *policy.Tables) *Engine {
	return NewEngine(StaticTables{Tables: tables}, registrantOwners, zerolog.Nop())
}

func sampleDomain() *domain.Domain {
	return &domain.Domain{
		Handle:  "DOM-1",
		LDHName: "example.mx",
		Status:  []string{"active"},
		Entities: []*domain.Entity{{
			Handle: "REG-1",
			Roles:  []string{domain.RoleRegistrant},
			VCard: &domain.VCard{
				Kind:   "individual",
				FN:     "Jane Registrant",
				Emails: []string{"jane@example.mx"},
				Phones: []string{"tel:+52-55-0000-0000"},
			},
		}},
		Remarks: []domain.Remark{{
			Title:       "Internal",
			Description: []string{"Registrant requested transfer lock."},
		}},
		Events: []domain.Event{{
			EventAction: "registration",
			EventActor:  "REG-1",
			EventDate:   "2020-01-01T00:00:00Z",
		}},
		Links: []domain.Link{{
			Value: "https://rdap.example.mx/domain/example.mx",
			Rel:   "self",
			Href:  "https://rdap.example.mx/domain/example.mx",
		}},
	}
}

func scenarioTables(t *testing.T) *policy.Tables {
	return withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableDomain: {
			"entities": policy.LevelAuthenticate,
			"remarks":  policy.LevelOwner,
		},
	})
}

func TestRedactAnonymousLosesAuthenticatedCollections(t *testing.T) {
	engine := newTestEngine(scenarioTables(t))
	d := sampleDomain()

	redacted, err := engine.RedactDomain(context.Background(), Requester{}, d)
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Nil(t, d.Entities)
	assert.Nil(t, d.Remarks)
	assert.Equal(t, "example.mx", d.LDHName)
	require.Len(t, d.Events, 1)
	assert.Empty(t, d.Events[0].EventActor)
	assert.Equal(t, "registration", d.Events[0].EventAction)
}

func TestRedactAuthenticatedNonOwner(t *testing.T) {
	engine := newTestEngine(scenarioTables(t))
	d := sampleDomain()

	redacted, err := engine.RedactDomain(context.Background(), Requester{Username: "someone", Authenticated: true}, d)
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Nil(t, d.Remarks)
	require.Len(t, d.Entities, 1)
	vcard := d.Entities[0].VCard
	require.NotNil(t, vcard)
	assert.Equal(t, "Jane Registrant", vcard.FN)
	assert.Nil(t, vcard.Emails)
	assert.Nil(t, vcard.Phones)
	assert.Equal(t, "REG-1", d.Events[0].EventActor)
}

func TestRedactOwnerSeesEverything(t *testing.T) {
	engine := newTestEngine(scenarioTables(t))
	d := sampleDomain()
	want := sampleDomain()

	redacted, err := engine.RedactDomain(context.Background(), Requester{Username: "reg-1", Authenticated: true}, d)
	require.NoError(t, err)

	assert.False(t, redacted)
	assert.Equal(t, want, d)
}

func TestRedactOwnershipIsPerObject(t *testing.T) {
	engine := newTestEngine(defaultTables(t))
	d := sampleDomain()
	d.Entities = append(d.Entities, &domain.Entity{
		Handle: "TECH-1",
		Roles:  []string{"technical"},
		VCard:  &domain.VCard{FN: "Tech Person", Emails: []string{"tech@example.mx"}},
	})

	redacted, err := engine.RedactDomain(context.Background(), Requester{Username: "REG-1", Authenticated: true}, d)
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Equal(t, []string{"jane@example.mx"}, d.Entities[0].VCard.Emails)
	assert.Nil(t, d.Entities[1].VCard.Emails)
	assert.Equal(t, "Tech Person", d.Entities[1].VCard.FN)
}

func TestRedactNestedRootsGetTheirOwnOwner(t *testing.T) {
	engine := newTestEngine(withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableNameserver: {"ipAddresses": policy.LevelOwner},
	}))
	d := sampleDomain()
	d.Nameservers = []*domain.Nameserver{{
		LDHName:     "ns1.example.mx",
		IPAddresses: &domain.IPAddresses{V4: []string{"192.0.2.1"}},
	}}

	redacted, err := engine.RedactDomain(context.Background(), Requester{Username: "REG-1", Authenticated: true}, d)
	require.NoError(t, err)

	// The registrant owns the domain but not the nameserver.
	assert.True(t, redacted)
	assert.Nil(t, d.Nameservers[0].IPAddresses)
	assert.Equal(t, "ns1.example.mx", d.Nameservers[0].LDHName)
}

func TestRedactWholesaleCollectionSkipsElements(t *testing.T) {
	var ownerCalls atomic.Int32
	owners := OwnershipFunc(func(ctx context.Context, username string, obj domain.Object) bool {
		ownerCalls.Add(1)
		return registrantOwners(ctx, username, obj)
	})
	tables := withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableDomain: {"entities": policy.LevelNone},
	})
	engine := NewEngine(StaticTables{Tables: tables}, owners, zerolog.Nop())

	d := sampleDomain()
	redacted, err := engine.RedactDomain(context.Background(), Requester{Username: "REG-1", Authenticated: true}, d)
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Nil(t, d.Entities)
	// Only the domain itself was checked; the withheld entities were never visited.
	assert.Equal(t, int32(1), ownerCalls.Load())
}

func TestRedactMissingPolicyFails(t *testing.T) {
	tables := withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableEntityVCard: {"email": 0},
	})
	engine := newTestEngine(tables)

	_, err := engine.RedactDomain(context.Background(), Requester{Username: "REG-1", Authenticated: true}, sampleDomain())

	var missing *policy.MissingPolicyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, policy.TableEntityVCard, missing.ObjectType)
	assert.Equal(t, "email", missing.Field)
}

func TestRedactMissingPolicyIgnoresEmptyFields(t *testing.T) {
	tables := withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableDomain: {"port43": 0},
	})
	engine := newTestEngine(tables)

	d := sampleDomain()
	_, err := engine.RedactDomain(context.Background(), Requester{}, d)
	require.NoError(t, err)

	d.Port43 = "whois.example.mx"
	_, err = engine.Redact(context.Background(), Requester{}, d)
	var missing *policy.MissingPolicyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, policy.TableDomain, missing.ObjectType)
	assert.Equal(t, "port43", missing.Field)
}

func TestRedactMissingTableFails(t *testing.T) {
	engine := newTestEngine(policy.NewTables(nil))

	_, err := engine.RedactEntity(context.Background(), Requester{}, &domain.Entity{Handle: "E-1"})

	var missing *policy.MissingPolicyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, policy.TableEntity, missing.ObjectType)
	assert.Equal(t, "handle", missing.Field)
}

func TestRedactAllUsesPerRecordOwnership(t *testing.T) {
	engine := newTestEngine(defaultTables(t))

	mine := &domain.Entity{Handle: "REG-1", VCard: &domain.VCard{FN: "Mine", Emails: []string{"me@example.mx"}}}
	other := &domain.Entity{Handle: "REG-2", VCard: &domain.VCard{FN: "Other", Emails: []string{"other@example.mx"}}}

	redacted, err := engine.RedactAll(context.Background(), Requester{Username: "REG-1", Authenticated: true}, []domain.Object{mine, other})
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Equal(t, []string{"me@example.mx"}, mine.VCard.Emails)
	assert.Nil(t, other.VCard.Emails)
}

func TestRedactAllNothingWithheld(t *testing.T) {
	engine := newTestEngine(defaultTables(t))

	redacted, err := engine.RedactAll(context.Background(), Requester{}, []domain.Object{
		&domain.Autnum{Handle: "AS-1", Name: "EXAMPLE"},
		&domain.IPNetwork{Handle: "NET-1", StartAddress: "192.0.2.0", EndAddress: "192.0.2.255"},
	})
	require.NoError(t, err)
	assert.False(t, redacted)

	redacted, err = engine.RedactAll(context.Background(), Requester{}, nil)
	require.NoError(t, err)
	assert.False(t, redacted)
}

func TestRedactUsesOneSnapshotPerCall(t *testing.T) {
	source := &countingSource{tables: defaultTables(t)}
	engine := NewEngine(source, registrantOwners, zerolog.Nop())

	_, err := engine.RedactDomain(context.Background(), Requester{}, sampleDomain())
	require.NoError(t, err)
	assert.Equal(t, int32(1), source.calls.Load())
}

func TestRedactSecureDNSAndRemarkLinks(t *testing.T) {
	remarkLinks := policy.Nested(policy.TableDomain).RemarksLinks
	tables := withLevels(defaultTables(t), map[string]map[string]policy.Level{
		policy.TableDSData: {"digest": policy.LevelAuthenticate},
		remarkLinks:        {"href": policy.LevelNone},
	})
	engine := newTestEngine(tables)

	keyTag := uint16(12345)
	d := sampleDomain()
	d.SecureDNS = &domain.SecureDNS{DSData: []domain.DSData{{KeyTag: &keyTag, Digest: "ABCDEF"}}}
	d.Remarks[0].Links = []domain.Link{{Href: "https://example.mx/remark", Rel: "related"}}

	redacted, err := engine.RedactDomain(context.Background(), Requester{}, d)
	require.NoError(t, err)

	assert.True(t, redacted)
	assert.Empty(t, d.SecureDNS.DSData[0].Digest)
	assert.Equal(t, &keyTag, d.SecureDNS.DSData[0].KeyTag)
	assert.Empty(t, d.Remarks[0].Links[0].Href)
	assert.Equal(t, "related", d.Remarks[0].Links[0].Rel)
}

func TestRedactUnsupportedObject(t *testing.T) {
	engine := newTestEngine(defaultTables(t))

	_, err := engine.Redact(context.Background(), Requester{}, unsupported{})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}

func TestRedactedGraphSerialises(t *testing.T) {
	engine := newTestEngine(scenarioTables(t))
	d := sampleDomain()

	_, err := engine.RedactDomain(context.Background(), Requester{}, d)
	require.NoError(t, err)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "jane@example.mx")
	assert.NotContains(t, string(data), `"entities"`)
	assert.Contains(t, string(data), `"objectClassName":"domain"`)
}

type countingSource struct {
	tables *policy.Tables
	calls  atomic.Int32
}

func (s *countingSource) Current() *policy.Tables {
	s.calls.Add(1)
	return s.tables
}

type unsupported struct{}

func (unsupported) Kind() domain.Kind              { return "unsupported" }
func (unsupported) Key() string                    { return "" }
func (unsupported) Registrants() []string          { return nil }
func (unsupported) ResponseHeader() *domain.Header { return nil }
func (unsupported) ApplyDefaults(string, string)   {}
