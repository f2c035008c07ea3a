package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VCard is the contact card of an entity. It is rendered as a jCard
// (RFC 7095) array, which is what RDAP carries in vcardArray.
type VCard struct {
	Kind    string
	FN      string
	Org     string
	Title   string
	Role    string
	Emails  []string
	Phones  []string
	Address string
	URL     string
	Lang    string
}

type jcardProperty struct {
	name   string
	params map[string]any
	typ    string
	value  any
}

func (p jcardProperty) MarshalJSON() ([]byte, error) {
	params := p.params
	if params == nil {
		params = map[string]any{}
	}
	return json.Marshal([]any{p.name, params, p.typ, p.value})
}

// MarshalJSON renders the card as ["vcard", [properties...]].
func (v VCard) MarshalJSON() ([]byte, error) {
	props := []jcardProperty{{name: "version", typ: "text", value: "4.0"}}
	add := func(name, typ, value string) {
		if value != "" {
			props = append(props, jcardProperty{name: name, typ: typ, value: value})
		}
	}

	add("fn", "text", v.FN)
	add("kind", "text", v.Kind)
	add("org", "text", v.Org)
	add("title", "text", v.Title)
	add("role", "text", v.Role)
	for _, email := range v.Emails {
		add("email", "text", email)
	}
	for _, phone := range v.Phones {
		if strings.HasPrefix(phone, "tel:") {
			props = append(props, jcardProperty{name: "tel", params: map[string]any{"type": "voice"}, typ: "uri", value: phone})
			continue
		}
		props = append(props, jcardProperty{name: "tel", params: map[string]any{"type": "voice"}, typ: "text", value: phone})
	}
	if v.Address != "" {
		props = append(props, jcardProperty{
			name:   "adr",
			params: map[string]any{"label": v.Address},
			typ:    "text",
			value:  []string{"", "", "", "", "", "", ""},
		})
	}
	add("url", "uri", v.URL)
	add("lang", "language-tag", v.Lang)

	return json.Marshal([]any{"vcard", props})
}

// UnmarshalJSON parses a jCard array. Properties this server does not model
// are skipped.
func (v *VCard) UnmarshalJSON(data []byte) error {
	var outer []json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return fmt.Errorf("vcardArray: %w", err)
	}
	if len(outer) != 2 {
		return fmt.Errorf("vcardArray: expected 2 members, got %d", len(outer))
	}

	var tag string
	if err := json.Unmarshal(outer[0], &tag); err != nil || tag != "vcard" {
		return fmt.Errorf("vcardArray: missing vcard tag")
	}

	var props [][]json.RawMessage
	if err := json.Unmarshal(outer[1], &props); err != nil {
		return fmt.Errorf("vcardArray: properties: %w", err)
	}

	card := VCard{}
	for i, prop := range props {
		if len(prop) < 4 {
			return fmt.Errorf("vcardArray: property %d has %d members", i, len(prop))
		}

		var name string
		if err := json.Unmarshal(prop[0], &name); err != nil {
			return fmt.Errorf("vcardArray: property %d name: %w", i, err)
		}
		var params map[string]any
		_ = json.Unmarshal(prop[1], &params)

		var text string
		textErr := json.Unmarshal(prop[3], &text)

		switch strings.ToLower(name) {
		case "fn":
			card.FN = text
		case "kind":
			card.Kind = text
		case "org":
			card.Org = text
		case "title":
			card.Title = text
		case "role":
			card.Role = text
		case "email":
			if textErr == nil && text != "" {
				card.Emails = append(card.Emails, text)
			}
		case "tel":
			if textErr == nil && text != "" {
				card.Phones = append(card.Phones, text)
			}
		case "adr":
			if label, ok := params["label"].(string); ok {
				card.Address = label
			}
		case "url":
			card.URL = text
		case "lang":
			card.Lang = text
		}
	}

	*v = card
	return nil
}
