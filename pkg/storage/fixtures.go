package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pcarana/rdap-server/pkg/domain"
)

// Fixtures is the seed file format: one list of RDAP objects per kind, each
// written in its RFC 9083 JSON shape.
type Fixtures struct {
	Domains     []any `yaml:"domains" json:"domains"`
	Entities    []any `yaml:"entities" json:"entities"`
	Nameservers []any `yaml:"nameservers" json:"nameservers"`
	Autnums     []any `yaml:"autnums" json:"autnums"`
	IPNetworks  []any `yaml:"ip_networks" json:"ip_networks"`
}

// LoadFixtures reads a YAML or JSON seed file and stores every object in w.
// It returns the number of objects stored.
func LoadFixtures(ctx context.Context, w Writer, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return SeedFixtures(ctx, w, data, strings.EqualFold(filepath.Ext(path), ".json"))
}

// SeedFixtures stores the objects of an in-memory seed document.
func SeedFixtures(ctx context.Context, w Writer, data []byte, isJSON bool) (int, error) {
	var fx Fixtures
	if isJSON {
		if err := json.Unmarshal(data, &fx); err != nil {
			return 0, fmt.Errorf("failed to parse fixtures: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&fx); err != nil {
			return 0, fmt.Errorf("failed to parse fixtures: %w", err)
		}
	}

	sets := []struct {
		kind  domain.Kind
		items []any
	}{
		{domain.KindEntity, fx.Entities},
		{domain.KindNameserver, fx.Nameservers},
		{domain.KindDomain, fx.Domains},
		{domain.KindAutnum, fx.Autnums},
		{domain.KindIPNetwork, fx.IPNetworks},
	}

	count := 0
	for _, set := range sets {
		for i, item := range set.items {
			raw, err := json.Marshal(item)
			if err != nil {
				return count, fmt.Errorf("%s fixture %d: %w", set.kind, i, err)
			}
			obj, err := domain.Decode(set.kind, raw)
			if err != nil {
				return count, fmt.Errorf("%s fixture %d: %w", set.kind, i, err)
			}
			if err := w.Put(ctx, obj); err != nil {
				return count, fmt.Errorf("%s fixture %d: %w", set.kind, i, err)
			}
			count++
		}
	}
	return count, nil
}
