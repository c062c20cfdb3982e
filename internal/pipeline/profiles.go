package pipeline

import (
	"fmt"
	"strings"

	"oferta/internal"
	"oferta/internal/config"
	"oferta/internal/schema"
	"oferta/internal/util"
)

// RowFilter keeps a transformed record when it returns true.
type RowFilter func(schema.Record) bool

// Profile is everything the reconciler needs to know about one domain.
type Profile struct {
	Domain internal.Domain
	Schema *schema.Schema
	Key    KeyFunc
	Filter RowFilter
}

// ProfileFor returns the profile of d. A nil s uses the built-in schema.
func ProfileFor(d internal.Domain, s *schema.Schema, cfg config.Config) (Profile, error) {
	if s == nil {
		builtin, err := schema.ForDomain(d)
		if err != nil {
			return Profile{}, err
		}
		s = builtin
	}

	p := Profile{Domain: d, Schema: s}
	switch d {
	case internal.DomainHistoric:
		p.Key = HistoricKey
		p.Filter = RegionalFilter(cfg.HistoricRegionalCode, cfg.HistoricRegionalName)
	case internal.DomainNorms:
		p.Key = NormsKey
	case internal.DomainCatalog:
		p.Key = NewCatalogKey(s, schema.CatalogCode)
	case internal.DomainRegistry:
		p.Key = RegistryKey
	default:
		return Profile{}, fmt.Errorf("no profile for domain %q", d)
	}
	return p, nil
}

// Apply splits records into those the filter keeps and a count of the
// dropped ones.
func (f RowFilter) Apply(records []schema.Record) ([]schema.Record, int) {
	if f == nil {
		return records, 0
	}
	kept := make([]schema.Record, 0, len(records))
	for _, r := range records {
		if f(r) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}

// RegionalFilter keeps historic rows of one regional. code is compared as
// a number when it is one; name must appear in the regional name. Empty
// criteria are ignored and with both empty there is no filter.
func RegionalFilter(code, name string) RowFilter {
	code = strings.TrimSpace(code)
	name = util.NormalizeText(name)
	if code == "" && name == "" {
		return nil
	}
	return func(r schema.Record) bool {
		if code != "" && !sameCode(r.Get(schema.HistoricRegionCode), code) {
			return false
		}
		if name != "" && !strings.Contains(util.NormalizeText(r.Get(schema.HistoricRegionName)), name) {
			return false
		}
		return true
	}
}

func sameCode(value, want string) bool {
	value = strings.TrimSpace(value)
	if value == want {
		return true
	}
	v, w := util.ParseCount(value), util.ParseCount(want)
	return w != 0 && v == w
}
