package pipeline

import (
	"strings"

	"oferta/internal"
	"oferta/internal/util"
)

// HeaderMap binds a canonical field name to the source header that feeds it.
// Fields with no binding are absent.
type HeaderMap map[string]string

// Strategy compares a normalized canonical field with a normalized source
// header. Strategies run in order; the first one that finds an unconsumed
// header wins the field.
type Strategy struct {
	Name  string
	Match func(field, header string) bool
}

var (
	ExactStrategy = Strategy{Name: "exact", Match: func(field, header string) bool {
		return field == header
	}}
	SubstringStrategy = Strategy{Name: "substring", Match: func(field, header string) bool {
		return strings.Contains(field, header) || strings.Contains(header, field)
	}}
	TokenOverlapStrategy = Strategy{Name: "token", Match: sharesToken}
)

var DefaultStrategies = []Strategy{ExactStrategy, SubstringStrategy, TokenOverlapStrategy}

type HeaderMatcher struct {
	aliases    map[string]string
	strategies []Strategy
}

func NewHeaderMatcher(aliases map[string]string, strategies ...Strategy) *HeaderMatcher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	normalized := make(map[string]string, len(aliases))
	for from, to := range aliases {
		normalized[util.NormalizeHeader(from)] = util.NormalizeHeader(to)
	}
	return &HeaderMatcher{aliases: normalized, strategies: strategies}
}

var defaultMatcher = NewHeaderMatcher(DefaultHeaderAliases)

// MatchHeaders binds canonical fields to source headers with the default
// alias table and strategy cascade.
func MatchHeaders(sourceHeaders, canonical []string) HeaderMap {
	return defaultMatcher.Match(sourceHeaders, canonical)
}

// BindHeaders is MatchHeaders reporting the strategy behind each binding.
func BindHeaders(sourceHeaders, canonical []string) []internal.Binding {
	return defaultMatcher.Bind(sourceHeaders, canonical)
}

func (m *HeaderMatcher) Match(sourceHeaders, canonical []string) HeaderMap {
	out := HeaderMap{}
	for _, b := range m.Bind(sourceHeaders, canonical) {
		out[b.Field] = b.Source
	}
	return out
}

type headerCandidate struct {
	source     string
	normalized string
	consumed   bool
	// reserved is set when the header exactly names a canonical field; only
	// that field may take it.
	reserved bool
}

// Bind runs the cascade field by field in canonical order. For one field
// every strategy is tried against all unconsumed headers before the next
// strategy; ties go to the earliest header in source order, so the result
// depends on the column order of the uploaded file. A header that exactly
// names a canonical field is never taken by another field.
func (m *HeaderMatcher) Bind(sourceHeaders, canonical []string) []internal.Binding {
	names := make(map[string]struct{}, len(canonical))
	for _, field := range canonical {
		if norm := m.canonicalize(field); norm != "" {
			names[norm] = struct{}{}
		}
	}

	candidates := make([]*headerCandidate, 0, len(sourceHeaders))
	seen := map[string]struct{}{}
	for _, h := range sourceHeaders {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		norm := m.canonicalize(h)
		if norm == "" {
			continue
		}
		_, reserved := names[norm]
		candidates = append(candidates, &headerCandidate{source: h, normalized: norm, reserved: reserved})
	}

	out := make([]internal.Binding, 0, len(canonical))
	bound := map[string]struct{}{}
	for _, field := range canonical {
		if _, dup := bound[field]; dup {
			continue
		}
		norm := m.canonicalize(field)
		if norm == "" {
			continue
		}
		if c, strategy := m.bindField(norm, candidates); c != nil {
			c.consumed = true
			bound[field] = struct{}{}
			out = append(out, internal.Binding{Field: field, Source: c.source, Strategy: strategy})
		}
	}
	return out
}

func (m *HeaderMatcher) bindField(field string, candidates []*headerCandidate) (*headerCandidate, string) {
	for _, strategy := range m.strategies {
		for _, c := range candidates {
			if c.consumed || (c.reserved && c.normalized != field) {
				continue
			}
			if strategy.Match(field, c.normalized) {
				return c, strategy.Name
			}
		}
	}
	return nil, ""
}

func (m *HeaderMatcher) canonicalize(header string) string {
	norm := util.NormalizeHeader(header)
	if alias, ok := m.aliases[norm]; ok {
		return alias
	}
	return norm
}

func sharesToken(field, header string) bool {
	fieldTokens := util.Tokenize(field)
	if len(fieldTokens) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(fieldTokens))
	for _, t := range fieldTokens {
		set[t] = struct{}{}
	}
	for _, t := range util.Tokenize(header) {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// Unmatched lists canonical fields the map leaves without a source header.
func Unmatched(canonical []string, hm HeaderMap) []string {
	out := []string{}
	for _, field := range canonical {
		if _, ok := hm[field]; !ok {
			out = append(out, field)
		}
	}
	return out
}
