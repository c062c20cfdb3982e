package pipeline

import (
	"oferta/internal"
	"oferta/internal/schema"
	"oferta/internal/util"
)

type DetectResult struct {
	Domain  internal.Domain
	Matched bool
	Score   float64
	Reason  string
}

var detectKeywords = map[internal.Domain][]string{
	internal.DomainHistoric: {"historic", "ficha", "oferta educativa", "aprendices"},
	internal.DomainNorms:    {"norma", "ncl", "competencia"},
	internal.DomainCatalog:  {"catalog", "programas de formacion", "programas formacion"},
	internal.DomainRegistry: {"registro calificado", "registro", "snies", "resolucion"},
}

const detectThreshold = 0.35

// DetectDomain guesses which dataset a spreadsheet belongs to from its
// file name, the mail subject and how many canonical headers it carries.
func DetectDomain(filename, subject string, headers []string) DetectResult {
	text := util.NormalizeText(filename + " " + subject)

	best := DetectResult{Reason: "rules_negative"}
	for _, d := range internal.Domains {
		s, err := schema.ForDomain(d)
		if err != nil {
			continue
		}

		exact := 0
		for _, b := range defaultMatcher.Bind(headers, s.Names()) {
			if b.Strategy == ExactStrategy.Name {
				exact++
			}
		}
		score := 0.7 * float64(exact) / float64(s.Len())
		if util.ContainsAny(text, detectKeywords[d]...) {
			score += 0.3
		}
		if score > best.Score {
			best = DetectResult{Domain: d, Score: score}
		}
	}

	if best.Score >= detectThreshold {
		best.Matched = true
		best.Reason = "rules_positive"
	} else {
		best.Reason = "rules_negative"
	}
	return best
}
