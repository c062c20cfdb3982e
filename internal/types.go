package internal

import (
	"fmt"
	"strings"
)

type Domain string

const (
	DomainCatalog  Domain = "catalog"
	DomainNorms    Domain = "norms"
	DomainHistoric Domain = "historic"
	DomainRegistry Domain = "registry"
)

var Domains = []Domain{DomainCatalog, DomainNorms, DomainHistoric, DomainRegistry}

func ParseDomain(input string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "catalog", "catalogo":
		return DomainCatalog, nil
	case "norms", "normas", "estado_normas":
		return DomainNorms, nil
	case "historic", "historico":
		return DomainHistoric, nil
	case "registry", "registro", "registro_calificado":
		return DomainRegistry, nil
	default:
		return "", fmt.Errorf("unknown domain: %q", input)
	}
}

// MergeResult reports what one merge did with an incoming batch.
// AddedCount+DuplicateCount+ExceededCount always equals TotalInFile.
type MergeResult struct {
	TotalInFile    int `json:"totalInFile"`
	AddedCount     int `json:"addedCount"`
	DuplicateCount int `json:"duplicateCount"`
	ExceededCount  int `json:"exceededCount"`
	TotalInSystem  int `json:"totalInSystem"`
}

// Add folds a later chunk's result into r. Counters are summed; the
// dataset size is taken from the later chunk.
func (r MergeResult) Add(next MergeResult) MergeResult {
	return MergeResult{
		TotalInFile:    r.TotalInFile + next.TotalInFile,
		AddedCount:     r.AddedCount + next.AddedCount,
		DuplicateCount: r.DuplicateCount + next.DuplicateCount,
		ExceededCount:  r.ExceededCount + next.ExceededCount,
		TotalInSystem:  next.TotalInSystem,
	}
}

type Binding struct {
	Field    string `json:"field"`
	Source   string `json:"source"`
	Strategy string `json:"strategy"`
}

type ImportReport struct {
	TraceID   string      `json:"traceId"`
	Domain    Domain      `json:"domain"`
	Source    string      `json:"source"`
	Merge     MergeResult `json:"merge"`
	Filtered  int         `json:"filtered"`
	Bindings  []Binding   `json:"bindings"`
	Unmatched []string    `json:"unmatched"`
}

type RunRow struct {
	ID        int
	TraceID   string
	Domain    string
	Source    string
	Counts    MergeResult
	Filtered  int
	Unmatched []string
	CreatedAt string
}

type InboxRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
