package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"oferta/internal"
	"oferta/internal/config"
	"oferta/internal/schema"
	"oferta/internal/storage"
	"oferta/internal/util"
)

var ErrUndetectedDomain = errors.New("could not detect the dataset of the table")

// ImportService runs the reconciler against the stored datasets. Each
// domain is loaded once and then kept as a Session whose key index grows
// with every import.
type ImportService struct {
	db  *storage.DB
	cfg config.Config

	mu     sync.Mutex
	states map[internal.Domain]*domainState
}

type domainState struct {
	mu      sync.Mutex
	profile Profile
	session *Session
	// headers, when set, replaces the schema's field names as the list the
	// source headers are matched against.
	headers []string
}

func NewImportService(db *storage.DB, cfg config.Config) *ImportService {
	return &ImportService{db: db, cfg: cfg, states: map[internal.Domain]*domainState{}}
}

func (s *ImportService) state(d internal.Domain) (*domainState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[d]; ok {
		return st, nil
	}
	profile, err := ProfileFor(d, nil, s.cfg)
	if err != nil {
		return nil, err
	}
	existing, err := s.db.LoadDataset(profile.Schema)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d, err)
	}
	session, err := NewSession(existing, profile.Key, s.cfg.MaxRecords)
	if err != nil {
		return nil, err
	}
	st := &domainState{profile: profile, session: session}
	s.states[d] = st
	return st, nil
}

// ImportTable matches the table's headers, transforms and filters its rows
// and merges them into the domain dataset. Appended records and the run are
// persisted before returning.
func (s *ImportService) ImportTable(ctx context.Context, d internal.Domain, source string, table SourceTable) (internal.ImportReport, error) {
	return s.importTable(ctx, d, source, table, 0)
}

func (s *ImportService) importTable(ctx context.Context, d internal.Domain, source string, table SourceTable, inboxID int) (internal.ImportReport, error) {
	if err := ctx.Err(); err != nil {
		return internal.ImportReport{}, err
	}
	start := time.Now()

	st, err := s.state(d)
	if err != nil {
		return internal.ImportReport{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	canonical := st.profile.Schema.Names()
	var bindings []internal.Binding
	if st.headers != nil {
		bindings = ontoSchema(st.profile.Schema, defaultMatcher.Bind(table.Headers, st.headers))
	} else {
		bindings = defaultMatcher.Bind(table.Headers, canonical)
	}
	hm := HeaderMap{}
	for _, b := range bindings {
		hm[b.Field] = b.Source
	}

	records, err := TransformRows(st.profile.Schema, table.Rows, hm)
	if err != nil {
		return internal.ImportReport{}, err
	}
	kept, filtered := st.profile.Filter.Apply(records)
	transformed := time.Now()

	before := st.session.Dataset()
	result, err := st.session.MergeChunked(kept, s.cfg.ImportChunkSize)
	if err != nil {
		return internal.ImportReport{}, err
	}
	merged := time.Now()

	appended := st.session.Dataset().Records[before.Len():]
	if err := ctx.Err(); err != nil {
		_ = st.session.Replace(before.Records)
		return internal.ImportReport{}, err
	}
	if err := s.db.AppendRecords(string(d), before.Len(), appended); err != nil {
		_ = st.session.Replace(before.Records)
		return internal.ImportReport{}, fmt.Errorf("persist %s: %w", d, err)
	}

	report := internal.ImportReport{
		TraceID:   traceID(),
		Domain:    d,
		Source:    source,
		Merge:     result,
		Filtered:  filtered,
		Bindings:  bindings,
		Unmatched: Unmatched(canonical, hm),
	}
	_ = s.db.InsertRun(report, inboxID, map[string]float64{
		"transformMs": float64(transformed.Sub(start).Milliseconds()),
		"mergeMs":     float64(merged.Sub(transformed).Milliseconds()),
		"totalMs":     float64(time.Since(start).Milliseconds()),
	})
	return report, nil
}

// SetCanonicalHeaders makes later imports of d match source headers against
// names, as read from a dashboard table, instead of the schema's own field
// names. Each name feeds the field it normalizes to; fields missing from
// names are left empty. A nil names restores the schema's list.
func (s *ImportService) SetCanonicalHeaders(d internal.Domain, names []string) error {
	st, err := s.state(d)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if names != nil {
		named := make([]internal.Binding, 0, len(names))
		for _, n := range names {
			named = append(named, internal.Binding{Field: n})
		}
		if len(ontoSchema(st.profile.Schema, named)) == 0 {
			return fmt.Errorf("no header of the list names a %s field", d)
		}
	}
	st.headers = names
	return nil
}

// ontoSchema renames bindings made against a foreign header list to the
// schema fields they name. Bindings that name no field, or a field already
// taken, are dropped.
func ontoSchema(s *schema.Schema, bindings []internal.Binding) []internal.Binding {
	fields := map[string]string{}
	for _, name := range s.Names() {
		fields[defaultMatcher.canonicalize(name)] = name
	}
	out := make([]internal.Binding, 0, len(bindings))
	for _, b := range bindings {
		field, ok := fields[defaultMatcher.canonicalize(b.Field)]
		if !ok {
			continue
		}
		delete(fields, defaultMatcher.canonicalize(b.Field))
		b.Field = field
		out = append(out, b)
	}
	return out
}

// ImportFile decodes path and imports it. An empty domain is detected
// from the file name and headers.
func (s *ImportService) ImportFile(ctx context.Context, d internal.Domain, inputType, path string) (internal.ImportReport, error) {
	table, err := ReadTableFromInput(inputType, path)
	if err != nil {
		return internal.ImportReport{}, err
	}
	source := filepath.Base(path)
	if d == "" {
		detect := DetectDomain(source, "", table.Headers)
		if !detect.Matched {
			return internal.ImportReport{}, fmt.Errorf("%s: %w", source, ErrUndetectedDomain)
		}
		d = detect.Domain
	}
	return s.ImportTable(ctx, d, source, table)
}

func (s *ImportService) Dataset(d internal.Domain) (schema.Dataset, error) {
	st, err := s.state(d)
	if err != nil {
		return schema.Dataset{}, err
	}
	return st.session.Dataset(), nil
}

func (s *ImportService) Clear(d internal.Domain) error {
	st, err := s.state(d)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := s.db.ClearDataset(string(d)); err != nil {
		return err
	}
	st.session.Clear()
	return nil
}

// Replace stores records as the whole dataset of d, as after a pull from
// the remote API. Records must be built from the domain's schema.
func (s *ImportService) Replace(d internal.Domain, records []schema.Record) error {
	st, err := s.state(d)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := checkSchema(st.profile.Schema, records); err != nil {
		return err
	}
	if err := s.db.ReplaceDataset(schema.NewDataset(st.profile.Schema, records...)); err != nil {
		return err
	}
	return st.session.Replace(records)
}

type ProcessResult struct {
	InboxID int
	Reports []internal.ImportReport
	Skipped []string
}

func (s *ImportService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string) (ProcessResult, error) {
	row, err := s.db.MustInboxByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessMessage(ctx, row)
}

// ProcessPending handles fetched messages oldest first. It returns how many
// messages were handled and the imports they produced.
func (s *ImportService) ProcessPending(ctx context.Context, limit int, provider string) (int, []internal.ImportReport, error) {
	pending, err := s.db.ListInboxByStatus("fetched", limit)
	if err != nil {
		return 0, nil, err
	}
	handled := 0
	var reports []internal.ImportReport
	for _, row := range pending {
		if provider != "" && row.Provider != provider {
			continue
		}
		res, err := s.ProcessMessage(ctx, row)
		if err != nil {
			return handled, reports, err
		}
		handled++
		reports = append(reports, res.Reports...)
	}
	return handled, reports, nil
}

// ProcessMessage imports every spreadsheet attachment whose dataset can be
// detected. A message with no importable attachment is marked skipped.
func (s *ImportService) ProcessMessage(ctx context.Context, row internal.InboxRow) (ProcessResult, error) {
	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	mail, err := ExtractSpreadsheets(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	subject := util.FirstNonEmpty(mail.Subject, row.Subject)

	res := ProcessResult{InboxID: row.ID}
	for _, a := range mail.Attachments {
		table, err := DecodeAttachment(a)
		if err != nil {
			res.Skipped = append(res.Skipped, a.Name)
			continue
		}
		detect := DetectDomain(a.Name, subject, table.Headers)
		if !detect.Matched {
			res.Skipped = append(res.Skipped, a.Name)
			continue
		}
		report, err := s.importTable(ctx, detect.Domain, a.Name, table, row.ID)
		if err != nil {
			return res, fmt.Errorf("%s: %w", a.Name, err)
		}
		res.Reports = append(res.Reports, report)
	}

	status := "processed"
	if len(res.Reports) == 0 {
		status = "skipped"
	}
	if err := s.db.UpdateInboxStatus(row.ID, status); err != nil {
		return res, err
	}
	return res, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
