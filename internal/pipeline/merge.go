package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"oferta/internal"
	"oferta/internal/schema"
)

// Merge appends the incoming records whose identity is new to existing,
// up to maxRecords in total. existing is left untouched; the result shares
// no writable capacity with it.
func Merge(existing schema.Dataset, incoming []schema.Record, keyFn KeyFunc, maxRecords int) (schema.Dataset, internal.MergeResult) {
	idx := NewKeyIndex(keyFn)
	idx.Sync(existing.Records)
	records, result := mergeInto(slices.Clip(existing.Records), incoming, idx, maxRecords)
	return schema.Dataset{Schema: existing.Schema, Records: records}, result
}

// mergeInto checks duplicates before capacity, so a repeated record never
// counts as exceeded while its first copy is in the index.
func mergeInto(records, incoming []schema.Record, idx *KeyIndex, maxRecords int) ([]schema.Record, internal.MergeResult) {
	result := internal.MergeResult{TotalInFile: len(incoming)}
	before := len(records)
	for _, rec := range incoming {
		key := idx.keyFn(rec)
		if idx.Contains(key) {
			result.DuplicateCount++
			continue
		}
		if before+result.AddedCount >= maxRecords {
			result.ExceededCount++
			continue
		}
		records = append(records, rec)
		idx.Add(key)
		result.AddedCount++
	}
	idx.covered = len(records)
	result.TotalInSystem = len(records)
	return records, result
}

// Session is the long-lived state of one domain dataset: the records and
// an index that grows with them.
type Session struct {
	mu         sync.Mutex
	schema     *schema.Schema
	records    []schema.Record
	index      *KeyIndex
	maxRecords int
}

func NewSession(existing schema.Dataset, keyFn KeyFunc, maxRecords int) (*Session, error) {
	if existing.Schema == nil {
		return nil, errors.New("session: nil schema")
	}
	if keyFn == nil {
		return nil, errors.New("session: nil key function")
	}
	if err := checkSchema(existing.Schema, existing.Records); err != nil {
		return nil, err
	}
	s := &Session{
		schema:     existing.Schema,
		records:    slices.Clone(existing.Records),
		index:      NewKeyIndex(keyFn),
		maxRecords: maxRecords,
	}
	s.index.Sync(s.records)
	return s, nil
}

func (s *Session) Schema() *schema.Schema { return s.schema }

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Dataset returns a snapshot; appending to it does not affect the session.
func (s *Session) Dataset() schema.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schema.Dataset{Schema: s.schema, Records: slices.Clip(s.records)}
}

func (s *Session) Merge(incoming []schema.Record) (internal.MergeResult, error) {
	if err := checkSchema(s.schema, incoming); err != nil {
		return internal.MergeResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index.Sync(s.records)
	var result internal.MergeResult
	s.records, result = mergeInto(s.records, incoming, s.index, s.maxRecords)
	return result, nil
}

// MergeChunked merges incoming in slices of chunkSize and sums the results.
func (s *Session) MergeChunked(incoming []schema.Record, chunkSize int) (internal.MergeResult, error) {
	if chunkSize <= 0 {
		chunkSize = len(incoming)
	}
	total := internal.MergeResult{TotalInSystem: s.Len()}
	for start := 0; start < len(incoming); start += chunkSize {
		end := min(start+chunkSize, len(incoming))
		res, err := s.Merge(incoming[start:end])
		if err != nil {
			return total, err
		}
		total = total.Add(res)
	}
	return total, nil
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.index.Reset()
}

// Replace swaps the whole dataset, as after a pull from the remote API.
func (s *Session) Replace(records []schema.Record) error {
	if err := checkSchema(s.schema, records); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.Clone(records)
	s.index.Reset()
	s.index.Sync(s.records)
	return nil
}

func checkSchema(s *schema.Schema, records []schema.Record) error {
	for i, r := range records {
		if r.Schema() != s {
			return fmt.Errorf("record %d belongs to schema %q, want %q", i+1, schemaName(r.Schema()), s.Domain)
		}
	}
	return nil
}

func schemaName(s *schema.Schema) string {
	if s == nil {
		return "<nil>"
	}
	return s.Domain
}
