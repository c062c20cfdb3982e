package pipeline

import (
	"errors"
	"fmt"

	"oferta/internal/schema"
	"oferta/internal/util"
)

// SourceRow is one decoded spreadsheet row keyed by its original header.
// Values are strings, numbers or nil.
type SourceRow map[string]any

// SourceTable keeps the header order of the decoded sheet next to its rows.
type SourceTable struct {
	Headers []string
	Rows    []SourceRow
}

// TransformRows projects source rows onto the schema through hm. Unmapped
// fields and cells a row lacks become empty; date fields are normalized
// and integer fields default to zero.
func TransformRows(s *schema.Schema, rows []SourceRow, hm HeaderMap) ([]schema.Record, error) {
	if s == nil {
		return nil, errors.New("transform: nil schema")
	}
	for field := range hm {
		if !s.Has(field) {
			return nil, fmt.Errorf("transform: header map binds %q which is not a %s field", field, s.Domain)
		}
	}

	fields := s.Fields()
	out := make([]schema.Record, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(hm))
		for _, f := range fields {
			source, ok := hm[f.Name]
			if !ok {
				continue
			}
			value := util.CellString(row[source])
			if f.Kind == schema.KindDate {
				value = NormalizeDate(value)
			}
			values[f.Name] = value
		}
		rec, err := s.NewRecord(values)
		if err != nil {
			return nil, fmt.Errorf("transform row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Identity maps every field of s to itself, for rows already keyed by
// canonical names.
func Identity(s *schema.Schema) HeaderMap {
	out := HeaderMap{}
	for _, name := range s.Names() {
		out[name] = name
	}
	return out
}
