package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"oferta/internal/util"
)

type Kind int

const (
	KindText Kind = iota
	KindDate
	KindInteger
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindInteger:
		return "integer"
	default:
		return "text"
	}
}

type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered list of canonical fields of one domain.
type Schema struct {
	Domain string
	fields []Field
	pos    map[string]int
}

func New(domain string, fields ...Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %s: no fields", domain)
	}
	s := &Schema{Domain: domain, fields: make([]Field, 0, len(fields)), pos: make(map[string]int, len(fields))}
	for _, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, fmt.Errorf("schema %s: blank field name", domain)
		}
		if _, dup := s.pos[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", domain, f.Name)
		}
		s.pos[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

func MustNew(domain string, fields ...Field) *Schema {
	s, err := New(domain, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Len() int { return len(s.fields) }

func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

func (s *Schema) Lookup(name string) (Field, bool) {
	i, ok := s.pos[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Schema) Has(name string) bool {
	_, ok := s.pos[name]
	return ok
}

func (s *Schema) DateFields() map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range s.fields {
		if f.Kind == KindDate {
			out[f.Name] = struct{}{}
		}
	}
	return out
}

// Record holds one value per canonical field of its schema. Integer
// fields are kept in decimal form so every slot is a plain string.
type Record struct {
	schema *Schema
	values []string
}

// NewRecord builds a record from field values. Fields not present are
// empty (or "0" for integers); keys outside the schema are rejected.
func (s *Schema) NewRecord(values map[string]string) (Record, error) {
	if s == nil {
		return Record{}, errors.New("record: nil schema")
	}
	r := Record{schema: s, values: make([]string, len(s.fields))}
	for name, v := range values {
		i, ok := s.pos[name]
		if !ok {
			return Record{}, fmt.Errorf("record: field %q is not part of schema %s", name, s.Domain)
		}
		r.values[i] = v
	}
	for i, f := range s.fields {
		if f.Kind == KindInteger {
			r.values[i] = strconv.FormatInt(util.ParseCount(r.values[i]), 10)
		}
	}
	return r, nil
}

func (r Record) Schema() *Schema { return r.schema }

// Get returns the field value, or "" when the field is unknown.
func (r Record) Get(field string) string {
	if r.schema == nil {
		return ""
	}
	i, ok := r.schema.pos[field]
	if !ok {
		return ""
	}
	return r.values[i]
}

func (r Record) Int(field string) int64 {
	return util.ParseCount(r.Get(field))
}

func (r Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	if r.schema == nil {
		return out
	}
	for i, f := range r.schema.fields {
		out[f.Name] = r.values[i]
	}
	return out
}

// MarshalJSON writes the record as an object in schema order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.schema == nil {
		return []byte("null"), nil
	}
	buf := bytes.NewBufferString("{")
	for i, f := range r.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if f.Kind == KindInteger {
			buf.WriteString(strconv.FormatInt(util.ParseCount(r.values[i]), 10))
			continue
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Schema) DecodeRecord(blob []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[k] = util.CellString(v)
	}
	return s.NewRecord(values)
}

// Dataset is the ordered record sequence of one domain.
type Dataset struct {
	Schema  *Schema
	Records []Record
}

func NewDataset(s *Schema, records ...Record) Dataset {
	return Dataset{Schema: s, Records: records}
}

func (d Dataset) Len() int { return len(d.Records) }
