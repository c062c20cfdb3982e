package pipeline

import (
	"strings"

	"oferta/internal/schema"
	"oferta/internal/util"
)

// keySep joins key parts; it cannot occur in spreadsheet text.
const keySep = "\x1f"

// IdentityKey decides whether two records are the same entity. Primary
// keys compare directly; Fallback keys only matter when one side has no
// primary key.
type IdentityKey struct {
	Primary  string
	Fallback []string
}

type KeyFunc func(schema.Record) IdentityKey

func trimmed(r schema.Record, name string) string {
	return strings.TrimSpace(r.Get(name))
}

// HistoricKey identifies a cohort by FICHA, or by program, center, start
// date and modality when the ficha is blank.
func HistoricKey(r schema.Record) IdentityKey {
	if ficha := trimmed(r, schema.HistoricFicha); ficha != "" {
		return IdentityKey{Primary: "F:" + ficha}
	}
	return IdentityKey{Primary: "C:" + strings.Join([]string{
		trimmed(r, schema.HistoricProgram),
		trimmed(r, schema.HistoricCenter),
		trimmed(r, schema.HistoricStart),
		trimmed(r, schema.HistoricModality),
	}, "|")}
}

func NormsKey(r schema.Record) IdentityKey {
	return IdentityKey{Primary: strings.Join([]string{
		trimmed(r, schema.NormsCode),
		trimmed(r, schema.NormsVersion),
		trimmed(r, schema.NormsName),
	}, keySep)}
}

// RegistryKey treats a registry row as a duplicate only when every column
// matches.
func RegistryKey(r schema.Record) IdentityKey {
	values := r.Values()
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return IdentityKey{Primary: strings.Join(values, keySep)}
}

// NewCatalogKey keys catalog rows by program code. Rows without a code
// fall back to their program and name columns, every field other than the
// code whose name mentions "programa" or "nombre".
func NewCatalogKey(s *schema.Schema, codeField string) KeyFunc {
	var fallbackFields []string
	for _, name := range s.Names() {
		if name == codeField {
			continue
		}
		lower := strings.ToLower(util.NormalizeHeader(name))
		if strings.Contains(lower, "programa") || strings.Contains(lower, "nombre") {
			fallbackFields = append(fallbackFields, name)
		}
	}

	return func(r schema.Record) IdentityKey {
		key := IdentityKey{}
		if code := trimmed(r, codeField); code != "" {
			key.Primary = "P:" + code
		}
		for _, name := range fallbackFields {
			if v := trimmed(r, name); v != "" {
				key.Fallback = append(key.Fallback, "N:"+name+keySep+v)
			}
		}
		return key
	}
}
