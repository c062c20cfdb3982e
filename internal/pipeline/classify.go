package pipeline

import (
	"strings"
	"time"

	"oferta/internal/schema"
	"oferta/internal/util"
)

type Vigencia string

const (
	VigenciaValid         Vigencia = "vigentes"
	VigenciaExpired       Vigencia = "no_vigentes"
	VigenciaNotNeeded     Vigencia = "no_necesita"
	VigenciaNotApplicable Vigencia = "no_aplica"
)

// ClassifyVigencia buckets a norm's free-text validity. Negative phrases
// are checked before positive ones since "no vigente" contains "vigente".
func ClassifyVigencia(raw string) Vigencia {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "":
		return VigenciaNotApplicable
	case strings.Contains(v, "no aplica"):
		return VigenciaNotApplicable
	case util.ContainsAny(v, "no necesita", "no requiere"):
		return VigenciaNotNeeded
	case util.ContainsAny(v, "vencid", "expir", "inactiv", "no vigente"):
		return VigenciaExpired
	case util.ContainsAny(v, "vigente", "activo", "sí"):
		return VigenciaValid
	default:
		return VigenciaNotApplicable
	}
}

type FichaStatus string

const (
	FichaActive     FichaStatus = "activa"
	FichaClosed     FichaStatus = "cerrada"
	FichaInProgress FichaStatus = "en_proceso"
	FichaUnknown    FichaStatus = "desconocido"
)

func ClassifyFicha(raw string) FichaStatus {
	v := util.NormalizeText(raw)
	switch {
	case v == "":
		return FichaUnknown
	case util.ContainsAny(v, "ejecucion", "activa", "en curso"):
		return FichaActive
	case util.ContainsAny(v, "cerrada", "terminada", "finalizad", "cerrado"):
		return FichaClosed
	default:
		return FichaInProgress
	}
}

type Expiry string

const (
	ExpiryExpired Expiry = "vencidos"
	ExpirySoon    Expiry = "por_vencer"
	ExpiryValid   Expiry = "vigentes"
	ExpiryUnknown Expiry = "sin_fecha"
)

const expiringWindowDays = 30

// ClassifyExpiry buckets a YYYY/MM/DD expiry date against today: past,
// within the next 30 days, or later.
func ClassifyExpiry(value string, today time.Time) Expiry {
	date, ok := ParseDate(value)
	if !ok {
		return ExpiryUnknown
	}
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case date.Before(day):
		return ExpiryExpired
	case !date.After(day.AddDate(0, 0, expiringWindowDays)):
		return ExpirySoon
	default:
		return ExpiryValid
	}
}

// Summary counts records per classification bucket.
type Summary struct {
	Domain  string         `json:"domain"`
	Total   int            `json:"total"`
	Buckets map[string]int `json:"buckets"`
}

func Summarize(d schema.Dataset, today time.Time) Summary {
	out := Summary{Total: d.Len(), Buckets: map[string]int{}}
	if d.Schema == nil {
		return out
	}
	out.Domain = d.Schema.Domain

	var classify func(schema.Record) string
	switch {
	case d.Schema.Has(schema.NormsValidity):
		classify = func(r schema.Record) string { return string(ClassifyVigencia(r.Get(schema.NormsValidity))) }
	case d.Schema.Has(schema.HistoricStatus):
		classify = func(r schema.Record) string { return string(ClassifyFicha(r.Get(schema.HistoricStatus))) }
	case d.Schema.Has(schema.RegistryExpiry):
		classify = func(r schema.Record) string { return string(ClassifyExpiry(r.Get(schema.RegistryExpiry), today)) }
	default:
		return out
	}

	for _, r := range d.Records {
		out.Buckets[classify(r)]++
	}
	return out
}
