package pipeline

import (
	"testing"
	"time"

	"oferta/internal/schema"
)

func TestClassifyVigencia(t *testing.T) {
	cases := map[string]Vigencia{
		"":            VigenciaNotApplicable,
		"No aplica":   VigenciaNotApplicable,
		"No necesita": VigenciaNotNeeded,
		"NO REQUIERE": VigenciaNotNeeded,
		"No vigente":  VigenciaExpired,
		"Vencida":     VigenciaExpired,
		"Vigente":     VigenciaValid,
		"Sí":          VigenciaValid,
		"activo":      VigenciaValid,
		"pendiente":   VigenciaNotApplicable,
	}
	for in, want := range cases {
		if got := ClassifyVigencia(in); got != want {
			t.Fatalf("ClassifyVigencia(%q)=%s want %s", in, got, want)
		}
	}
}

func TestClassifyFicha(t *testing.T) {
	cases := map[string]FichaStatus{
		"":             FichaUnknown,
		"En ejecución": FichaActive,
		"ACTIVA":       FichaActive,
		"Cerrada":      FichaClosed,
		"Terminada":    FichaClosed,
		"Por iniciar":  FichaInProgress,
	}
	for in, want := range cases {
		if got := ClassifyFicha(in); got != want {
			t.Fatalf("ClassifyFicha(%q)=%s want %s", in, got, want)
		}
	}
}

func TestClassifyExpiry(t *testing.T) {
	today := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	cases := map[string]Expiry{
		"2024/03/14": ExpiryExpired,
		"2024/03/15": ExpirySoon,
		"2024/04/14": ExpirySoon,
		"2024/04/15": ExpiryValid,
		"":           ExpiryUnknown,
		"15/03/2024": ExpiryUnknown,
	}
	for in, want := range cases {
		if got := ClassifyExpiry(in, today); got != want {
			t.Fatalf("ClassifyExpiry(%q)=%s want %s", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	ds := schema.NewDataset(schema.Registry,
		record(t, schema.Registry, map[string]string{schema.RegistryExpiry: "2020/01/01"}),
		record(t, schema.Registry, map[string]string{schema.RegistryExpiry: "2030/01/01"}),
		record(t, schema.Registry, map[string]string{schema.RegistryExpiry: "2031/01/01"}),
		record(t, schema.Registry, nil),
	)
	got := Summarize(ds, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if got.Total != 4 || got.Domain != "registry" {
		t.Fatalf("summary=%+v", got)
	}
	if got.Buckets[string(ExpiryExpired)] != 1 || got.Buckets[string(ExpiryValid)] != 2 || got.Buckets[string(ExpiryUnknown)] != 1 {
		t.Fatalf("buckets=%v", got.Buckets)
	}

	catalog := Summarize(schema.NewDataset(schema.Catalog), time.Now())
	if len(catalog.Buckets) != 0 {
		t.Fatalf("catalog buckets=%v", catalog.Buckets)
	}
}
