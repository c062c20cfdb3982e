package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oferta/internal/schema"
)

func record(t *testing.T, s *schema.Schema, values map[string]string) schema.Record {
	t.Helper()
	rec, err := s.NewRecord(values)
	require.NoError(t, err)
	return rec
}

func cohort(t *testing.T, ficha, program, center, start, modality string) schema.Record {
	return record(t, schema.Historic, map[string]string{
		schema.HistoricFicha:    ficha,
		schema.HistoricProgram:  program,
		schema.HistoricCenter:   center,
		schema.HistoricStart:    start,
		schema.HistoricModality: modality,
	})
}

func TestHistoricKey(t *testing.T) {
	withFicha := HistoricKey(cohort(t, " 2712345 ", "Cocina", "Centro A", "2024/03/15", "PRESENCIAL"))
	assert.Equal(t, "F:2712345", withFicha.Primary)

	sameFicha := HistoricKey(cohort(t, "2712345", "Otro", "Centro B", "2025/01/01", "VIRTUAL"))
	assert.Equal(t, withFicha, sameFicha)

	a := HistoricKey(cohort(t, "", "Cocina", "Centro A", "2024/03/15", "PRESENCIAL"))
	b := HistoricKey(cohort(t, "", "Cocina", "Centro A", "2024/03/15", "VIRTUAL"))
	c := HistoricKey(cohort(t, "", "Cocina", "Centro A", "2024/03/15", "PRESENCIAL"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
	assert.Equal(t, "C:Cocina|Centro A|2024/03/15|PRESENCIAL", a.Primary)
}

func TestNormsKey(t *testing.T) {
	base := map[string]string{schema.NormsCode: "220501046", schema.NormsVersion: "1", schema.NormsName: "Atender"}
	k1 := NormsKey(record(t, schema.Norms, base))

	other := map[string]string{schema.NormsCode: "220501046", schema.NormsVersion: "2", schema.NormsName: "Atender", "Vigencia": "Sí"}
	k2 := NormsKey(record(t, schema.Norms, other))
	assert.NotEqual(t, k1, k2)

	base["Observación"] = "cambia"
	assert.Equal(t, k1, NormsKey(record(t, schema.Norms, base)))
}

func TestRegistryKeyUsesEveryField(t *testing.T) {
	a := record(t, schema.Registry, map[string]string{"COD DEL PROGRAMA": "101", "DIRECCIÓN": "Calle 1"})
	b := record(t, schema.Registry, map[string]string{"COD DEL PROGRAMA": "101", "DIRECCIÓN": "Calle 2"})
	c := record(t, schema.Registry, map[string]string{"COD DEL PROGRAMA": " 101 ", "DIRECCIÓN": "Calle 1"})
	assert.NotEqual(t, RegistryKey(a), RegistryKey(b))
	assert.Equal(t, RegistryKey(a), RegistryKey(c))
}

func TestCatalogKey(t *testing.T) {
	keyFn := NewCatalogKey(schema.Catalog, schema.CatalogCode)

	withCode := keyFn(record(t, schema.Catalog, map[string]string{schema.CatalogCode: "P1", "NOMBRE_PROGRAMA": "Cocina"}))
	assert.Equal(t, "P:P1", withCode.Primary)
	assert.Equal(t, []string{"N:NOMBRE_PROGRAMA\x1fCocina"}, withCode.Fallback)

	noCode := keyFn(record(t, schema.Catalog, map[string]string{"NOMBRE_PROGRAMA": "Cocina", "VERSION": "2"}))
	assert.Empty(t, noCode.Primary)
	assert.Equal(t, []string{"N:NOMBRE_PROGRAMA\x1fCocina"}, noCode.Fallback)

	empty := keyFn(record(t, schema.Catalog, nil))
	assert.Empty(t, empty.Primary)
	assert.Empty(t, empty.Fallback)
}
