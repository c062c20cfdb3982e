package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"oferta/internal/schema"
)

func TestExportDatasetToXLSX(t *testing.T) {
	ds := schema.NewDataset(schema.Catalog,
		record(t, schema.Catalog, map[string]string{schema.CatalogCode: "P1", "NOMBRE_PROGRAMA": "Cocina", "DURACION MAXIMA": "880"}),
		record(t, schema.Catalog, map[string]string{schema.CatalogCode: "P2"}),
	)
	out := filepath.Join(t.TempDir(), "nested", "catalog.xlsx")
	require.NoError(t, ExportDatasetToXLSX(ds, out))

	blob, err := os.ReadFile(out)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"catalog"}, f.GetSheetList())

	table, err := DecodeXLSX(blob)
	require.NoError(t, err)
	assert.Equal(t, schema.Catalog.Names(), table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "880", table.Rows[0]["DURACION MAXIMA"])
	assert.Equal(t, "0", table.Rows[1]["DURACION MAXIMA"])

	back, err := TransformRows(schema.Catalog, table.Rows, MatchHeaders(table.Headers, schema.Catalog.Names()))
	require.NoError(t, err)
	assert.Equal(t, ds.Records, back)
}

func TestWriteDatasetXLSXRequiresSchema(t *testing.T) {
	require.Error(t, WriteDatasetXLSX(schema.Dataset{}, &bytes.Buffer{}))
}
