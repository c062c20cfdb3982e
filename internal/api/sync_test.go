package api

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oferta/internal"
	"oferta/internal/pipeline"
	"oferta/internal/schema"
	"oferta/internal/storage"
)

func testSync(t *testing.T, fn roundTripFunc) (*SyncService, *pipeline.ImportService) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "oferta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	cfg.MaxRecords = 100
	cfg.ImportChunkSize = 50
	imports := pipeline.NewImportService(db, cfg)
	s := NewSyncService(db, cfg, imports)
	s.client.httpClient = newHTTPClient(cfg, fn)
	return s, imports
}

func TestPullReplacesDataset(t *testing.T) {
	rows := []any{
		map[string]any{
			"ficha":                    "2712345",
			"cod_regional":             5,
			"nombre_centro":            "Centro de Comercio",
			"programa_formacion":       "Ventas",
			"fecha_inicio":             "2024-03-15",
			"num_aprendices_inscritos": 30,
		},
		map[string]any{
			"ficha":         "2712346",
			"nombre_centro": " ",
			"cod_centro":    "9201",
		},
	}
	s, imports := testSync(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"data": rows}), nil
	})

	n, err := s.Pull(context.Background(), internal.DomainHistoric)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ds, err := imports.Dataset(internal.DomainHistoric)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	first := ds.Records[0]
	assert.Equal(t, "2712345", first.Get(schema.HistoricFicha))
	assert.Equal(t, "5", first.Get(schema.HistoricRegionCode))
	assert.Equal(t, "2024/03/15", first.Get(schema.HistoricStart))
	assert.EqualValues(t, 30, first.Int("INSCRITOS"))
	// a blank preferred member falls through to the next one
	assert.Equal(t, "9201", ds.Records[1].Get(schema.HistoricCenter))

	last, err := s.LastPull(internal.DomainHistoric)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.NotEmpty(t, *last)
}

func TestPullEmptyKeepsDataset(t *testing.T) {
	calls := 0
	s, imports := testSync(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(http.StatusOK, []any{map[string]any{"ficha": "1"}}), nil
		}
		return jsonResponse(http.StatusOK, map[string]any{"data": []any{}}), nil
	})

	_, err := s.Pull(context.Background(), internal.DomainHistoric)
	require.NoError(t, err)
	n, err := s.Pull(context.Background(), internal.DomainHistoric)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ds, err := imports.Dataset(internal.DomainHistoric)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestUploadDataset(t *testing.T) {
	var filename string
	s, imports := testSync(t, func(r *http.Request) (*http.Response, error) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		filename = header.Filename
		return jsonResponse(http.StatusOK, map[string]any{"ok": true}), nil
	})

	rec, err := schema.Catalog.NewRecord(map[string]string{schema.CatalogCode: "228106", "VERSION": "1"})
	require.NoError(t, err)
	require.NoError(t, imports.Replace(internal.DomainCatalog, []schema.Record{rec}))

	res, err := s.UploadDataset(context.Background(), internal.DomainCatalog)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(res))
	assert.Equal(t, "catalog.xlsx", filename)
}
