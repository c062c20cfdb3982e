package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oferta/internal"
	"oferta/internal/schema"
)

func norm(t *testing.T, code string) schema.Record {
	return record(t, schema.Norms, map[string]string{
		schema.NormsCode:    code,
		schema.NormsVersion: "1",
		schema.NormsName:    "Norma " + code,
	})
}

func norms(t *testing.T, codes ...string) []schema.Record {
	out := make([]schema.Record, 0, len(codes))
	for _, c := range codes {
		out = append(out, norm(t, c))
	}
	return out
}

func assertConserved(t *testing.T, res internal.MergeResult) {
	t.Helper()
	assert.Equal(t, res.TotalInFile, res.AddedCount+res.DuplicateCount+res.ExceededCount, "%+v", res)
}

func TestMergeIsIdempotent(t *testing.T) {
	incoming := norms(t, "1", "2", "3")
	first, res := Merge(schema.NewDataset(schema.Norms), incoming, NormsKey, 100)
	assert.Equal(t, 3, res.AddedCount)
	assertConserved(t, res)

	second, res := Merge(first, incoming, NormsKey, 100)
	assert.Equal(t, internal.MergeResult{TotalInFile: 3, DuplicateCount: 3, TotalInSystem: 3}, res)
	assert.Equal(t, first.Records, second.Records)
}

func TestMergeCapacityBoundary(t *testing.T) {
	existing := schema.NewDataset(schema.Norms, norms(t, "1", "2", "3", "4")...)
	merged, res := Merge(existing, norms(t, "5", "6", "7"), NormsKey, 5)

	assert.Equal(t, internal.MergeResult{TotalInFile: 3, AddedCount: 1, ExceededCount: 2, TotalInSystem: 5}, res)
	require.Equal(t, 5, merged.Len())
	assert.Equal(t, "5", merged.Records[4].Get(schema.NormsCode))
}

func TestMergeChecksDuplicatesBeforeCapacity(t *testing.T) {
	existing := schema.NewDataset(schema.Norms, norms(t, "1", "2")...)
	_, res := Merge(existing, norms(t, "1", "9"), NormsKey, 2)
	assert.Equal(t, 1, res.DuplicateCount)
	assert.Equal(t, 1, res.ExceededCount)
	assert.Equal(t, 0, res.AddedCount)
}

func TestMergeDeduplicatesWithinBatch(t *testing.T) {
	_, res := Merge(schema.NewDataset(schema.Norms), norms(t, "1", "1", "2", "1"), NormsKey, 100)
	assert.Equal(t, 2, res.AddedCount)
	assert.Equal(t, 2, res.DuplicateCount)
	assertConserved(t, res)
}

func TestMergeLeavesExistingUntouched(t *testing.T) {
	base := norms(t, "1", "2", "3")
	existing := schema.NewDataset(schema.Norms, base[:2]...)

	merged, _ := Merge(existing, norms(t, "7"), NormsKey, 100)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, 2, existing.Len())
	assert.Equal(t, "3", base[2].Get(schema.NormsCode))
}

func TestMergeConservationAcrossBatches(t *testing.T) {
	ds := schema.NewDataset(schema.Norms)
	for round := 0; round < 5; round++ {
		var codes []string
		for i := 0; i < 7; i++ {
			codes = append(codes, fmt.Sprint((round*3+i)%11))
		}
		var res internal.MergeResult
		ds, res = Merge(ds, norms(t, codes...), NormsKey, 9)
		assertConserved(t, res)
		assert.LessOrEqual(t, ds.Len(), 9)
		assert.Equal(t, ds.Len(), res.TotalInSystem)
	}
}

func TestMergeCatalogFallback(t *testing.T) {
	keyFn := NewCatalogKey(schema.Catalog, schema.CatalogCode)
	cat := func(code, name string) schema.Record {
		return record(t, schema.Catalog, map[string]string{schema.CatalogCode: code, "NOMBRE_PROGRAMA": name})
	}

	noCode := schema.NewDataset(schema.Catalog, cat("", "Cocina"))
	_, res := Merge(noCode, []schema.Record{cat("P1", "Cocina")}, keyFn, 100)
	assert.Equal(t, 1, res.DuplicateCount, "coded row matching a codeless row by name")

	coded := schema.NewDataset(schema.Catalog, cat("P1", "Cocina"))
	_, res = Merge(coded, []schema.Record{cat("", "Cocina")}, keyFn, 100)
	assert.Equal(t, 1, res.DuplicateCount, "codeless row matching a coded row by name")

	_, res = Merge(coded, []schema.Record{cat("P2", "Cocina")}, keyFn, 100)
	assert.Equal(t, 1, res.AddedCount, "two codes never collide by name")
}

func TestSessionMergeChunked(t *testing.T) {
	incoming := norms(t, "1", "2", "2", "3", "4", "5", "1")

	whole, err := NewSession(schema.NewDataset(schema.Norms), NormsKey, 4)
	require.NoError(t, err)
	want, err := whole.Merge(incoming)
	require.NoError(t, err)

	chunked, err := NewSession(schema.NewDataset(schema.Norms), NormsKey, 4)
	require.NoError(t, err)
	got, err := chunked.MergeChunked(incoming, 2)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, whole.Dataset().Records, chunked.Dataset().Records)
	assertConserved(t, got)
}

func TestSessionClearAndReplace(t *testing.T) {
	s, err := NewSession(schema.NewDataset(schema.Norms, norms(t, "1", "2")...), NormsKey, 10)
	require.NoError(t, err)

	res, err := s.Merge(norms(t, "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.DuplicateCount)

	s.Clear()
	assert.Equal(t, 0, s.Len())
	res, err = s.Merge(norms(t, "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.AddedCount)

	require.NoError(t, s.Replace(norms(t, "8", "9")))
	res, err = s.Merge(norms(t, "1", "9"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.AddedCount)
	assert.Equal(t, 1, res.DuplicateCount)
	assert.Equal(t, 3, res.TotalInSystem)
}

func TestSessionRejectsForeignRecords(t *testing.T) {
	_, err := NewSession(schema.Dataset{}, NormsKey, 10)
	require.Error(t, err)

	_, err = NewSession(schema.NewDataset(schema.Norms), nil, 10)
	require.Error(t, err)

	_, err = NewSession(schema.NewDataset(schema.Norms, cohort(t, "1", "", "", "", "")), NormsKey, 10)
	require.Error(t, err)

	s, err := NewSession(schema.NewDataset(schema.Norms), NormsKey, 10)
	require.NoError(t, err)
	_, err = s.Merge([]schema.Record{cohort(t, "1", "", "", "", "")})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestSessionSnapshotIsolation(t *testing.T) {
	s, err := NewSession(schema.NewDataset(schema.Norms, norms(t, "1")...), NormsKey, 10)
	require.NoError(t, err)

	snap := s.Dataset()
	snap.Records = append(snap.Records, norm(t, "2"))
	assert.Equal(t, 1, s.Len())

	res, err := s.Merge(norms(t, "2"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.AddedCount)
}
