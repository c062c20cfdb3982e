package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oferta/internal"
	"oferta/internal/config"
	"oferta/internal/schema"
)

func regional(t *testing.T, ficha, code, name string) schema.Record {
	return record(t, schema.Historic, map[string]string{
		schema.HistoricFicha:      ficha,
		schema.HistoricRegionCode: code,
		schema.HistoricRegionName: name,
	})
}

func TestRegionalFilter(t *testing.T) {
	rows := []schema.Record{
		regional(t, "1", "05", "Regional Antioquia"),
		regional(t, "2", "5", "ANTIOQUIA"),
		regional(t, "3", "11", "Regional Distrito Capital"),
		regional(t, "4", "", "Antioquía"),
	}

	kept, dropped := RegionalFilter("5", "").Apply(rows)
	assert.Len(t, kept, 2)
	assert.Equal(t, 2, dropped)

	kept, dropped = RegionalFilter("", "antioquia").Apply(rows)
	assert.Len(t, kept, 3)
	assert.Equal(t, 1, dropped)

	kept, _ = RegionalFilter("5", "antioquia").Apply(rows)
	assert.Len(t, kept, 2)

	assert.Nil(t, RegionalFilter(" ", ""))
	kept, dropped = RegionalFilter("", "").Apply(rows)
	assert.Len(t, kept, 4)
	assert.Zero(t, dropped)
}

func TestProfileFor(t *testing.T) {
	cfg := config.Config{HistoricRegionalCode: "5"}
	for _, d := range internal.Domains {
		p, err := ProfileFor(d, nil, cfg)
		require.NoError(t, err, d)
		assert.NotNil(t, p.Key, d)
		assert.Equal(t, string(d), p.Schema.Domain)
		assert.Equal(t, d == internal.DomainHistoric, p.Filter != nil, d)
	}

	_, err := ProfileFor("otro", nil, cfg)
	require.Error(t, err)
}
