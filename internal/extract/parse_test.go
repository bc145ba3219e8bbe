package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfinsikt/brf-helper/internal/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{"plain number", "1234567", model.Float64(1_234_567)},
		{"negative", "-425000", model.Float64(-425_000)},
		{"kronor suffix", "2 500 000 kronor", model.Float64(2_500_000)},
		{"kr suffix", "850000 kr", model.Float64(850_000)},
		{"sek suffix", "1200000 SEK", model.Float64(1_200_000)},
		{"decimal comma", "12345,50", model.Float64(12345.50)},
		{"unknown", "OKÄNT", nil},
		{"unknown lowercase", "okänt", nil},
		{"vet ej", "Vet ej", nil},
		{"empty", "", nil},
		{"no number", "framgår inte av rapporten", nil},
		{"looks like a year", "2023", nil},
		{"year low bound", "1900", nil},
		{"above year range", "2101", model.Float64(2101)},
		{"below year range", "1899", model.Float64(1899)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParsePercentNoYearGuard(t *testing.T) {
	got := ParsePercent("32,5%")
	require.NotNil(t, got)
	assert.Equal(t, 32.5, *got)

	assert.Nil(t, ParsePercent("OKÄNT"))
}

func TestParseTriState(t *testing.T) {
	assert.Equal(t, model.TriYes, ParseTriState("JA"))
	assert.Equal(t, model.TriYes, ParseTriState("Ja, det finns en anmärkning."))
	assert.Equal(t, model.TriNo, ParseTriState("NEJ"))
	assert.Equal(t, model.TriNo, ParseTriState("nej."))
	assert.Equal(t, model.TriUnknown, ParseTriState("Det framgår inte."))
	assert.Equal(t, model.TriUnknown, ParseTriState(""))
}

func TestParseBuildingInfo(t *testing.T) {
	info := ParseBuildingInfo("Fastigheten byggdes 1962 och innehåller 48 lägenheter med en total bostadsarea om 3 450 kvm.")

	require.NotNil(t, info.BuildingYear)
	assert.Equal(t, 1962, *info.BuildingYear)
	require.NotNil(t, info.NumApartments)
	assert.Equal(t, 48, *info.NumApartments)
	require.NotNil(t, info.TotalArea)
	assert.Equal(t, 3450.0, *info.TotalArea)
}

func TestParseBuildingInfoPartial(t *testing.T) {
	info := ParseBuildingInfo("Byggår 1975. Antal lägenheter: OKÄNT.")

	require.NotNil(t, info.BuildingYear)
	assert.Equal(t, 1975, *info.BuildingYear)
	assert.Nil(t, info.NumApartments)
	assert.Nil(t, info.TotalArea)

	empty := ParseBuildingInfo("")
	assert.Nil(t, empty.BuildingYear)
}
