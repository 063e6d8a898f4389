package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinStations_LeftJoin(t *testing.T) {
	readings := []WindReading{
		{Station: "EZEIZA AERO", NormalizedName: "ezeiza", Mean: Float(16)},
		{Station: "TRES ARROYOS", NormalizedName: "tres arroyos", Mean: Float(20)},
	}
	meta := []StationMeta{
		{Station: "Ezeiza", NormalizedName: "ezeiza", ICAO: "saez", Lat: Float(-34.82), Lon: Float(-58.53), Altitude: Float(20), Province: " Buenos Aires "},
	}

	got := JoinStations(readings, meta, discardLogger())
	require.Len(t, got, 2)

	assert.Equal(t, "EZEIZA AERO", got[0].Station)
	assert.Equal(t, "SAEZ", got[0].ICAO)
	assert.Equal(t, "Buenos Aires", got[0].Province)
	assert.Equal(t, -34.82, *got[0].Lat)
	assert.Equal(t, GeoSourceMetadata, got[0].GeoSource)

	assert.Equal(t, "TRES ARROYOS", got[1].Station)
	assert.Empty(t, got[1].ICAO)
	assert.False(t, got[1].HasCoordinates())
	assert.Empty(t, got[1].GeoSource)
}

func TestJoinStations_NeverExceedsLeftCardinality(t *testing.T) {
	readings := []WindReading{
		{Station: "Villa Maria del Rio Seco", Mean: Float(11)},
		{Station: "Mendoza Aero", Mean: Float(9)},
		{Station: "Mendoza Aero", Mean: Float(9.5)},
	}
	meta := []StationMeta{
		{Station: "Villa María", ICAO: "SACV"},
		{Station: "VILLA MARIA DEL RIO SECO", ICAO: "SAXX"},
		{Station: "Mendoza", ICAO: "SAME", Lat: Float(-32.83), Lon: Float(-68.79)},
		{Station: "MENDOZA AERO (MZA)", ICAO: "SAMX"},
	}

	got := JoinStations(readings, meta, discardLogger())
	require.Len(t, got, len(readings))

	assert.Equal(t, "SACV", got[0].ICAO, "first metadata row wins")
	assert.Equal(t, "SAME", got[1].ICAO)
	assert.Equal(t, "SAME", got[2].ICAO)
	assert.Equal(t, 9.5, *got[2].Mean)
}

func TestJoinStations_KeepsMetadataWithoutCoordinates(t *testing.T) {
	readings := []WindReading{{Station: "Junin Aero", Mean: Float(13)}}
	meta := []StationMeta{{Station: "Junín", ICAO: "SAAJ", Province: "Buenos Aires"}}

	got := JoinStations(readings, meta, discardLogger())
	require.Len(t, got, 1)
	assert.Equal(t, "SAAJ", got[0].ICAO)
	assert.False(t, got[0].HasCoordinates())
	assert.Empty(t, got[0].GeoSource)
}
