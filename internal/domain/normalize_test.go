package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "aero suffix", in: "EZEIZA AERO", want: "ezeiza"},
		{name: "accents and multiword suffix", in: "Villa María del Río Seco", want: "villa maria"},
		{name: "obs with dot", in: "LA QUIACA OBS.", want: "la quiaca"},
		{name: "extra whitespace", in: "  Córdoba   Aero  ", want: "cordoba"},
		{name: "stacked suffixes", in: "MENDOZA AERO (MZA)", want: "mendoza"},
		{name: "observatorio", in: "BUENOS AIRES OBSERVATORIO", want: "buenos aires"},
		{name: "internacional after aero", in: "Rosario Aero Internacional", want: "rosario"},
		{name: "asterisk marker", in: "JUJUY AERO*", want: "jujuy"},
		{name: "enye", in: "AÑATUYA", want: "anatuya"},
		{name: "leading base kept", in: "BASE MARAMBIO", want: "base marambio"},
		{name: "trailing base", in: "MARAMBIO BASE", want: "marambio"},
		{name: "single suffix token kept", in: "AERO", want: "aero"},
		{name: "suffix inside a word untouched", in: "AEROPARQUE", want: "aeroparque"},
		{name: "blank", in: "   ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeName(tc.in))
		})
	}
}

func TestNormalizeName_Idempotent(t *testing.T) {
	inputs := []string{
		"EZEIZA AERO",
		"Villa María del Río Seco",
		"LA QUIACA OBS.",
		"Base Aero Obs",
		"obs obs obs",
		"San Juan U N",
		"del rio seco del rio seco",
		"TRES ARROYOS",
		"Río Gallegos Aero*",
		"",
	}

	for _, in := range inputs {
		once := NormalizeName(in)
		assert.Equal(t, once, NormalizeName(once), "input %q", in)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "rio gallegos", Fold("RÍO Gallegos"))
	assert.Equal(t, "neuquen", Fold("Neuquén"))
	assert.Contains(t, Fold("Córdoba Aero"), Fold("CORDOBA"))
}
