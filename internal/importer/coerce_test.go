package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{"empty", false},
		{"", false},
		{"ANO", true},
		{" ano ", true},
		{"Yes", true},
		{"true", true},
		{true, true},
		{false, false},
		{"1", true},
		{float64(1), true},
		{float64(2), false},
		{"Přítomen", true},
		{"pritomen", true},
		{"NE", false},
		{"x", false},
		{[]any{"ANO"}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CoerceBool(tt.in), "%#v", tt.in)
	}
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"empty", 0},
		{false, 0},
		{float64(3.25), 3.25},
		{float64(0), 0},
		{"2,50", 2.5},
		{"1.66 %", 1.66},
		{"-4", -4},
		{"12abc", 12},
		{"abc", 0},
		{"1,2,3", 1.23},
		{"1.2.3", 1.2},
		{"-", 0},
		{".5", 0.5},
		{"3-2", 3},
		{true, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CoerceNumber(tt.in), 1e-9, "%#v", tt.in)
	}
}

func TestParseCSVSemicolon(t *testing.T) {
	in := "\ufeffVchod;Jednotka;Vlastnik;Podil (%);Pritomen;PM\n" +
		"2262;1;Jana Nová;2,50;ANO;NE\n" +
		"\n" +
		"2263;7;\"Novák; Petr\";1,66;NE;ANO\n"

	units, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "1", units[0].ID.String())
	assert.Equal(t, "2262", units[0].Block)
	assert.Equal(t, "Jana Nová", units[0].OwnerName)
	assert.InDelta(t, 2.5, units[0].Share, 1e-9)
	assert.True(t, units[0].IsPresent)
	assert.False(t, units[0].HasPowerOfAttorney)

	assert.Equal(t, "2", units[1].ID.String())
	assert.Equal(t, "7", units[1].UnitNumber)
	assert.Equal(t, "Novák; Petr", units[1].OwnerName)
	assert.False(t, units[1].IsPresent)
	assert.True(t, units[1].HasPowerOfAttorney)
}

func TestParseCSVComma(t *testing.T) {
	in := "id,vchod,jednotka,vlastnik,podil\n5,2264,9,Eva,\"3,5\"\n"

	units, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "5", units[0].ID.String())
	assert.Equal(t, "Eva", units[0].OwnerName)
	assert.InDelta(t, 3.5, units[0].Share, 1e-9)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("Vchod;Jednotka\n"))
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRows)
}
