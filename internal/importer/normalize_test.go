package importer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prezence/api/internal/roster"
)

func TestParseSheetRow(t *testing.T) {
	body := `[{"0":"7","Vlastník":"Jana Nová","F":"ANO","G":"empty","E":"2,50"}]`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 1)

	u := units[0]
	assert.Equal(t, roster.NumericID(7), u.ID)
	assert.Equal(t, "Jana Nová", u.OwnerName)
	assert.Equal(t, "Jana Nová", u.OriginalOwnerName)
	assert.True(t, u.IsPresent)
	assert.False(t, u.HasPowerOfAttorney)
	assert.InDelta(t, 2.5, u.Share, 1e-9)
	assert.Equal(t, fallbackBlock, u.Block)
	assert.Equal(t, "1", u.UnitNumber)
	require.NotNil(t, u.LastSyncedIsPresent)
	assert.True(t, *u.LastSyncedIsPresent)
	require.NotNil(t, u.LastSyncedHasPowerOfAttorney)
	assert.False(t, *u.LastSyncedHasPowerOfAttorney)
}

func TestParseWithoutRows(t *testing.T) {
	_, err := Parse([]byte(`{"status":"ok"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRows)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Empty(t, fe.Raw)
}

func TestParseEmptyArray(t *testing.T) {
	units, err := Parse([]byte(`{"data":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, units)
	assert.Empty(t, units)

	units, err = Parse([]byte(`{"rows":[]}`))
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestParseRenumbersCollidingIDs(t *testing.T) {
	body := `[
		{"0":"empty","Vlastník":"Jana"},
		{"0":"empty","Vlastník":"Petr"},
		{"0":"2","Vlastník":"Eva"}
	]`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "1", units[0].ID.String())
	assert.Equal(t, "3", units[1].ID.String())
	assert.Equal(t, "2", units[2].ID.String())
	assert.Equal(t, "Petr", units[1].OwnerName)
}

func TestParseKeepsUniqueIDs(t *testing.T) {
	units, err := Parse([]byte(`[{"0":"40"},{"0":"7"}]`))
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "40", units[0].ID.String())
	assert.Equal(t, "7", units[1].ID.String())
}

func TestParseInvalidJSONKeepsExcerpt(t *testing.T) {
	body := "Accepted" + strings.Repeat("x", 200)

	_, err := Parse([]byte(body))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Len(t, []rune(fe.Raw), rawExcerptLen)
	assert.True(t, strings.HasPrefix(fe.Raw, "Accepted"))
}

func TestParseRejectsTrailingData(t *testing.T) {
	_, err := Parse([]byte(`[] []`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseNestedPayload(t *testing.T) {
	body := `{"meta":{"count":2},"result":{"sheet":{"rows":[
		{"ID":1,"Vchod":"2263","Jednotka":"4","Vlastník":"Eva","Podíl":1.5,"Prezence":"přítomen","PM":"TRUE"},
		{"ID":2,"Vchod":"2263","Jednotka":"5","Vlastník":"Adam","Podíl":"3","Prezence":"ne","PM":false}
	]}}}`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, roster.NumericID(1), units[0].ID)
	assert.Equal(t, "2263", units[0].Block)
	assert.Equal(t, "4", units[0].UnitNumber)
	assert.InDelta(t, 1.5, units[0].Share, 1e-9)
	assert.True(t, units[0].IsPresent)
	assert.True(t, units[0].HasPowerOfAttorney)

	assert.Equal(t, "Adam", units[1].OwnerName)
	assert.InDelta(t, 3, units[1].Share, 1e-9)
	assert.False(t, units[1].IsPresent)
	assert.False(t, units[1].HasPowerOfAttorney)
}

func TestParseFirstArrayInDocumentOrder(t *testing.T) {
	body := `{"z":{"rows":[{"Vlastník":"first"}]},"a":[{"Vlastník":"second"}]}`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "first", units[0].OwnerName)
}

func TestParseArrayRows(t *testing.T) {
	body := `{"values":[[12,"2264","3","Karel Dvořák","2,1","ANO","NE"]]}`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 1)

	u := units[0]
	assert.Equal(t, roster.NumericID(12), u.ID)
	assert.Equal(t, "2264", u.Block)
	assert.Equal(t, "3", u.UnitNumber)
	assert.Equal(t, "Karel Dvořák", u.OwnerName)
	assert.InDelta(t, 2.1, u.Share, 1e-9)
	assert.True(t, u.IsPresent)
	assert.False(t, u.HasPowerOfAttorney)
}

func TestParseFallbacks(t *testing.T) {
	body := `[{"note":"x"},{"Vlastník":"","Vchod":null,"id":null}]`

	units, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, roster.NumericID(1), units[0].ID)
	assert.Equal(t, fallbackOwner, units[0].OwnerName)
	assert.Equal(t, fallbackBlock, units[0].Block)
	assert.Equal(t, "1", units[0].UnitNumber)
	assert.Zero(t, units[0].Share)
	assert.False(t, units[0].IsPresent)

	// A present null id is found and coerces to 0.
	assert.Equal(t, roster.NumericID(0), units[1].ID)
	assert.Equal(t, fallbackOwner, units[1].OwnerName)
	assert.Equal(t, fallbackBlock, units[1].Block)
	assert.Equal(t, "2", units[1].UnitNumber)
}

func TestFindRowsDepthLimit(t *testing.T) {
	within := `{"a":{"b":{"c":{"d":{"e":[1]}}}}}`
	rows, ok := FindRows(mustDecode(t, within))
	require.True(t, ok)
	assert.Len(t, rows, 1)

	beyond := `{"a":{"b":{"c":{"d":{"e":{"f":[1]}}}}}}`
	_, ok = FindRows(mustDecode(t, beyond))
	assert.False(t, ok)
}

func TestFindRowsOnPlainMaps(t *testing.T) {
	data := map[string]any{"b": []any{"from b"}, "a": map[string]any{"rows": []any{"from a"}}}
	rows, ok := FindRows(data)
	require.True(t, ok)
	assert.Equal(t, []any{"from a"}, rows)
}

func TestFindValueFoldedMatch(t *testing.T) {
	row := mustDecode(t, `{" VLASTNÍK ":"Jan","Podíl ":"1","PŘÍTOMEN":"ano"}`)

	v, ok := FindValue(row, FieldOwnerName)
	require.True(t, ok)
	assert.Equal(t, "Jan", v)

	v, ok = FindValue(row, FieldShare)
	require.True(t, ok)
	assert.Equal(t, "1", v)

	v, ok = FindValue(row, FieldIsPresent)
	require.True(t, ok)
	assert.Equal(t, "ano", v)

	_, ok = FindValue(row, FieldHasPowerOfAttorney)
	assert.False(t, ok)
}

func TestFindValuePrefersExactKey(t *testing.T) {
	row := mustDecode(t, `{"vlastník":"folded","D":"exact"}`)
	v, ok := FindValue(row, FieldOwnerName)
	require.True(t, ok)
	assert.Equal(t, "exact", v)
}

func TestFindValueOnScalar(t *testing.T) {
	_, ok := FindValue("not a row", FieldID)
	assert.False(t, ok)
}

func mustDecode(t *testing.T, s string) any {
	t.Helper()
	v, err := Decode([]byte(s))
	require.NoError(t, err)
	return v
}
