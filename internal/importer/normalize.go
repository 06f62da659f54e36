// Package importer turns loosely shaped rows, as returned by the automation
// webhook or read from a local CSV file, into roster units.
package importer

import (
	"errors"
	"fmt"
	"strconv"

	"prezence/api/internal/roster"
)

const (
	maxSearchDepth = 5
	rawExcerptLen  = 100

	fallbackBlock = "2262"
	fallbackOwner = "Neznámý"
)

var (
	ErrInvalidResponse = errors.New("invalid response")
	ErrNoRows          = errors.New("no rows found")
)

// FormatError reports a payload that could not be turned into units. Raw
// holds the start of the offending body when it was not valid JSON.
type FormatError struct {
	Err error
	Raw string
}

func (e *FormatError) Error() string {
	return e.Err.Error()
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// FindRows returns the first array found in data, searching depth first in
// document order. Containers nested deeper than five levels are not visited.
func FindRows(data any) ([]any, bool) {
	return findRows(data, 0)
}

func findRows(v any, depth int) ([]any, bool) {
	if depth > maxSearchDepth {
		return nil, false
	}
	if arr, ok := v.([]any); ok {
		return arr, true
	}
	keys, get, ok := entries(v)
	if !ok {
		return nil, false
	}
	for _, k := range keys {
		child, _ := get(k)
		if rows, found := findRows(child, depth+1); found {
			return rows, true
		}
	}
	return nil, false
}

// Normalize locates the row list in data and assembles one unit per row.
// Missing columns fall back to defaults rather than failing the import. An
// empty row list is a valid, empty roll.
func Normalize(data any) ([]roster.Unit, error) {
	rows, ok := FindRows(data)
	if !ok {
		return nil, &FormatError{Err: ErrNoRows}
	}
	units := make([]roster.Unit, len(rows))
	for i, row := range rows {
		units[i] = normalizeRow(row, i)
	}
	renumberCollisions(units)
	return units, nil
}

// renumberCollisions gives every unit whose id is shared with another row
// (typically a blank id column coerced to 0) its row ordinal, or the next
// free number after it. Ids that are already unique are left alone.
func renumberCollisions(units []roster.Unit) {
	counts := make(map[roster.UnitID]int, len(units))
	for _, u := range units {
		counts[u.ID]++
	}
	used := make(map[roster.UnitID]struct{}, len(units))
	for id, n := range counts {
		if n == 1 {
			used[id] = struct{}{}
		}
	}
	for i := range units {
		if counts[units[i].ID] == 1 {
			continue
		}
		next := i + 1
		id := roster.NumericID(float64(next))
		for {
			if _, taken := used[id]; !taken {
				break
			}
			next++
			id = roster.NumericID(float64(next))
		}
		used[id] = struct{}{}
		units[i].ID = id
	}
}

func normalizeRow(row any, index int) roster.Unit {
	ordinal := strconv.Itoa(index + 1)

	id := roster.NumericID(float64(index + 1))
	if v, found := FindValue(row, FieldID); found {
		id = roster.NumericID(CoerceNumber(v))
	}

	owner, found := FindValue(row, FieldOwnerName)
	ownerName := textOr(owner, found, fallbackOwner)

	block, found := FindValue(row, FieldBlock)
	number, numberFound := FindValue(row, FieldUnitNumber)
	share, _ := FindValue(row, FieldShare)
	present, _ := FindValue(row, FieldIsPresent)
	proxy, _ := FindValue(row, FieldHasPowerOfAttorney)

	isPresent := CoerceBool(present)
	hasProxy := CoerceBool(proxy)

	return roster.Unit{
		ID:                           id,
		Block:                        textOr(block, found, fallbackBlock),
		UnitNumber:                   textOr(number, numberFound, ordinal),
		OwnerName:                    ownerName,
		OriginalOwnerName:            ownerName,
		Share:                        CoerceNumber(share),
		IsPresent:                    isPresent,
		HasPowerOfAttorney:           hasProxy,
		LastSyncedIsPresent:          &isPresent,
		LastSyncedHasPowerOfAttorney: &hasProxy,
	}
}

// Parse decodes a webhook response body and normalizes it.
func Parse(body []byte) ([]roster.Unit, error) {
	data, err := Decode(body)
	if err != nil {
		return nil, &FormatError{
			Err: fmt.Errorf("%w: %v", ErrInvalidResponse, err),
			Raw: excerpt(string(body)),
		}
	}
	return Normalize(data)
}

func excerpt(s string) string {
	runes := []rune(s)
	if len(runes) <= rawExcerptLen {
		return s
	}
	return string(runes[:rawExcerptLen])
}
