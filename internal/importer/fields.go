package importer

import "prezence/api/internal/util"

// Field is a logical column of the unit schema.
type Field int

const (
	FieldID Field = iota
	FieldBlock
	FieldUnitNumber
	FieldOwnerName
	FieldShare
	FieldIsPresent
	FieldHasPowerOfAttorney
)

func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldBlock:
		return "block"
	case FieldUnitNumber:
		return "unitNumber"
	case FieldOwnerName:
		return "ownerName"
	case FieldShare:
		return "share"
	case FieldIsPresent:
		return "isPresent"
	case FieldHasPowerOfAttorney:
		return "hasPowerOfAttorney"
	default:
		return "unknown"
	}
}

// candidates lists, per field, the keys tried verbatim before the folded
// comparison: the column index of the sheet row, the header spellings seen
// in the wild, and the spreadsheet column letter.
var candidates = map[Field][]string{
	FieldID:                 {"0", "id", "ID"},
	FieldBlock:              {"1", "vchod", "Vchod"},
	FieldUnitNumber:         {"2", "jednotka", "Jednotka"},
	FieldOwnerName:          {"3", "vlastnik", "Vlastník", "D"},
	FieldShare:              {"4", "podil", "Podíl", "E", "Podil (%)"},
	FieldIsPresent:          {"5", "prezence", "Prezence", "F", "Pritomen", "Přítomen"},
	FieldHasPowerOfAttorney: {"6", "pm", "PM", "G"},
}

var foldedCandidates = func() map[Field]map[string]struct{} {
	out := make(map[Field]map[string]struct{}, len(candidates))
	for field, keys := range candidates {
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[util.FoldKey(k)] = struct{}{}
		}
		out[field] = set
	}
	return out
}()

// FindValue looks up field in a row. An exact candidate key wins; otherwise
// the first row key whose folded form matches a folded candidate is used.
// A key that is present with a null value counts as found.
func FindValue(row any, field Field) (any, bool) {
	keys, get, ok := entries(row)
	if !ok {
		return nil, false
	}
	for _, k := range candidates[field] {
		if v, found := get(k); found {
			return v, true
		}
	}
	folded := foldedCandidates[field]
	for _, k := range keys {
		if _, match := folded[util.FoldKey(k)]; match {
			v, _ := get(k)
			return v, true
		}
	}
	return nil, false
}
