package roster

import "fmt"

// DefaultBlocks are the entrances of the seed roll. The first one doubles as
// the fallback block for imported rows that name none.
var DefaultBlocks = []string{"2262", "2263", "2264"}

const (
	seedUnitsPerBlock = 20
	seedShare         = 1.66
)

// DefaultUnits generates the roll used when nothing has been saved yet.
func DefaultUnits() []Unit {
	units := make([]Unit, 0, len(DefaultBlocks)*seedUnitsPerBlock)
	for b, block := range DefaultBlocks {
		for i := 0; i < seedUnitsPerBlock; i++ {
			globalID := b*seedUnitsPerBlock + i + 1
			name := fmt.Sprintf("Vlastník %d", globalID)
			units = append(units, Unit{
				ID:                NumericID(float64(globalID)),
				UnitNumber:        fmt.Sprintf("%d", i+1),
				OwnerName:         name,
				OriginalOwnerName: name,
				Share:             seedShare,
				Block:             block,
			})
		}
	}
	return units
}
