package search

import (
	"strings"
	"sync"

	"prezence/api/internal/roster"
	"prezence/api/internal/util"
)

// Memory searches the current roll in process. It is always available and
// serves whenever the external index is not.
type Memory struct {
	mu      sync.RWMutex
	records []UnitRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Replace(units []roster.Unit) {
	records := make([]UnitRecord, len(units))
	for i, u := range units {
		records[i] = newRecord(u)
	}
	m.mu.Lock()
	m.records = records
	m.mu.Unlock()
}

func (m *Memory) Healthy() bool {
	return true
}

// Search matches the folded query as a substring of the owner name, the unit
// number or the block. An empty query lists every unit.
func (m *Memory) Search(q Query) ([]Result, int, error) {
	needle := util.FoldText(q.Text)
	limit := limitOrDefault(q.Limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Result, 0)
	total := 0
	for _, r := range m.records {
		if q.Block != "" && r.Block != q.Block {
			continue
		}
		if needle != "" &&
			!strings.Contains(r.OwnerFolded, needle) &&
			!strings.Contains(util.FoldText(r.UnitNumber), needle) &&
			!strings.Contains(r.Block, needle) {
			continue
		}
		total++
		if len(results) < limit {
			results = append(results, Result{
				ID:         roster.UnitID(r.UnitID),
				Block:      r.Block,
				UnitNumber: r.UnitNumber,
				OwnerName:  r.OwnerName,
			})
		}
	}
	return results, total, nil
}
