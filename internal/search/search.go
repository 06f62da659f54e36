// Package search finds units by owner name, unit number or block.
package search

import (
	"encoding/hex"

	"prezence/api/internal/roster"
	"prezence/api/internal/util"
)

const defaultLimit = 20

// Result is a single search hit returned to the caller.
type Result struct {
	ID         roster.UnitID `json:"id"`
	Block      string        `json:"block"`
	UnitNumber string        `json:"unitNumber"`
	OwnerName  string        `json:"ownerName"`
	// Highlight is the owner name with matches wrapped in <mark>, when the
	// index provides one.
	Highlight string `json:"highlight,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Block string // empty = all blocks
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// UnitRecord is the data we index for a unit.
type UnitRecord struct {
	Key         string `json:"key"`
	UnitID      string `json:"unitId"`
	Block       string `json:"block"`
	UnitNumber  string `json:"unitNumber"`
	OwnerName   string `json:"ownerName"`
	OwnerFolded string `json:"ownerFolded"`
}

// recordKey maps a unit id onto the character set index keys allow.
func recordKey(id roster.UnitID) string {
	return "u" + hex.EncodeToString([]byte(id))
}

func newRecord(u roster.Unit) UnitRecord {
	return UnitRecord{
		Key:         recordKey(u.ID),
		UnitID:      u.ID.String(),
		Block:       u.Block,
		UnitNumber:  u.UnitNumber,
		OwnerName:   u.OwnerName,
		OwnerFolded: util.FoldText(u.OwnerName),
	}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}
