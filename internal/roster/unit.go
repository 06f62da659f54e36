// Package roster holds the ownership-unit roll of an owners' meeting: presence,
// proxies, the per-unit vote, quorum arithmetic and the name-sync baseline.
package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnitID identifies a unit. Sheets and older saved rolls carry numeric ids,
// AI imports and hand-made files sometimes carry strings. Only the text is
// kept: an id in canonical number form is written back as a JSON number even
// if it arrived quoted.
type UnitID string

// NumericID builds an id from a number, formatted without a trailing ".0".
func NumericID(v float64) UnitID {
	return UnitID(strconv.FormatFloat(v, 'f', -1, 64))
}

func (id UnitID) number() (float64, bool) {
	v, err := strconv.ParseFloat(string(id), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, strconv.FormatFloat(v, 'f', -1, 64) == string(id)
}

// Numeric returns the id as a number for the spreadsheet row mapping. String
// ids are reduced to their digits; an id without digits maps to 0.
func (id UnitID) Numeric() float64 {
	if v, ok := id.number(); ok {
		return v
	}
	var digits strings.Builder
	for _, r := range string(id) {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func (id UnitID) String() string {
	return string(id)
}

func (id UnitID) MarshalJSON() ([]byte, error) {
	if _, ok := id.number(); ok {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *UnitID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UnitID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("unit id: %w", err)
	}
	*id = NumericID(v)
	return nil
}

// Vote is a unit's position while voting mode is active. The zero value means
// no vote.
type Vote string

const (
	VoteNone    Vote = ""
	VotePro     Vote = "PRO"
	VoteAgainst Vote = "PROTI"
	VoteAbstain Vote = "ZDRŽEL"
)

// Next returns the vote that follows v in the PRO → PROTI → ZDRŽEL cycle.
func (v Vote) Next() Vote {
	switch v {
	case VotePro:
		return VoteAgainst
	case VoteAgainst:
		return VoteAbstain
	default:
		return VotePro
	}
}

// Unit is one ownership unit of the roll. JSON names match the saved roll
// format so existing data keeps loading.
type Unit struct {
	ID                           UnitID  `json:"id"`
	UnitNumber                   string  `json:"unitNumber"`
	OwnerName                    string  `json:"ownerName"`
	OriginalOwnerName            string  `json:"originalOwnerName"`
	Share                        float64 `json:"share"`
	Block                        string  `json:"block"`
	IsPresent                    bool    `json:"isPresent"`
	HasPowerOfAttorney           bool    `json:"hasPowerOfAttorney"`
	LastSyncedIsPresent          *bool   `json:"lastSyncedIsPresent,omitempty"`
	LastSyncedHasPowerOfAttorney *bool   `json:"lastSyncedHasPowerOfAttorney,omitempty"`
	Vote                         Vote    `json:"vote,omitempty"`
}

// Baseline is the owner name last confirmed in the external sheet.
func (u Unit) Baseline() string {
	if u.OriginalOwnerName == "" {
		return u.OwnerName
	}
	return u.OriginalOwnerName
}

// Prepare fills the baselines a saved roll may lack and drops votes, since a
// freshly loaded roll always starts outside voting mode.
func Prepare(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		if u.OriginalOwnerName == "" {
			u.OriginalOwnerName = u.OwnerName
		}
		if u.LastSyncedIsPresent == nil {
			u.LastSyncedIsPresent = boolPtr(u.IsPresent)
		}
		if u.LastSyncedHasPowerOfAttorney == nil {
			u.LastSyncedHasPowerOfAttorney = boolPtr(u.HasPowerOfAttorney)
		}
		u.Vote = VoteNone
		out[i] = u
	}
	return out
}

func boolPtr(v bool) *bool {
	return &v
}

func cloneUnits(units []Unit) []Unit {
	out := make([]Unit, len(units))
	for i, u := range units {
		if u.LastSyncedIsPresent != nil {
			u.LastSyncedIsPresent = boolPtr(*u.LastSyncedIsPresent)
		}
		if u.LastSyncedHasPowerOfAttorney != nil {
			u.LastSyncedHasPowerOfAttorney = boolPtr(*u.LastSyncedHasPowerOfAttorney)
		}
		out[i] = u
	}
	return out
}
