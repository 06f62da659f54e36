package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuorumCrossesHalf(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, unit(1, 20, true), unit(2, 20, true), unit(3, 20, false))

	st := Aggregate(s.Snapshot().Units)
	assert.InDelta(t, 40, st.TotalShare, 1e-9)
	assert.False(t, st.QuorumMet())

	snap, err := s.TogglePresence(ctx, NumericID(3))
	require.NoError(t, err)
	st = Aggregate(snap.Units)
	assert.InDelta(t, 60, st.TotalShare, 1e-9)
	assert.True(t, st.QuorumMet())
}

func TestQuorumNeedsMoreThanHalf(t *testing.T) {
	st := Aggregate([]Unit{unit(1, 50, true), unit(2, 50, false)})
	assert.False(t, st.QuorumMet())
}

func TestAggregateVoteBuckets(t *testing.T) {
	units := []Unit{
		{ID: "1", Share: 10, IsPresent: true, Vote: VotePro},
		{ID: "2", Share: 5, IsPresent: true, Vote: VoteAgainst},
		{ID: "3", Share: 2.5, IsPresent: true, Vote: VoteAbstain},
		{ID: "4", Share: 4, IsPresent: true},
		{ID: "5", Share: 30, IsPresent: false},
	}
	st := Aggregate(units)

	assert.Equal(t, 5, st.TotalCount)
	assert.Equal(t, 4, st.PresentCount)
	assert.InDelta(t, 21.5, st.TotalShare, 1e-9)
	assert.InDelta(t, 10, st.VotePro, 1e-9)
	assert.InDelta(t, 5, st.VoteAgainst, 1e-9)
	assert.InDelta(t, 2.5, st.VoteAbstain, 1e-9)
	assert.InDelta(t, 10/21.5*100, st.PercentOfPresent(st.VotePro), 1e-9)
}

func TestAggregateMatchesPresentShares(t *testing.T) {
	units := DefaultUnits()
	var want float64
	for i := range units {
		if i%3 == 0 {
			units[i].IsPresent = true
			want += units[i].Share
		}
	}
	st := Aggregate(units)
	assert.LessOrEqual(t, st.PresentCount, st.TotalCount)
	assert.InDelta(t, want, st.TotalShare, 1e-9)
}

func TestPercentOfPresentWithNobodyPresent(t *testing.T) {
	assert.Zero(t, Aggregate(DefaultUnits()).PercentOfPresent(10))
}

func TestBlocks(t *testing.T) {
	units := []Unit{{ID: "1", Block: "2264"}, {ID: "2", Block: "2262"}, {ID: "3", Block: "2264"}}
	assert.Equal(t, []string{"2262", "2264"}, Blocks(units))
}

func TestDefaultUnits(t *testing.T) {
	units := DefaultUnits()
	require.Len(t, units, 60)
	assert.Equal(t, NumericID(1), units[0].ID)
	assert.Equal(t, "Vlastník 1", units[0].OwnerName)
	assert.Equal(t, "2264", units[59].Block)
	assert.Equal(t, "20", units[59].UnitNumber)
	assert.Empty(t, PendingNameChanges(units))
}
