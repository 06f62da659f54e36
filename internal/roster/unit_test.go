package roster

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitIDJSON(t *testing.T) {
	tests := []struct {
		in   string
		id   UnitID
		out  string
		want float64
	}{
		{in: `7`, id: "7", out: `7`, want: 7},
		{in: `7.0`, id: "7", out: `7`, want: 7},
		{in: `2.5`, id: "2.5", out: `2.5`, want: 2.5},
		{in: `"7"`, id: "7", out: `7`, want: 7},
		{in: `"A-12"`, id: "A-12", out: `"A-12"`, want: 12},
		{in: `"007"`, id: "007", out: `"007"`, want: 7},
		{in: `"abc"`, id: "abc", out: `"abc"`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var id UnitID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.id, id)

			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.out, string(out))
			assert.Equal(t, tt.want, id.Numeric())
		})
	}
}

func TestVoteCycle(t *testing.T) {
	assert.Equal(t, VotePro, VoteNone.Next())
	assert.Equal(t, VoteAgainst, VotePro.Next())
	assert.Equal(t, VoteAbstain, VoteAgainst.Next())
	assert.Equal(t, VotePro, VoteAbstain.Next())
}

func TestPrepareFillsBaselines(t *testing.T) {
	units := Prepare([]Unit{{ID: "1", OwnerName: "A", IsPresent: true, Vote: VotePro}})
	u := units[0]
	assert.Equal(t, "A", u.OriginalOwnerName)
	require.NotNil(t, u.LastSyncedIsPresent)
	assert.True(t, *u.LastSyncedIsPresent)
	require.NotNil(t, u.LastSyncedHasPowerOfAttorney)
	assert.False(t, *u.LastSyncedHasPowerOfAttorney)
	assert.Equal(t, VoteNone, u.Vote)
}

func TestPendingNameChangesAndMarkSynced(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, unit(1, 10, false), unit(2, 10, false), unit(3, 10, true))

	_, err := s.RenameOwner(ctx, NumericID(2), "Petr Novák")
	require.NoError(t, err)
	_, err = s.TogglePresence(ctx, NumericID(1))
	require.NoError(t, err)

	pending := s.PendingSync()
	require.Len(t, pending, 1)
	assert.Equal(t, NumericID(2), pending[0].ID)

	st, err := s.MarkSynced(ctx, IDs(pending))
	require.NoError(t, err)
	assert.Equal(t, "Petr Novák", st.Units[1].OriginalOwnerName)
	assert.Equal(t, "Owner", st.Units[0].OriginalOwnerName)
	assert.Empty(t, s.PendingSync())
}

func TestEmptyBaselineIsNotPending(t *testing.T) {
	units := []Unit{{ID: "1", OwnerName: "A"}}
	assert.Empty(t, PendingNameChanges(units))
}
