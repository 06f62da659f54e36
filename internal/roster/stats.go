package roster

import "sort"

// QuorumThreshold is the present share, in percent, that must be exceeded.
const QuorumThreshold = 50.0

// Stats summarises attendance and the share-weighted vote tally.
type Stats struct {
	TotalCount   int     `json:"totalCount"`
	PresentCount int     `json:"presentCount"`
	TotalShare   float64 `json:"totalShare"`
	VotePro      float64 `json:"votePro"`
	VoteAgainst  float64 `json:"voteAgainst"`
	VoteAbstain  float64 `json:"voteAbstain"`
}

// Aggregate computes Stats over a roll. Only present units contribute shares;
// a present unit without a vote counts towards TotalShare but no vote bucket.
func Aggregate(units []Unit) Stats {
	var st Stats
	for _, u := range units {
		st.TotalCount++
		if !u.IsPresent {
			continue
		}
		st.PresentCount++
		st.TotalShare += u.Share
		switch u.Vote {
		case VotePro:
			st.VotePro += u.Share
		case VoteAgainst:
			st.VoteAgainst += u.Share
		case VoteAbstain:
			st.VoteAbstain += u.Share
		}
	}
	return st
}

func (s Stats) QuorumMet() bool {
	return s.TotalShare > QuorumThreshold
}

// PercentOfPresent expresses a share sum relative to the present share.
func (s Stats) PercentOfPresent(v float64) float64 {
	if s.TotalShare <= 0 {
		return 0
	}
	return v / s.TotalShare * 100
}

// Blocks returns the distinct block labels in sorted order.
func Blocks(units []Unit) []string {
	seen := make(map[string]struct{})
	blocks := make([]string, 0)
	for _, u := range units {
		if _, ok := seen[u.Block]; ok {
			continue
		}
		seen[u.Block] = struct{}{}
		blocks = append(blocks, u.Block)
	}
	sort.Strings(blocks)
	return blocks
}
