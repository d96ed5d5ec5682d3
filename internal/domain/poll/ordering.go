package poll

import "sort"

// closedRankBase is larger than any epoch-millisecond end time, so closed
// polls always rank after open ones.
const closedRankBase int64 = 1_000_000_000_000_000

// Rank is the listing sort key: open polls by end time, closed polls after
// them with the most recently closed first.
func Rank(p *Poll, nowMs int64) int64 {
	if nowMs <= p.EndTime {
		return p.EndTime
	}
	return closedRankBase - p.EndTime
}

// SortByRank orders polls ascending by Rank at nowMs.
func SortByRank(polls []*Poll, nowMs int64) {
	sort.SliceStable(polls, func(i, j int) bool {
		return Rank(polls[i], nowMs) < Rank(polls[j], nowMs)
	})
}
