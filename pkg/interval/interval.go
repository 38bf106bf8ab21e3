// Package interval holds the half-open millisecond interval arithmetic used
// for busy/free computation.
package interval

import "sort"

const (
	// MillisPerMinute converts meeting durations to milliseconds
	MillisPerMinute int64 = 60_000

	// DefaultDurationMin is the length of a meeting stored without one
	DefaultDurationMin = 30
)

// Interval is the half-open range [Start, End) in epoch milliseconds
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns End - Start
func (iv Interval) Len() int64 {
	return iv.End - iv.Start
}

// Empty reports whether the interval contains no instant
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// Overlaps reports whether the two intervals share an instant
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// MinutesToMillis converts a duration in minutes to milliseconds
func MinutesToMillis(minutes int) int64 {
	return int64(minutes) * MillisPerMinute
}

// FromMeeting builds the interval occupied by a meeting. A missing
// duration counts as DefaultDurationMin.
func FromMeeting(scheduledAt int64, durationMin int) Interval {
	if durationMin <= 0 {
		durationMin = DefaultDurationMin
	}
	return Interval{Start: scheduledAt, End: scheduledAt + MinutesToMillis(durationMin)}
}

// Clip restricts iv to the window [from, to). ok is false when nothing
// of iv lies inside the window.
func Clip(iv Interval, from, to int64) (Interval, bool) {
	out := Interval{Start: max(iv.Start, from), End: min(iv.End, to)}
	if out.Empty() {
		return Interval{}, false
	}
	return out, true
}

// Sort orders intervals by start, then end, in place
func Sort(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start != ivs[j].Start {
			return ivs[i].Start < ivs[j].Start
		}
		return ivs[i].End < ivs[j].End
	})
}

// Merge returns the union of ivs as sorted, disjoint intervals. Touching
// intervals ([a,b) and [b,c)) are joined. The input is not modified.
func Merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return []Interval{}
	}
	sorted := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.Empty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return []Interval{}
	}
	Sort(sorted)

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if next.Start <= cur.End {
			cur.End = max(cur.End, next.End)
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// Gaps returns the parts of [from, to) not covered by busy, in order.
// busy must be sorted by start but may overlap. Gaps shorter than minLen
// are dropped; a minLen of zero keeps every non-empty gap.
func Gaps(busy []Interval, from, to, minLen int64) []Interval {
	free := []Interval{}
	keep := func(start, end int64) {
		if end > start && end-start >= minLen {
			free = append(free, Interval{Start: start, End: end})
		}
	}

	cursor := from
	for _, iv := range busy {
		if iv.Start > cursor {
			keep(cursor, min(iv.Start, to))
		}
		cursor = max(cursor, iv.End)
		if cursor >= to {
			break
		}
	}
	if cursor < to {
		keep(cursor, to)
	}
	return free
}
