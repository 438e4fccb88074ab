package schedule

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End) on the UTC timeline.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsEmpty() bool {
	return !iv.End.After(iv.Start)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals share any instant:
// [a,b) overlaps [c,d) iff a < d && c < b.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Clip returns the portion of iv inside bounds, possibly empty.
func (iv Interval) Clip(bounds Interval) Interval {
	out := iv
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	if out.IsEmpty() {
		return Interval{}
	}
	return out
}

// IntervalSet is an ordered list of non-overlapping intervals. The zero value
// is an empty set.
type IntervalSet []Interval

// Add merges iv into the set, coalescing with any intervals it touches or
// overlaps.
func (s IntervalSet) Add(iv Interval) IntervalSet {
	if iv.IsEmpty() {
		return s
	}
	out := make(IntervalSet, 0, len(s)+1)
	for _, existing := range s {
		switch {
		case existing.End.Before(iv.Start):
			out = append(out, existing)
		case iv.End.Before(existing.Start):
			// Past the insertion point; nothing further can merge.
			out = append(out, existing)
		default:
			// Touching or overlapping: absorb into iv.
			if existing.Start.Before(iv.Start) {
				iv.Start = existing.Start
			}
			if existing.End.After(iv.End) {
				iv.End = existing.End
			}
		}
	}
	out = append(out, iv)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Subtract removes iv from the set. An interval partially covered by iv is
// cut down; one fully containing iv splits into two pieces.
func (s IntervalSet) Subtract(iv Interval) IntervalSet {
	if iv.IsEmpty() {
		return s
	}
	out := make(IntervalSet, 0, len(s))
	for _, existing := range s {
		if !existing.Overlaps(iv) {
			out = append(out, existing)
			continue
		}
		if existing.Start.Before(iv.Start) {
			out = append(out, Interval{Start: existing.Start, End: iv.Start})
		}
		if iv.End.Before(existing.End) {
			out = append(out, Interval{Start: iv.End, End: existing.End})
		}
	}
	return out
}

// Total is the summed duration of the set.
func (s IntervalSet) Total() time.Duration {
	var d time.Duration
	for _, iv := range s {
		d += iv.Duration()
	}
	return d
}
