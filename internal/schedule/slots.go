package schedule

import "time"

// Slot is a candidate bookable range of fixed duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// SlotGenerator walks working-hour intervals in chronological order and yields
// fixed-length candidate slots. It is finite and restartable via Reset.
//
// Policy: a slot may begin any time strictly inside a working window, even if
// it runs past the window's close. Clinics routinely take a last patient just
// before closing; changing this silently would reject previously bookable
// times.
type SlotGenerator struct {
	intervals IntervalSet
	duration  time.Duration
	notBefore time.Time

	idx    int
	cursor time.Time
}

// NewSlotGenerator returns a generator over intervals. Candidates starting at
// or before notBefore are skipped; pass the current instant to exclude the
// past.
func NewSlotGenerator(intervals IntervalSet, duration time.Duration, notBefore time.Time) *SlotGenerator {
	g := &SlotGenerator{intervals: intervals, duration: duration, notBefore: notBefore}
	g.Reset()
	return g
}

// Reset rewinds the generator to the first interval.
func (g *SlotGenerator) Reset() {
	g.idx = 0
	if len(g.intervals) > 0 {
		g.cursor = g.intervals[0].Start
	}
}

// Next returns the next candidate slot, or false when the intervals are
// exhausted.
func (g *SlotGenerator) Next() (Slot, bool) {
	if g.duration <= 0 {
		return Slot{}, false
	}
	for g.idx < len(g.intervals) {
		iv := g.intervals[g.idx]
		for g.cursor.Before(iv.End) {
			start := g.cursor
			g.cursor = g.cursor.Add(g.duration)
			if !start.After(g.notBefore) {
				continue
			}
			return Slot{Start: start, End: start.Add(g.duration)}, true
		}
		g.idx++
		if g.idx < len(g.intervals) {
			g.cursor = g.intervals[g.idx].Start
		}
	}
	return Slot{}, false
}

// Collect drains a fresh walk of the generator into a slice. The generator is
// reset first, so Collect is safe to call on a partially consumed generator.
func (g *SlotGenerator) Collect() []Slot {
	g.Reset()
	var slots []Slot
	for {
		s, ok := g.Next()
		if !ok {
			return slots
		}
		slots = append(slots, s)
	}
}
