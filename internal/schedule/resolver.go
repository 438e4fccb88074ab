package schedule

import "time"

// WeeklyRule is one recurring open interval on a weekday, wall-clock in the
// business zone.
type WeeklyRule struct {
	Day   time.Weekday
	Start TimeOfDay
	End   TimeOfDay
}

type OverrideKind string

const (
	OverrideAvailable   OverrideKind = "available"
	OverrideUnavailable OverrideKind = "unavailable"
)

// Override is a date-bound exception to the weekly template, expressed as
// instants. Unavailable overrides win over everything they overlap.
type Override struct {
	Kind  OverrideKind
	Start time.Time
	End   time.Time
}

// Resolver turns a weekly template plus overrides into concrete working hours
// for single calendar dates.
type Resolver struct {
	norm *Normalizer
}

func NewResolver(norm *Normalizer) *Resolver {
	return &Resolver{norm: norm}
}

// WorkingHours resolves the provider's effective working hours on date as an
// ordered, non-overlapping interval set of UTC instants. An empty result means
// the provider is not working that day; it is not an error.
//
// Resolution order: seed from the weekly template, short-circuit on a
// full-day unavailable override, add available overrides, then subtract every
// unavailable override. Override ranges are clipped to the civil day being
// resolved.
func (r *Resolver) WorkingHours(date CivilDate, weekly []WeeklyRule, overrides []Override) IntervalSet {
	dayStart := r.norm.StartOfDay(date)
	dayEnd := r.norm.EndOfDay(date)
	day := Interval{Start: dayStart, End: dayEnd}

	var hours IntervalSet
	weekday := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, time.UTC).Weekday()
	for _, rule := range weekly {
		if rule.Day != weekday {
			continue
		}
		iv := Interval{
			Start: r.norm.ToInstant(date, rule.Start),
			End:   r.norm.ToInstant(date, rule.End),
		}
		if iv.IsEmpty() {
			continue
		}
		hours = hours.Add(iv)
	}

	// A closure spanning the whole civil day shuts the provider regardless of
	// the template or any additive override.
	for _, o := range overrides {
		if o.Kind == OverrideUnavailable && !o.Start.After(dayStart) && !o.End.Before(dayEnd) {
			return nil
		}
	}

	for _, o := range overrides {
		if o.Kind != OverrideAvailable {
			continue
		}
		iv := Interval{Start: o.Start, End: o.End}.Clip(day)
		if iv.IsEmpty() {
			continue
		}
		hours = hours.Add(iv)
	}

	for _, o := range overrides {
		if o.Kind != OverrideUnavailable {
			continue
		}
		iv := Interval{Start: o.Start, End: o.End}.Clip(day)
		if iv.IsEmpty() {
			continue
		}
		hours = hours.Subtract(iv)
	}

	return hours
}
