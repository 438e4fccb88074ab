package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrAmbiguousInstant = errors.New("timestamp must carry an explicit UTC offset")
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM between 00:00 and 24:00")
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
)

// TimeOfDay is a wall-clock time with no date or zone attached, as it appears
// in a provider's weekly template ("09:00").
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". "24:00" is accepted so a template entry can
// run to the end of the day.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if s == "24:00" {
		return TimeOfDay{Hour: 24, Minute: 0}, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.MinuteOfDay() < other.MinuteOfDay()
}

// CivilDate is a calendar date with no zone attached.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return CivilDate{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d CivilDate) AddDays(n int) CivilDate {
	t := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Normalizer is the single place wall-clock values cross into or out of the
// canonical UTC representation. It is side-effect free; the business zone is
// fixed at construction.
type Normalizer struct {
	zone *time.Location
}

func NewNormalizer(zoneName string) (*Normalizer, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("loading business zone %q: %w", zoneName, err)
	}
	return &Normalizer{zone: loc}, nil
}

func NewNormalizerIn(loc *time.Location) *Normalizer {
	return &Normalizer{zone: loc}
}

func (n *Normalizer) Zone() *time.Location {
	return n.zone
}

// ToInstant pins a civil date+time in the business zone to a UTC instant.
func (n *Normalizer) ToInstant(d CivilDate, t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, n.zone).UTC()
}

// ToCivil is the inverse projection of an instant into the business zone.
func (n *Normalizer) ToCivil(instant time.Time) (CivilDate, TimeOfDay) {
	local := instant.In(n.zone)
	return CivilDate{Year: local.Year(), Month: local.Month(), Day: local.Day()},
		TimeOfDay{Hour: local.Hour(), Minute: local.Minute()}
}

// DateOf returns the civil date an instant falls on in the business zone.
func (n *Normalizer) DateOf(instant time.Time) CivilDate {
	d, _ := n.ToCivil(instant)
	return d
}

// StartOfDay returns civil midnight of d as an instant.
func (n *Normalizer) StartOfDay(d CivilDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, n.zone).UTC()
}

// EndOfDay returns civil midnight of the following day. Computed via AddDate
// so DST transitions don't shift the boundary.
func (n *Normalizer) EndOfDay(d CivilDate) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, n.zone).AddDate(0, 0, 1).UTC()
}

// ParseInstant parses an RFC 3339 timestamp and normalizes it to UTC. Inputs
// without an explicit offset are rejected rather than guessed at.
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrAmbiguousInstant, s)
	}
	return t.UTC(), nil
}
