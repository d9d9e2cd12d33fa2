package simday

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidDate is returned when a backend value cannot be read as a calendar date
var ErrInvalidDate = errors.New("invalid simulation date")

// displayLayout is the zero-padded day/month/year form shown on every panel
const displayLayout = "02/01/2006"

// isoLayout is the form the backend uses for date-only values
const isoLayout = "2006-01-02"

// acceptedLayouts lists the timestamp forms the backend is known to send
var acceptedLayouts = []string{
	isoLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Day is a calendar day with no time-of-day or location.
// It is comparable and therefore usable as a map key.
type Day struct {
	year  int
	month time.Month
	day   int
}

// New builds a Day, normalising out-of-range values the way time.Date does
func New(year int, month time.Month, day int) Day {
	return Of(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// Of returns the calendar day of t as written in t's own location
func Of(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	y, m, d := t.Date()
	return Day{year: y, month: m, day: d}
}

// Parse reads a date or timestamp sent by the backend.
// The calendar date is taken as written; offsets are not applied.
func Parse(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, ErrInvalidDate
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Of(t), nil
		}
	}
	return Day{}, errors.Wrapf(ErrInvalidDate, "cannot parse %q", s)
}

// MustParse is Parse for literals known to be valid
func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the absent day
func (d Day) IsZero() bool {
	return d == Day{}
}

// Time returns midnight UTC of d
func (d Day) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves d by n calendar days
func (d Day) AddDays(n int) Day {
	if d.IsZero() {
		return d
	}
	return Of(d.Time().AddDate(0, 0, n))
}

func (d Day) Before(other Day) bool { return d.Time().Before(other.Time()) }
func (d Day) After(other Day) bool  { return d.Time().After(other.Time()) }

// String renders the DD/MM/YYYY display key, or "" for the absent day
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(displayLayout)
}

// ISO renders YYYY-MM-DD, or "" for the absent day
func (d Day) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(isoLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(ErrInvalidDate, err.Error())
	}
	if s == nil || *s == "" {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Stamp is a backend timestamp. It keeps the time-of-day the backend sent
// so records re-encode faithfully, while CalendarDay gives the grouping key.
type Stamp struct {
	time.Time
}

// StampOf wraps a day as a midnight timestamp
func StampOf(d Day) Stamp {
	return Stamp{Time: d.Time()}
}

// CalendarDay returns the calendar day of the stamp
func (s Stamp) CalendarDay() Day {
	return Of(s.Time)
}

// Formatted renders the DD/MM/YYYY display form, or "" when unset
func (s Stamp) Formatted() string {
	return s.CalendarDay().String()
}

func (s Stamp) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	if h, m, sec := s.Clock(); h == 0 && m == 0 && sec == 0 && s.Nanosecond() == 0 {
		return json.Marshal(s.Format(isoLayout))
	}
	return json.Marshal(s.Format("2006-01-02T15:04:05"))
}

func (s *Stamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(ErrInvalidDate, fmt.Sprintf("expected a date string, got %s", string(data)))
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		*s = Stamp{}
		return nil
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*raw)); err == nil {
			*s = Stamp{Time: t}
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidDate, "cannot parse %q", *raw)
}
