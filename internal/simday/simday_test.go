package simday

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsBackendForms(t *testing.T) {
	cases := map[string]string{
		"2024-05-10":                "10/05/2024",
		"2024-05-10T08:15:00":       "10/05/2024",
		"2024-05-10T23:59:59.123456": "10/05/2024",
		"2024-05-10T23:30:00+02:00": "10/05/2024",
		"2024-05-10T00:10:00Z":      "10/05/2024",
		"2024-05-10 17:00:00":       "10/05/2024",
		" 2024-01-02 ":              "02/01/2024",
	}
	for in, want := range cases {
		d, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "tomorrow", "10/05/2024", "2024-13-01"} {
		_, err := Parse(in)
		assert.True(t, errors.Is(err, ErrInvalidDate), in)
	}
}

func TestSameCalendarDayIgnoresTimeOfDay(t *testing.T) {
	morning, err := Parse("2024-05-11T06:00:00")
	require.NoError(t, err)
	night, err := Parse("2024-05-11T23:45:10")
	require.NoError(t, err)

	assert.Equal(t, morning, night)
	assert.Equal(t, morning.String(), night.String())

	grouped := map[Day]int{}
	grouped[morning]++
	grouped[night]++
	assert.Len(t, grouped, 1)
}

func TestDisplayIsZeroPadded(t *testing.T) {
	assert.Equal(t, "01/02/0999", New(999, time.February, 1).String())
	assert.Equal(t, "05/03/2024", New(2024, time.March, 5).String())
	assert.Equal(t, "", Day{}.String())
}

func TestAddDaysCrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "11/05/2024", MustParse("2024-05-10").AddDays(1).String())
	assert.Equal(t, "01/03/2024", MustParse("2024-02-29").AddDays(1).String())
	assert.Equal(t, "01/01/2025", MustParse("2024-12-31").AddDays(1).String())
	assert.True(t, Day{}.AddDays(3).IsZero())
}

func TestOrdering(t *testing.T) {
	a := MustParse("2024-05-10")
	b := MustParse("2024-05-11")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
}

func TestDayJSON(t *testing.T) {
	var payload struct {
		Day Day `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-05-10"}`), &payload))
	assert.Equal(t, "2024-05-10", payload.Day.ISO())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-05-10"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"day":null}`), &payload))
	assert.True(t, payload.Day.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"day":"soon"}`), &payload))
}

func TestStampKeepsTimeButGroupsByDay(t *testing.T) {
	var s Stamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-11T14:30:00"`), &s))
	assert.Equal(t, 14, s.Hour())
	assert.Equal(t, MustParse("2024-05-11"), s.CalendarDay())
	assert.Equal(t, "11/05/2024", s.Formatted())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-11T14:30:00"`, string(out))

	midnight := StampOf(MustParse("2024-05-11"))
	out, err = json.Marshal(midnight)
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-11"`, string(out))

	var empty Stamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())
	assert.Equal(t, "", empty.Formatted())

	assert.Error(t, json.Unmarshal([]byte(`42`), &empty))
}
