package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rome(t *testing.T) *time.Location {
	loc, err := LoadLocation(DefaultTimezone)
	require.NoError(t, err)
	return loc
}

func TestParse(t *testing.T) {
	loc := rome(t)
	tests := []struct {
		input string
		ok    bool
		y     int
		m     time.Month
		d     int
	}{
		{input: "2025-10-19", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T21:30:00Z", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T23:59:59-07:00", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T00:15:00.123+02:00", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T20:00:00", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T20:00", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19 20:00:00+00", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T23:30:00+0200", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T23:30:00.5-0700", ok: true, y: 2025, m: time.October, d: 19},
		{input: "2025-10-19T23:30+0200", ok: true, y: 2025, m: time.October, d: 19},
		{input: "20251019", ok: true, y: 2025, m: time.October, d: 19},
		{input: "20251019T213000Z", ok: true, y: 2025, m: time.October, d: 19},
		{input: "20251019T213000", ok: true, y: 2025, m: time.October, d: 19},
		{input: "19/10/2025", ok: true, y: 2025, m: time.October, d: 19},
		{input: " 2025-03-30 ", ok: true, y: 2025, m: time.March, d: 30},
		{input: "", ok: false},
		{input: "tomorrow", ok: false},
		{input: "2025-13-01", ok: false},
		{input: "31/02/2025", ok: false},
		{input: "2025-10-19Tgarbage", ok: false},
		{input: "Oct 19, 2025", ok: false},
		{input: "20251319", ok: false},
		{input: "20251019Tlate", ok: false},
	}

	for _, test := range tests {
		got, ok := Parse(test.input, loc)
		assert.Equal(t, test.ok, ok, test.input)
		if !test.ok {
			continue
		}
		y, m, d := got.Date()
		assert.Equal(t, test.y, y, test.input)
		assert.Equal(t, test.m, m, test.input)
		assert.Equal(t, test.d, d, test.input)
		assert.Equal(t, 12, got.Hour(), test.input)
		assert.Equal(t, loc, got.Location(), test.input)
	}
}

func TestTodayUsesDisplayTimezone(t *testing.T) {
	loc := rome(t)
	// 23:30 UTC on the 18th is already the 19th in Rome (UTC+2 in October).
	now := time.Date(2025, time.October, 18, 23, 30, 0, 0, time.UTC)
	today := Today(now, loc)
	assert.Equal(t, Noon(2025, time.October, 19, loc), today)
}

func TestAddDaysAcrossDST(t *testing.T) {
	loc := rome(t)
	// Europe/Rome leaves summer time on 2025-10-26.
	start := Noon(2025, time.October, 22, loc)
	moved := AddDays(start, 7)
	assert.Equal(t, Noon(2025, time.October, 29, loc), moved)
	assert.Equal(t, 12, moved.Hour())

	back := AddDays(moved, -7)
	assert.True(t, SameDay(start, back))
}

func TestNormalizeISO(t *testing.T) {
	loc := rome(t)
	assert.Equal(t, "2025-10-20T01:00:00+02:00", NormalizeISO("2025-10-19T23:00:00Z", loc))
	assert.Equal(t, "2025-10-19", NormalizeISO("2025-10-19", loc))
	assert.Equal(t, "2025-10-19T21:00:00+02:00", NormalizeISO("2025-10-19T21:00:00", loc))
	assert.Equal(t, "", NormalizeISO("19/10/2025", loc))
	assert.Equal(t, "", NormalizeISO("soon", loc))
	assert.Equal(t, "", NormalizeISO("2025-02-30", loc))
}

func TestParseInstantOffsets(t *testing.T) {
	loc := rome(t)
	want := time.Date(2025, time.October, 19, 21, 30, 0, 0, time.UTC)

	for _, input := range []string{
		"2025-10-19T21:30:00Z",
		"2025-10-19T23:30:00+02:00",
		"2025-10-19T23:30:00+0200",
		"2025-10-19T23:30+0200",
		"20251019T213000Z",
		"20251019T233000",
	} {
		got, ok := ParseInstant(input, loc)
		require.True(t, ok, input)
		assert.True(t, want.Equal(got), "%s: %s", input, got)
	}

	day, ok := ParseInstant("20251019", loc)
	require.True(t, ok)
	assert.True(t, time.Date(2025, time.October, 19, 0, 0, 0, 0, loc).Equal(day))

	_, ok = ParseInstant("19/10/2025", loc)
	assert.False(t, ok)
}
