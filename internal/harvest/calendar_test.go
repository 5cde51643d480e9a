package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekkin/internal/config"
	"tekkin/internal/dates"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

var testICS = strings.ReplaceAll(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:timed@test
DTSTAMP:20251001T000000Z
SUMMARY:Cloonee
LOCATION:Fabric
URL:https://tickets.example/fabric
DTSTART:20251024T213000Z
DTEND:20251025T040000Z
END:VEVENT
BEGIN:VEVENT
UID:allday@test
DTSTAMP:20251001T000000Z
SUMMARY:Joseph Capriati
LOCATION:Cocorico
DTSTART;VALUE=DATE:20251030
DTEND;VALUE=DATE:20251031
END:VEVENT
BEGIN:VEVENT
UID:floating@test
DTSTAMP:20251001T000000Z
SUMMARY:Manda Moor
DTSTART:20251020T230000
END:VEVENT
BEGIN:VEVENT
UID:weekly@test
DTSTAMP:20251001T000000Z
SUMMARY:Marco Carola
LOCATION:Music On
DTSTART;TZID=Europe/Madrid:20251005T230000
RRULE:FREQ=WEEKLY;COUNT=6
EXDATE;TZID=Europe/Madrid:20251019T230000
END:VEVENT
BEGIN:VEVENT
UID:nosummary@test
DTSTAMP:20251001T000000Z
DTSTART:20251024T213000Z
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")

func testWindow(loc *time.Location) [2]time.Time {
	return [2]time.Time{dates.Noon(2025, 10, 1, loc), dates.Noon(2025, 10, 31, loc)}
}

func TestParseCalendar(t *testing.T) {
	loc := rome(t)
	records, err := ParseCalendar([]byte(testICS), "club-calendar", loc, testWindow(loc))
	require.NoError(t, err)

	got := map[string][]string{}
	for _, r := range records {
		got[r.Artist] = append(got[r.Artist], r.Date)
		assert.Equal(t, "club-calendar", r.Source)
	}

	assert.Equal(t, []string{"2025-10-24T23:30:00+02:00"}, got["Cloonee"])
	assert.Equal(t, []string{"2025-10-30"}, got["Joseph Capriati"])
	assert.Equal(t, []string{"2025-10-20T23:00:00+02:00"}, got["Manda Moor"])
	assert.Equal(t, []string{
		"2025-10-05T23:00:00+02:00",
		"2025-10-12T23:00:00+02:00",
		"2025-10-26T23:00:00+01:00",
	}, got["Marco Carola"])
	assert.NotContains(t, got, "")

	for _, r := range records {
		if r.Artist == "Cloonee" {
			assert.Equal(t, "Fabric", r.Venue)
			assert.Equal(t, "https://tickets.example/fabric", r.URL)
			assert.Contains(t, string(r.Raw), `"uid":"timed@test"`)
		}
	}
}

func TestParseCalendarRejectsGarbage(t *testing.T) {
	loc := rome(t)
	_, err := ParseCalendar(nil, "x", loc, testWindow(loc))
	assert.ErrorIs(t, err, model.ErrMalformedPayload)
}

func TestCalendarImporter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/basic.ics" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/calendar")
		fmt.Fprint(w, testICS)
	}))
	t.Cleanup(srv.Close)

	loc := rome(t)
	mem := store.NewMemory()
	calendars := []config.CalendarConfig{
		{ID: "clubs", URL: srv.URL + "/basic.ics"},
		{ID: "missing", URL: srv.URL + "/missing.ics"},
	}
	imp := NewCalendarImporter(mem, NewFetcher(time.Second, "", ""), calendars, 30, loc)
	imp.now = func() time.Time { return time.Date(2025, 10, 19, 10, 0, 0, 0, loc) }

	first := imp.Run(context.Background())
	require.Len(t, first, 2)
	assert.Equal(t, model.StatusOK, first[0].Status)
	assert.Equal(t, 7, first[0].Count)
	assert.Equal(t, model.StatusError, first[1].Status)

	second := imp.Run(context.Background())
	assert.Equal(t, 0, second[0].Count)

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 7)
}
