// Package spotlight builds the spotlight read model: stored events mapped to
// display items and partitioned into Live / Upcoming / Past buckets around
// today's civil date in the display timezone.
package spotlight

import (
	"sort"
	"time"

	"tekkin/internal/dates"
)

const dayLayout = "2006-01-02"

// Item is a stored event as shown by the spotlight page.
type Item struct {
	ID          string `json:"id"`
	Artist      string `json:"artist"`
	Venue       string `json:"venue"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Date        string `json:"date"`
	URL         string `json:"url"`
	Bandsintown string `json:"bandsintown"`
	Thumbnail   string `json:"thumbnail"`
	Source      string `json:"source"`
}

// Buckets is the partition of a snapshot of items. Live and the upcoming
// buckets are sorted soonest first, PastWeek most recent first.
type Buckets struct {
	Today            string `json:"today"`
	Timezone         string `json:"timezone"`
	Live             []Item `json:"live"`
	UpcomingThisWeek []Item `json:"upcoming_this_week"`
	UpcomingNextWeek []Item `json:"upcoming_next_week"`
	PastWeek         []Item `json:"past_week"`
}

// Class is the coarse classification of a dated item against today.
type Class string

const (
	ClassLive     Class = "live"
	ClassUpcoming Class = "upcoming"
	ClassPast     Class = "past"
)

// Classify compares two civil dates: the same day is Live regardless of the
// time written in the date, a later day is Upcoming, anything else Past.
func Classify(day, today time.Time) Class {
	switch {
	case dates.SameDay(day, today):
		return ClassLive
	case day.After(today):
		return ClassUpcoming
	default:
		return ClassPast
	}
}

type dated struct {
	item    Item
	day     time.Time
	instant time.Time
}

// Partition classifies items against the civil date of now in loc. Items
// whose date cannot be parsed are left out. Boundaries are inclusive:
// today+7 is this week, today-7 is still in the past week.
func Partition(items []Item, now time.Time, loc *time.Location) Buckets {
	today := dates.Today(now, loc)
	endThisWeek := dates.AddDays(today, 7)
	endNextWeek := dates.AddDays(today, 14)
	startPastWeek := dates.AddDays(today, -7)

	var live, upcoming, past []dated
	for _, it := range items {
		day, ok := dates.Parse(it.Date, loc)
		if !ok {
			continue
		}
		d := dated{item: it, day: day, instant: day}
		if inst, ok := dates.ParseInstant(it.Date, loc); ok {
			d.instant = inst
		}

		switch Classify(day, today) {
		case ClassLive:
			live = append(live, d)
		case ClassUpcoming:
			upcoming = append(upcoming, d)
		default:
			past = append(past, d)
		}
	}

	sortDated(live, true)
	sortDated(upcoming, true)
	sortDated(past, false)

	b := Buckets{
		Today:            today.Format(dayLayout),
		Timezone:         loc.String(),
		Live:             make([]Item, 0, len(live)),
		UpcomingThisWeek: make([]Item, 0),
		UpcomingNextWeek: make([]Item, 0),
		PastWeek:         make([]Item, 0),
	}
	for _, d := range live {
		b.Live = append(b.Live, d.item)
	}
	for _, d := range upcoming {
		switch {
		case !d.day.After(endThisWeek):
			b.UpcomingThisWeek = append(b.UpcomingThisWeek, d.item)
		case !d.day.After(endNextWeek):
			b.UpcomingNextWeek = append(b.UpcomingNextWeek, d.item)
		}
	}
	for _, d := range past {
		if !d.day.Before(startPastWeek) {
			b.PastWeek = append(b.PastWeek, d.item)
		}
	}
	return b
}

// sortDated orders by civil day, then by the instant written in the date.
func sortDated(ds []dated, ascending bool) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if !ascending {
			a, b = b, a
		}
		if !a.day.Equal(b.day) {
			return a.day.Before(b.day)
		}
		return a.instant.Before(b.instant)
	})
}

// Upcoming returns the items dated today or later, soonest first.
func Upcoming(items []Item, now time.Time, loc *time.Location) []Item {
	today := dates.Today(now, loc)

	var ds []dated
	for _, it := range items {
		day, ok := dates.Parse(it.Date, loc)
		if !ok || day.Before(today) {
			continue
		}
		d := dated{item: it, day: day, instant: day}
		if inst, ok := dates.ParseInstant(it.Date, loc); ok {
			d.instant = inst
		}
		ds = append(ds, d)
	}
	sortDated(ds, true)

	out := make([]Item, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.item)
	}
	return out
}
