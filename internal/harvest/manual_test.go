package harvest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekkin/internal/config"
	"tekkin/internal/model"
	"tekkin/internal/store"
)

func TestManualImporterIsIdempotent(t *testing.T) {
	mem := store.NewMemory()
	cfg := config.ManualConfig{Events: config.DefaultManualEvents()}
	m := NewManualImporter(mem, cfg, rome(t))

	first := m.Run(context.Background())
	require.Len(t, first, len(cfg.Events))
	for _, st := range first {
		assert.Equal(t, model.StatusOK, st.Status)
		assert.Equal(t, 1, st.Count)
	}

	second := m.Run(context.Background())
	for _, st := range second {
		assert.Equal(t, model.StatusOK, st.Status)
		assert.Equal(t, 0, st.Count)
	}

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, len(cfg.Events))
	assert.Equal(t, model.SourceManual, events[0].Source)
	assert.Equal(t, "Cloonee@2025-11-02", first[0].Source)
}

func TestManualImporterSkipsRowsFromOtherPaths(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.InsertEvent(context.Background(), &model.EventRecord{
		Artist: "Cloonee", Date: "2025-11-02", Venue: "Space Miami", Source: "calendar",
	}))

	m := NewManualImporter(mem, config.ManualConfig{Events: []config.ManualEvent{
		{Artist: "Cloonee", Date: "2025-11-02", Venue: "Space Miami"},
	}}, rome(t))
	results := m.Run(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Count)
}

func TestManualImporterExpandsResidencies(t *testing.T) {
	mem := store.NewMemory()
	m := NewManualImporter(mem, config.ManualConfig{Events: []config.ManualEvent{
		{
			Artist: "Marco Carola",
			Date:   "2025-10-05",
			Venue:  "Music On",
			City:   "Ibiza",
			RRule:  "FREQ=WEEKLY;BYDAY=SU",
			Until:  "2025-10-26",
		},
		{Artist: "Broken", Date: "2025-10-05", RRule: "FREQ=SOMETIMES"},
		{Artist: "Broken", Date: "next week", RRule: "FREQ=WEEKLY"},
	}}, rome(t))

	results := m.Run(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, model.StatusOK, results[0].Status)
	assert.Equal(t, 4, results[0].Count)
	assert.Equal(t, model.StatusError, results[1].Status)
	assert.Equal(t, model.StatusError, results[2].Status)
	assert.Contains(t, results[2].Message, model.ErrMalformedPayload.Error())

	events, err := mem.ListEvents(context.Background())
	require.NoError(t, err)
	got := make([]string, 0, len(events))
	for _, ev := range events {
		got = append(got, ev.Date)
	}
	assert.ElementsMatch(t, []string{"2025-10-05", "2025-10-12", "2025-10-19", "2025-10-26"}, got)

	again := m.Run(context.Background())
	assert.Equal(t, 0, again[0].Count)
}

func TestManualImporterHorizon(t *testing.T) {
	m := NewManualImporter(store.NewMemory(), config.ManualConfig{HorizonDays: 14}, rome(t))

	dates, err := m.occurrences(config.ManualEvent{Artist: "A", Date: "2025-10-01", RRule: "FREQ=DAILY"})
	require.NoError(t, err)
	assert.Len(t, dates, 15)
	assert.Equal(t, "2025-10-15", dates[len(dates)-1])

	_, err = m.occurrences(config.ManualEvent{Artist: "A", Date: "2025-10-10", Until: "2025-10-01", RRule: "FREQ=DAILY"})
	assert.True(t, errors.Is(err, model.ErrMalformedPayload))
}

type failingEventStore struct{ store.EventStore }

func (failingEventStore) EventExists(context.Context, string, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestManualImporterReportsPersistenceErrors(t *testing.T) {
	m := NewManualImporter(failingEventStore{}, config.ManualConfig{Events: []config.ManualEvent{
		{Artist: "A", Date: "2025-10-01"},
	}}, rome(t))

	results := m.Run(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, model.StatusError, results[0].Status)
	assert.Contains(t, results[0].Message, model.ErrPersistence.Error())
}
