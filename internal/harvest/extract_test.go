package harvest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONLD(t *testing.T) {
	blocks := []string{
		`{"@context":"https://schema.org","@type":"Organization","name":"Bandsintown"}`,
		`[{"@type":"MusicEvent","startDate":"2025-10-24T23:00:00","url":"https://bit.ly/a",
		  "location":{"@type":"Place","name":"Fabric","address":{"addressLocality":"London","addressCountry":{"@type":"Country","name":"UK"}}}},
		 [{"@type":"Event","startDate":"2025-10-30","location":{"name":"Amnesia"}}]]`,
		`{"@graph":[{"@type":"WebPage"},{"@type":["Thing","MusicEvent"],"endDate":"2025-11-02","location":{"name":"Space","address":{"addressRegion":"Florida","addressCountry":"US"}}}]}`,
		`{not json`,
	}

	events := ExtractJSONLD(blocks)
	require.Len(t, events, 3)

	assert.Equal(t, "2025-10-24T23:00:00", events[0].Date)
	assert.Equal(t, "Fabric", events[0].Venue)
	assert.Equal(t, "London", events[0].City)
	assert.Equal(t, "UK", events[0].Country)
	assert.Equal(t, "https://bit.ly/a", events[0].URL)
	assert.Contains(t, string(events[0].Raw), `"MusicEvent"`)

	assert.Equal(t, "2025-10-30", events[1].Date)
	assert.Equal(t, "Amnesia", events[1].Venue)

	assert.Equal(t, "2025-11-02", events[2].Date)
	assert.Equal(t, "Space", events[2].Venue)
	assert.Equal(t, "Florida", events[2].City)
	assert.Equal(t, "US", events[2].Country)
}

func TestExtractJSONLDEmpty(t *testing.T) {
	assert.Empty(t, ExtractJSONLD(nil))
	assert.Empty(t, ExtractJSONLD([]string{`{"@type":"Person"}`}))
}

func TestExtractState(t *testing.T) {
	state := `{"props":{"pageProps":{
		"artist":{"name":"Cloonee"},
		"events":[{"datetime":"2025-10-24T22:00:00","venue":{"name":"Fabric","city":"London","country":"United Kingdom"},"url":"https://bit.ly/x"}],
		"calendar":{"events":[{"startDate":"2025-10-30","venue":{"name":"Amnesia"},"uri":"https://bit.ly/y"}]}
	}}}`

	events := ExtractState([]byte(state), 12)
	require.Len(t, events, 2)

	byVenue := map[string]ScrapedEvent{}
	for _, ev := range events {
		byVenue[ev.Venue] = ev
	}
	assert.Equal(t, "2025-10-24T22:00:00", byVenue["Fabric"].Date)
	assert.Equal(t, "London", byVenue["Fabric"].City)
	assert.Equal(t, "United Kingdom", byVenue["Fabric"].Country)
	assert.Equal(t, "https://bit.ly/x", byVenue["Fabric"].URL)
	assert.Equal(t, "https://bit.ly/y", byVenue["Amnesia"].URL)
}

func TestExtractStateFindsEventsNestedInEvents(t *testing.T) {
	state := `{"events":[{"venue":{"name":"Outer"},"events":[{"venue":{"name":"Inner"}}]}]}`

	events := ExtractState([]byte(state), 12)
	require.Len(t, events, 2)
	assert.Equal(t, "Outer", events[0].Venue)
	assert.Equal(t, "Inner", events[1].Venue)

	// The inner array sits three levels below the outer one.
	shallow := ExtractState([]byte(state), 1)
	require.Len(t, shallow, 1)
	assert.Equal(t, "Outer", shallow[0].Venue)
}

func TestExtractStateIsDepthBounded(t *testing.T) {
	nested := `{"events":[{"venue":{"name":"Deep"}}]}`
	for i := 0; i < 20; i++ {
		nested = fmt.Sprintf(`{"level%d":%s}`, i, nested)
	}

	assert.Empty(t, ExtractState([]byte(nested), 5))
	assert.Len(t, ExtractState([]byte(nested), 30), 1)
}

func TestExtractStateInvalid(t *testing.T) {
	assert.Empty(t, ExtractState([]byte("not json"), 0))
	assert.Empty(t, ExtractState([]byte(`{"events":"nope"}`), 0))
}

func TestExtractStateWideTreeTerminates(t *testing.T) {
	var b strings.Builder
	b.WriteString(`{"items":[`)
	for i := 0; i < maxScanNodes+10; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("0")
	}
	b.WriteString(`],"events":[{"venue":{"name":"Fabric"}}]}`)

	events := ExtractState([]byte(b.String()), 12)
	assert.Len(t, events, 1)
}
