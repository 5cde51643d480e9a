package harvest

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// defaultMaxScanDepth bounds the embedded-state walk when no depth is given.
const defaultMaxScanDepth = 12

// maxScanNodes caps the number of nodes a single state walk may visit.
const maxScanNodes = 100000

// ScrapedEvent is an event found on an artist page, before it is tagged with
// the artist and normalized into a model.EventRecord.
type ScrapedEvent struct {
	Date    string
	Venue   string
	City    string
	Country string
	URL     string
	Raw     json.RawMessage
}

// ExtractJSONLD returns every schema.org Event found in the given
// application/ld+json blocks. Blocks may be single objects, arrays (nested
// at any level) or objects carrying an @graph. Invalid blocks are skipped.
func ExtractJSONLD(blocks []string) []ScrapedEvent {
	out := make([]ScrapedEvent, 0)
	for _, block := range blocks {
		var v any
		if err := json.Unmarshal([]byte(block), &v); err != nil {
			continue
		}
		for _, node := range flatten(v) {
			obj, ok := node.(map[string]any)
			if !ok {
				continue
			}
			if graph, ok := obj["@graph"]; ok {
				for _, g := range flatten(graph) {
					if ev, ok := jsonLDEvent(g); ok {
						out = append(out, ev)
					}
				}
				continue
			}
			if ev, ok := jsonLDEvent(obj); ok {
				out = append(out, ev)
			}
		}
	}
	return out
}

func flatten(v any) []any {
	arr, ok := v.([]any)
	if !ok {
		return []any{v}
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		out = append(out, flatten(item)...)
	}
	return out
}

func jsonLDEvent(node any) (ScrapedEvent, bool) {
	obj, ok := node.(map[string]any)
	if !ok || !isEventType(obj["@type"]) {
		return ScrapedEvent{}, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return ScrapedEvent{}, false
	}
	return ScrapedEvent{
		Date:    firstString(raw, "startDate", "endDate"),
		Venue:   firstString(raw, "location.name", "location.0.name"),
		City:    firstString(raw, "location.address.addressLocality", "location.address.addressRegion", "location.0.address.addressLocality"),
		Country: firstString(raw, "location.address.addressCountry", "location.0.address.addressCountry"),
		URL:     firstString(raw, "url"),
		Raw:     raw,
	}, true
}

// isEventType accepts "Event" and its schema.org subtypes (MusicEvent, ...),
// as a string or inside a type array.
func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.HasSuffix(s, "Event") {
				return true
			}
		}
	}
	return false
}

// ExtractState walks an embedded client-side state tree (for example
// __NEXT_DATA__) looking for arrays under an "events" key, at any level and
// inside other events. The walk stops at maxDepth levels and after
// maxScanNodes nodes.
func ExtractState(state []byte, maxDepth int) []ScrapedEvent {
	if maxDepth <= 0 {
		maxDepth = defaultMaxScanDepth
	}
	var root any
	if err := json.Unmarshal(state, &root); err != nil {
		return []ScrapedEvent{}
	}

	w := &stateWalker{maxDepth: maxDepth, found: make([]ScrapedEvent, 0)}
	w.visit(root, 0)
	return w.found
}

type stateWalker struct {
	maxDepth int
	visited  int
	found    []ScrapedEvent
}

func (w *stateWalker) visit(x any, depth int) {
	if depth > w.maxDepth || w.visited >= maxScanNodes {
		return
	}
	w.visited++

	switch v := x.(type) {
	case []any:
		for _, item := range v {
			w.visit(item, depth+1)
		}
	case map[string]any:
		if events, ok := v["events"].([]any); ok {
			for _, e := range events {
				if ev, ok := stateEvent(e); ok {
					w.found = append(w.found, ev)
				}
			}
		}
		// Matched arrays are walked too: an event may carry its own events.
		for _, child := range v {
			w.visit(child, depth+1)
		}
	}
}

func stateEvent(node any) (ScrapedEvent, bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return ScrapedEvent{}, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return ScrapedEvent{}, false
	}
	return ScrapedEvent{
		Date:    firstString(raw, "datetime", "startDate"),
		Venue:   firstString(raw, "venue.name"),
		City:    firstString(raw, "venue.city"),
		Country: firstString(raw, "venue.country"),
		URL:     firstString(raw, "url", "uri"),
		Raw:     raw,
	}, true
}

// firstString returns the first non-empty string found at paths. Objects
// are read through their "name" field (schema.org Country, Place, ...).
func firstString(raw []byte, paths ...string) string {
	for _, p := range paths {
		r := gjson.GetBytes(raw, p)
		if r.IsObject() {
			r = r.Get("name")
		}
		if r.Type == gjson.String || r.Type == gjson.Number {
			if s := strings.TrimSpace(r.String()); s != "" {
				return s
			}
		}
	}
	return ""
}
