package harvest

import (
	"context"

	"tekkin/internal/model"
)

// Runner is one harvest job. It never fails as a whole: every source,
// artist or record gets its own Status.
type Runner interface {
	Run(ctx context.Context) []model.Status
}

var (
	_ Runner = (*NewsHarvester)(nil)
	_ Runner = (*EventScraper)(nil)
	_ Runner = (*ManualImporter)(nil)
	_ Runner = (*CalendarImporter)(nil)
)

// Failed counts the statuses that are not ok.
func Failed(results []model.Status) int {
	n := 0
	for _, r := range results {
		if r.Status != model.StatusOK {
			n++
		}
	}
	return n
}
