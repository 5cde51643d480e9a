package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tekkin/internal/model"
)

// Memory is an in-process Store. It honours the same keys as the SQL store:
// news rows are unique by URL, events have no uniqueness at all.
type Memory struct {
	mu     sync.RWMutex
	news   map[string]*model.NewsItem
	events []*model.EventRecord
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		news: make(map[string]*model.NewsItem),
		now:  time.Now,
	}
}

func (m *Memory) UpsertNews(_ context.Context, item *model.NewsItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *item
	if existing, ok := m.news[item.URL]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
	} else {
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.CreatedAt = m.now().UTC()
	}
	m.news[item.URL] = &cp
	return nil
}

func (m *Memory) ListNews(_ context.Context, category string, limit int) ([]*model.NewsItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.NewsItem, 0)
	for _, item := range m.news {
		if category != "" && item.Category != category {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) InsertEvents(ctx context.Context, records []*model.EventRecord) error {
	for _, r := range records {
		if err := m.InsertEvent(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) InsertEvent(_ context.Context, record *model.EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *record
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = m.now().UTC()
	m.events = append(m.events, &cp)
	return nil
}

func (m *Memory) EventExists(_ context.Context, artist, date string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.events {
		if e.Artist == artist && e.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]*model.EventRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.EventRecord, 0, len(m.events))
	for i := len(m.events) - 1; i >= 0; i-- {
		cp := *m.events[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
