package gallery

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ galleryRepo = (*repoMock)(nil)

type repoMock struct {
	mutex  sync.Mutex
	items  map[int]Item
	nextID int
}

func NewRepoMock() *repoMock {
	return &repoMock{
		items:  make(map[int]Item),
		nextID: 1,
	}
}

func (r *repoMock) Add(_ context.Context, item *Item) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item.ID = r.nextID
	r.nextID++
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.items[item.ID] = *item
	return nil
}

func (r *repoMock) Update(_ context.Context, item *Item) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return ErrItemNotFound
	}
	item.CreatedAt = existing.CreatedAt
	r.items[item.ID] = *item
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *repoMock) Get(_ context.Context, id int) (*Item, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

func (r *repoMock) ListPublished(_ context.Context, category string, limit, offset int) ([]Item, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	items := r.published(category)
	if offset >= len(items) {
		return []Item{}, nil
	}
	return items[offset:min(offset+limit, len(items))], nil
}

func (r *repoMock) CountPublished(_ context.Context, category string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.published(category)), nil
}

func (r *repoMock) All(_ context.Context) ([]Item, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	items := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item)
	}
	sortNewestFirst(items)
	return items, nil
}

func (r *repoMock) published(category string) []Item {
	items := []Item{}
	for _, item := range r.items {
		if item.Published && (category == "" || item.Category == category) {
			items = append(items, item)
		}
	}
	sortNewestFirst(items)
	return items
}

func sortNewestFirst(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
