package testimonials

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ testimonialsRepo = (*repoMock)(nil)

type repoMock struct {
	mutex        sync.Mutex
	testimonials map[int]Testimonial
	nextID       int
}

func NewRepoMock() *repoMock {
	return &repoMock{
		testimonials: make(map[int]Testimonial),
		nextID:       1,
	}
}

func (r *repoMock) Add(_ context.Context, t *Testimonial) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t.ID = r.nextID
	r.nextID++
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.testimonials[t.ID] = *t
	return nil
}

func (r *repoMock) List(_ context.Context, filter Filter) ([]Testimonial, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	list := []Testimonial{}
	for _, t := range r.testimonials {
		if filter.Approved == nil || t.Approved == *filter.Approved {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if filter.Limit > 0 && len(list) > filter.Limit {
		list = list[:filter.Limit]
	}
	return list, nil
}

func (r *repoMock) Approve(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t, ok := r.testimonials[id]
	if !ok {
		return ErrTestimonialNotFound
	}
	t.Approved = true
	r.testimonials[id] = t
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.testimonials[id]; !ok {
		return ErrTestimonialNotFound
	}
	delete(r.testimonials, id)
	return nil
}
