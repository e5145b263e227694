package subscribers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ subscribersRepo = (*repoMock)(nil)

type repoMock struct {
	mutex       sync.Mutex
	subscribers []Subscriber
}

func NewRepoMock() *repoMock {
	return &repoMock{}
}

func (r *repoMock) Add(_ context.Context, s *Subscriber) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.subscribers {
		if existing.Email == s.Email {
			// what postgres answers for the unique email index
			return &pgconn.PgError{Code: "23505"}
		}
	}
	s.ID = len(r.subscribers) + 1
	s.CreatedAt = time.Now()
	r.subscribers = append(r.subscribers, *s)
	return nil
}

func (r *repoMock) Exists(_ context.Context, email string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return slices.ContainsFunc(r.subscribers, func(s Subscriber) bool {
		return s.Email == email
	}), nil
}

func (r *repoMock) List(_ context.Context) ([]Subscriber, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	list := slices.Clone(r.subscribers)
	slices.Reverse(list)
	if list == nil {
		list = []Subscriber{}
	}
	return list, nil
}
