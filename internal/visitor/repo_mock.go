package visitor

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ pageViewsRepo = (*repoMock)(nil)

type repoMock struct {
	mutex     sync.Mutex
	PageViews []PageView
	// FailTimes makes the next n Add calls fail
	FailTimes int
	now       func() time.Time
}

func NewRepoMock() *repoMock {
	return &repoMock{
		now: time.Now,
	}
}

func (r *repoMock) Add(_ context.Context, pv *PageView) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.FailTimes > 0 {
		r.FailTimes--
		return errors.New("connection refused")
	}
	for _, text := range []string{pv.Path, pv.UserAgent, pv.IPAddress, pv.Browser, pv.BrowserVersion, pv.OperatingSystem, pv.Referer, pv.SessionID} {
		if !utf8.ValidString(text) {
			// what postgres answers for non UTF-8 text
			return &pgconn.PgError{Code: "22021", Message: "invalid byte sequence for encoding \"UTF8\""}
		}
	}

	pv.ID = int64(len(r.PageViews) + 1)
	pv.CreatedAt = r.now()
	r.PageViews = append(r.PageViews, *pv)
	return nil
}

func (r *repoMock) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.PageViews)
}
