package settings

import (
	"context"
	"sync"
	"time"
)

var _ settingsRepo = (*repoMock)(nil)

type repoMock struct {
	mutex sync.Mutex
	site  SiteSettings
	// Err is returned by every call when set
	Err error
}

func NewRepoMock(site SiteSettings) *repoMock {
	return &repoMock{
		site: site,
	}
}

func (r *repoMock) GetSite(_ context.Context) (*SiteSettings, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	s := r.site
	return &s, nil
}

func (r *repoMock) UpdateSite(_ context.Context, update *SiteSettingsUpdate) (*SiteSettings, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	update.ApplyTo(&r.site)
	r.site.UpdatedAt = time.Now()
	s := r.site
	return &s, nil
}
