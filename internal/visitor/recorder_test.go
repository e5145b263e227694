package visitor

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/geoip"
	"github.com/2beens/realestate/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGeoLocator struct {
	loc *geoip.Location
	err error
}

func (g *testGeoLocator) Locate(_ context.Context, _ string) (*geoip.Location, error) {
	return g.loc, g.err
}

func validInput() PageViewInput {
	return PageViewInput{
		Path:      "/gallery",
		UserAgent: uaChromeWindows,
		IP:        "83.12.53.65",
		Referer:   "https://www.google.com/",
		SessionID: "3f1c2a9e-1111-4c1b-9d55-000000000001",
	}
}

func TestRecorder_RecordPageView(t *testing.T) {
	repo := NewRepoMock()
	m := metrics.NewTestManager()
	recorder := NewRecorder(repo, &testGeoLocator{loc: &geoip.Location{Country: "Spain", City: "Palma"}}, m)

	require.NoError(t, recorder.RecordPageView(context.Background(), validInput()))

	require.Len(t, repo.PageViews, 1)
	pv := repo.PageViews[0]
	assert.Equal(t, int64(1), pv.ID)
	assert.Equal(t, "/gallery", pv.Path)
	assert.Equal(t, "Chrome", pv.Browser)
	assert.Equal(t, "desktop", pv.DeviceType)
	assert.Contains(t, pv.OperatingSystem, "Windows")
	assert.Equal(t, "83.12.53.65", pv.IPAddress)
	assert.Equal(t, "https://www.google.com/", pv.Referer)
	require.NotNil(t, pv.Country)
	assert.Equal(t, "Spain", *pv.Country)
	require.NotNil(t, pv.City)
	assert.Equal(t, "Palma", *pv.City)
	assert.False(t, pv.CreatedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPageViews))
}

func TestRecorder_RecordPageView_NoDedup(t *testing.T) {
	repo := NewRepoMock()
	recorder := NewRecorder(repo, nil, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, recorder.RecordPageView(context.Background(), validInput()))
	}
	assert.Equal(t, 3, repo.Len())
}

func TestRecorder_RecordPageView_ValidationWritesNothing(t *testing.T) {
	repo := NewRepoMock()
	recorder := NewRecorder(repo, nil, nil)

	cases := map[string]func(in *PageViewInput){
		"empty path":       func(in *PageViewInput) { in.Path = "" },
		"empty user agent": func(in *PageViewInput) { in.UserAgent = "" },
		"empty ip":         func(in *PageViewInput) { in.IP = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			err := recorder.RecordPageView(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
	assert.Equal(t, 0, repo.Len())

	err := recorder.RecordPageView(context.Background(), PageViewInput{UserAgent: "x", IP: "1.1.1.1"})
	assert.Equal(t, "path is required", apperr.PublicMessage(err))
}

func TestRecorder_RecordPageView_GeoFailureLeavesNull(t *testing.T) {
	repo := NewRepoMock()
	recorder := NewRecorder(repo, &testGeoLocator{err: errors.New("quota exceeded")}, nil)

	require.NoError(t, recorder.RecordPageView(context.Background(), validInput()))
	require.Len(t, repo.PageViews, 1)
	assert.Nil(t, repo.PageViews[0].Country)
	assert.Nil(t, repo.PageViews[0].City)
}

func TestRecorder_RecordPageView_StorageFailure(t *testing.T) {
	repo := NewRepoMock()
	repo.FailTimes = 1
	recorder := NewRecorder(repo, nil, nil)

	err := recorder.RecordPageView(context.Background(), validInput())
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 0, repo.Len())
}

func TestRecorder_RecordPageView_InvalidUTF8Stored(t *testing.T) {
	repo := NewRepoMock()
	recorder := NewRecorder(repo, nil, nil)

	in := validInput()
	in.Path = "/\xff"
	in.UserAgent = "\xff\xfe garbage"
	in.Referer = "https://example.com/\xc3"
	in.SessionID = "abc\xfe"

	require.NoError(t, recorder.RecordPageView(context.Background(), in))
	require.Len(t, repo.PageViews, 1)
	pv := repo.PageViews[0]
	assert.Equal(t, "/\uFFFD", pv.Path)
	assert.Equal(t, "\uFFFD garbage", pv.UserAgent)
	assert.Equal(t, "https://example.com/\uFFFD", pv.Referer)
	assert.Equal(t, "abc\uFFFD", pv.SessionID)
	for _, text := range []string{pv.Browser, pv.BrowserVersion, pv.OperatingSystem, pv.DeviceType} {
		assert.True(t, utf8.ValidString(text), text)
	}
}
