package visitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/telemetry/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingRecorder blocks every call until release is closed.
type blockingRecorder struct {
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (r *blockingRecorder) RecordPageView(_ context.Context, _ PageViewInput) error {
	<-r.release
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return nil
}

func (r *blockingRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type flakyRecorder struct {
	mu       sync.Mutex
	failures int
	calls    int
	err      error
}

func (r *flakyRecorder) RecordPageView(_ context.Context, _ PageViewInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.failures {
		return r.err
	}
	return nil
}

func TestDispatcher_RecordsQueuedViews(t *testing.T) {
	repo := NewRepoMock()
	m := metrics.NewTestManager()
	d := NewDispatcher(NewRecorder(repo, nil, m), m, DispatcherParams{QueueSize: 16, Workers: 2})
	d.Start()

	for i := 0; i < 10; i++ {
		assert.True(t, d.Enqueue(validInput()))
	}

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 10, repo.Len())
	assert.Equal(t, 10.0, testutil.ToFloat64(m.CounterPageViews))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CounterPageViewsDropped))
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	recorder := &blockingRecorder{release: make(chan struct{})}
	m := metrics.NewTestManager()
	d := NewDispatcher(recorder, m, DispatcherParams{QueueSize: 2, Workers: 1})
	d.Start()

	accepted := 0
	start := time.Now()
	for i := 0; i < 10; i++ {
		if d.Enqueue(validInput()) {
			accepted++
		}
	}
	assert.Less(t, time.Since(start), time.Second, "enqueue must not block")

	// one taken by the worker at most, two buffered
	assert.LessOrEqual(t, accepted, 3)
	assert.GreaterOrEqual(t, accepted, 2)
	assert.Equal(t, float64(10-accepted), testutil.ToFloat64(m.CounterPageViewsDropped))

	close(recorder.release)
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, accepted, recorder.Calls())
}

func TestDispatcher_RetriesThenGivesUp(t *testing.T) {
	recorder := &flakyRecorder{failures: 10, err: apperr.Internal(assert.AnError)}
	m := metrics.NewTestManager()
	d := NewDispatcher(recorder, m, DispatcherParams{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Millisecond})
	d.Start()

	d.Enqueue(validInput())
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 3, recorder.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPageViewsFailed))
}

func TestDispatcher_RetrySucceeds(t *testing.T) {
	recorder := &flakyRecorder{failures: 1, err: apperr.Internal(assert.AnError)}
	m := metrics.NewTestManager()
	d := NewDispatcher(recorder, m, DispatcherParams{Workers: 1, RetryBackoff: time.Millisecond})
	d.Start()

	d.Enqueue(validInput())
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, 2, recorder.calls)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CounterPageViewsFailed))
}

func TestDispatcher_ValidationNotRetried(t *testing.T) {
	recorder := &flakyRecorder{failures: 10, err: apperr.Validation("path is required")}
	d := NewDispatcher(recorder, nil, DispatcherParams{Workers: 1, RetryBackoff: time.Millisecond})
	d.Start()

	d.Enqueue(PageViewInput{})
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, recorder.calls)
}

func TestDispatcher_DataErrorNotRetried(t *testing.T) {
	recorder := &flakyRecorder{failures: 10, err: apperr.Internal(&pgconn.PgError{Code: "22021"})}
	m := metrics.NewTestManager()
	d := NewDispatcher(recorder, m, DispatcherParams{Workers: 1, MaxAttempts: 3, RetryBackoff: time.Second})
	d.Start()

	start := time.Now()
	d.Enqueue(validInput())
	require.NoError(t, d.Close(context.Background()))

	assert.Less(t, time.Since(start), time.Second, "no backoff for data errors")
	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPageViewsFailed))
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	m := metrics.NewTestManager()
	d := NewDispatcher(NewRecorder(NewRepoMock(), nil, nil), m, DispatcherParams{})
	d.Start()
	require.NoError(t, d.Close(context.Background()))
	// closing twice is fine
	require.NoError(t, d.Close(context.Background()))

	assert.False(t, d.Enqueue(validInput()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPageViewsDropped))
}

func TestDispatcher_CloseHonorsContext(t *testing.T) {
	recorder := &blockingRecorder{release: make(chan struct{})}
	d := NewDispatcher(recorder, nil, DispatcherParams{Workers: 1})
	d.Start()
	d.Enqueue(validInput())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	// let the worker finish so no goroutine outlives the test
	close(recorder.release)
	require.NoError(t, d.Close(context.Background()))
}
