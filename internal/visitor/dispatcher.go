package visitor

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/realestate/internal/apperr"
	"github.com/2beens/realestate/internal/telemetry/metrics"
	"github.com/2beens/realestate/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize    = 1024
	DefaultWorkers      = 2
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 200 * time.Millisecond
	recordTimeout       = 5 * time.Second
)

type pageViewRecorder interface {
	RecordPageView(ctx context.Context, in PageViewInput) error
}

type DispatcherParams struct {
	QueueSize    int
	Workers      int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Dispatcher records page views off the request path. The queue is bounded:
// when it is full new events are dropped, so request handling never waits
// on telemetry.
type Dispatcher struct {
	recorder     pageViewRecorder
	metrics      *metrics.Manager
	queue        chan PageViewInput
	workers      int
	maxAttempts  int
	retryBackoff time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

func NewDispatcher(recorder pageViewRecorder, metricsManager *metrics.Manager, params DispatcherParams) *Dispatcher {
	if params.QueueSize <= 0 {
		params.QueueSize = DefaultQueueSize
	}
	if params.Workers <= 0 {
		params.Workers = DefaultWorkers
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = DefaultMaxAttempts
	}
	if params.RetryBackoff <= 0 {
		params.RetryBackoff = DefaultRetryBackoff
	}

	return &Dispatcher{
		recorder:     recorder,
		metrics:      metricsManager,
		queue:        make(chan PageViewInput, params.QueueSize),
		workers:      params.Workers,
		maxAttempts:  params.MaxAttempts,
		retryBackoff: params.RetryBackoff,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	log.Debugf("page view dispatcher started with %d workers", d.workers)
}

// Enqueue hands a page view to the workers. It returns false, and counts a
// drop, when the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(in PageViewInput) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.countDropped()
		return false
	}

	select {
	case d.queue <- in:
		if d.metrics != nil {
			d.metrics.GaugeTelemetryQueued.Inc()
		}
		return true
	default:
		d.countDropped()
		return false
	}
}

// Close stops accepting events and waits for the queued ones to be recorded
// or for ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for in := range d.queue {
		if d.metrics != nil {
			d.metrics.GaugeTelemetryQueued.Dec()
		}
		d.record(in)
	}
}

func (d *Dispatcher) record(in PageViewInput) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err = d.recorder.RecordPageView(ctx, in)
		cancel()

		if err == nil {
			return
		}
		if apperr.Is(err, apperr.KindValidation) {
			log.Debugf("page view for [%s] rejected: %s", in.Path, err)
			return
		}
		if pkg.IsDataError(err) {
			log.Errorf("page view for [%s] not stored: %s", in.Path, err)
			d.countFailed()
			return
		}
		if attempt < d.maxAttempts {
			time.Sleep(d.retryBackoff * time.Duration(attempt))
		}
	}

	log.Errorf("record page view for [%s] failed after %d attempts: %s", in.Path, d.maxAttempts, err)
	d.countFailed()
}

func (d *Dispatcher) countFailed() {
	if d.metrics != nil {
		d.metrics.CounterPageViewsFailed.Inc()
	}
}

func (d *Dispatcher) countDropped() {
	if d.metrics != nil {
		d.metrics.CounterPageViewsDropped.Inc()
	}
}
