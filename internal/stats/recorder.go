package stats

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nopickie/nopickie/internal/backend"
	"github.com/nopickie/nopickie/internal/event"
)

// recordQueue bounds the triggers waiting for the backend.
const recordQueue = 16

// Recorder stores every scratch_detected trigger with the backend and
// announces the result as trigger_recorded. Exactly one Recorder should run
// per detector, in the process that owns the connection to it.
type Recorder struct {
	view    *View
	bus     *event.Bus
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	running     bool
	queue       chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	unsubscribe func()
}

// NewRecorder creates a recorder for b. A zero timeout means no deadline per
// record.
func NewRecorder(b backend.Client, bus *event.Bus, timeout time.Duration, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		view:    NewView(b, logger),
		bus:     bus,
		timeout: timeout,
		logger:  logger,
	}
}

// Start subscribes to scratch_detected. Bus handlers run on the transport's
// reader, so records are queued to a worker instead of issued inline.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.queue = make(chan struct{}, recordQueue)
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.unsubscribe = r.bus.Subscribe(r.enqueue, event.ScratchDetected)
	go r.loop(r.queue, r.stopCh, r.doneCh)

	r.logger.Debug("trigger recorder started")
}

// Stop unsubscribes and waits for the worker. Queued triggers not yet sent
// are dropped.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.unsubscribe()
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()

	<-done
	r.logger.Debug("trigger recorder stopped")
}

func (r *Recorder) enqueue(event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	select {
	case r.queue <- struct{}{}:
	default:
		r.logger.Warn("trigger queue full, dropping trigger")
	}
}

func (r *Recorder) loop(queue <-chan struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-stop:
			return
		case <-queue:
			r.record(ctx)
		}
	}
}

func (r *Recorder) record(ctx context.Context) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.view.RecordTrigger(ctx); err != nil {
		return
	}

	var payload event.Recorded
	if snap := r.view.Snapshot(); snap.TodayLoaded {
		today := snap.Today
		payload.Today = &today
	}
	e, err := event.New(event.TriggerRecorded, payload)
	if err != nil {
		r.logger.Warn("failed to build trigger_recorded", "error", err)
		return
	}
	r.bus.Publish(e)
}
