package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/authcore/internal/logging"
)

// dropLogEvery throttles the "audit event dropped" warning under sustained
// pressure. The first drop is always logged.
const dropLogEvery = 1000

// Config controls buffering. With DropIfFull unset, Emit blocks until the
// worker frees a slot or the caller's context ends.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Logger reports dropped events and the final flush. Optional.
	Logger logging.Logger
}

// Dispatcher hands events from the request path to a Sink on one worker
// goroutine, so a slow sink (file, SIEM forwarder) never holds up a login.
//
// The engine emits login_*, refresh_*, signup_*, logout,
// email_verification_*, role_change, account_status_change,
// profile_update, password_change_* and authorize_denied events.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan Event
	stop    chan struct{}
	worker  sync.WaitGroup
	flushed atomic.Uint64
	dropped atomic.Uint64

	// gate orders Emit against Close: emitters hold it shared while
	// sending, Close takes it exclusively before stopping the worker.
	gate      sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher returns nil when auditing is disabled. A nil *Dispatcher is
// safe to use.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}

	d.worker.Add(1)
	go d.loop()

	return d
}

func (d *Dispatcher) loop() {
	defer d.worker.Done()

	for {
		select {
		case event := <-d.queue:
			d.forward(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.forward(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) forward(event Event) {
	d.sink.Emit(context.Background(), event)
	d.flushed.Add(1)
}

// Emit queues event. Events emitted after Close are discarded.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(ctx, event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(ctx, event)
	}
}

func (d *Dispatcher) drop(ctx context.Context, event Event) {
	n := d.dropped.Add(1)
	if d.cfg.Logger != nil && (n == 1 || n%dropLogEvery == 0) {
		d.cfg.Logger.Warn(ctx, "audit event dropped", "event_type", event.EventType, "identity", event.Identity, "dropped_total", n)
	}
}

// Close stops accepting events and waits until every queued one has reached
// the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.gate.Lock()
		d.closed = true
		d.gate.Unlock()

		close(d.stop)
		d.worker.Wait()

		if d.cfg.Logger != nil {
			d.cfg.Logger.Info(context.Background(), "audit dispatcher closed", "flushed", d.flushed.Load(), "dropped", d.dropped.Load())
		}
	})
}

// Dropped reports how many events never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Flushed reports how many events the sink has received.
func (d *Dispatcher) Flushed() uint64 {
	if d == nil {
		return 0
	}
	return d.flushed.Load()
}
