package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned by Enqueue when the buffer is full.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("notification dispatcher closed")

// Config controls dispatcher buffering and delivery.
type Config struct {
	BufferSize  int
	SendTimeout time.Duration
	// OnError is called from the worker goroutine for each failed delivery.
	OnError func(msg Message, err error)
}

// Dispatcher queues messages for asynchronous delivery.
type Dispatcher struct {
	cfg       Config
	notifier  Notifier
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	sent      atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64

	// mu is held shared by Enqueue and exclusively by Close, so no message
	// lands in the buffer after the worker's final drain.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher starts the worker goroutine. Close must be called to stop it.
func NewDispatcher(cfg Config, notifier Notifier) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		cfg:      cfg,
		notifier: notifier,
		ch:       make(chan Message, cfg.BufferSize),
		done:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, msg); err != nil {
		d.failed.Add(1)
		if d.cfg.OnError != nil {
			d.cfg.OnError(msg, err)
		}
		return
	}
	d.sent.Add(1)
}

// Enqueue queues msg without blocking. A nil return means the worker will
// attempt delivery, even if Close is called right after.
func (d *Dispatcher) Enqueue(msg Message) error {
	if d == nil {
		return ErrClosed
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.ch <- msg:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.done)
		d.wg.Wait()
	})
}

// Stats reports delivery counters.
func (d *Dispatcher) Stats() (sent, failed, dropped uint64) {
	if d == nil {
		return 0, 0, 0
	}
	return d.sent.Load(), d.failed.Load(), d.dropped.Load()
}
