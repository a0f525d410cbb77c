package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gammazero/workerpool"

	"github.com/rl1809/apartment-sales/internal/core/domain"
	"github.com/rl1809/apartment-sales/internal/port"
)

var (
	ErrQueueFull      = errors.New("event queue is full")
	ErrNotifierClosed = errors.New("event notifier is closed")
)

const defaultSendTimeout = 10 * time.Second

type Config struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

type envelope struct {
	ctx   context.Context
	event domain.Event
}

// Dispatcher decouples event delivery from the request path. Notify only
// enqueues; a dispatch loop hands queued events to a worker pool that calls
// the sender. At most Workers events are in the pool at once, so a slow
// sender backs up into the queue and Notify reports ErrQueueFull.
// Delivery is at most once.
type Dispatcher struct {
	sender      port.EventSender
	logger      port.LoggerPort
	sendTimeout time.Duration

	queue chan envelope
	pool  *workerpool.WorkerPool
	slots chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg Config, sender port.EventSender, logger port.LoggerPort) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	return &Dispatcher{
		sender:      sender,
		logger:      logger,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan envelope, cfg.QueueSize),
		pool:        workerpool.New(cfg.Workers),
		slots:       make(chan struct{}, cfg.Workers),
	}
}

// Notify never blocks. The caller's cancellation does not reach delivery.
func (d *Dispatcher) Notify(ctx context.Context, event domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrNotifierClosed
	}

	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()
	for env := range d.queue {
		env := env
		d.slots <- struct{}{}
		d.pool.Submit(func() {
			defer func() { <-d.slots }()
			d.deliver(env)
		})
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx, cancel := context.WithTimeout(env.ctx, d.sendTimeout)
	defer cancel()

	fields := port.Fields{
		"event_type":   env.event.Type(),
		"aggregate_id": env.event.AggregateID(),
	}
	if err := d.sender.Send(ctx, env.event); err != nil {
		d.logger.Error("failed to deliver event", err, fields)
		return
	}
	d.logger.Debug("event delivered", fields)
}

// Close rejects new events, drains the queue and waits for in-flight sends.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.pool.StopWait()
}
