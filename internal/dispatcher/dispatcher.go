// Package dispatcher routes simulation feedback events (state switches,
// navigation milestones) to the handlers registered by the front end.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is a feedback notification raised by the simulation core.
type Event struct {
	Kind      string
	Data      any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// ErrClosed is returned for events dispatched after Close.
var ErrClosed = errors.New("dispatcher closed")

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	buffers  map[string]chan Event
	workers  sync.WaitGroup
	done     chan struct{}
	closed   bool
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		done:     make(chan struct{}),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for kind, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("kind", kind)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event kind with optional configuration.
func (d *Dispatcher) Register(kind string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(kind, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(kind, handler)
	}

	d.mu.Lock()
	d.handlers[kind] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Kind]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("unknown event kind: %s", e.Kind)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// Publish dispatches an event of kind with data. Kinds nobody listens to are
// ignored.
func (d *Dispatcher) Publish(kind string, data any) {
	if !d.HasHandler(kind) {
		return
	}
	if _, err := d.Dispatch(Event{Kind: kind, Data: data}); err != nil {
		if errors.Is(err, ErrClosed) {
			return
		}
		d.logger.Error("publish failed", "kind", kind, "error", err)
	}
}

// HasHandler returns true if a handler is registered for the kind.
func (d *Dispatcher) HasHandler(kind string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[kind]
	return ok
}

// Close stops accepting events and waits for buffered handlers to drain the
// events already queued. It is safe to call while other goroutines publish;
// their events are rejected with ErrClosed or dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()
	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(kind string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[kind] = buffer
	d.mu.Unlock()

	kindAttr := attribute.String("kind", kind)

	handle := func(e Event) {
		if _, err := h(e); err != nil {
			d.logger.Error("buffered handler failed", "kind", kind, "error", err)
		}
		d.processed.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
	}

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for {
			select {
			case e := <-buffer:
				handle(e)
			case <-d.done:
				for {
					select {
					case e := <-buffer:
						handle(e)
					default:
						return
					}
				}
			}
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			select {
			case buffer <- e:
				return "queued", nil
			case <-d.done:
				return nil, ErrClosed
			}
		}
	}

	return func(e Event) (any, error) {
		select {
		case <-d.done:
			return nil, ErrClosed
		default:
		}
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(kindAttr))
			return nil, fmt.Errorf("queue full: %s", kind)
		}
	}
}

func (d *Dispatcher) withLogging(kind string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "kind", kind)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "kind", kind, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "kind", kind, "duration", time.Since(start))
		}

		return result, err
	}
}
