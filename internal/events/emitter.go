package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/metrics"
)

type Options struct {
	Buffer  int
	Workers int
	// Timeout bounds each sink call.
	Timeout time.Duration
}

type envelope struct {
	event  Event
	logger *slog.Logger
}

// Emitter delivers events to every sink from a fixed worker pool. A full
// queue drops the event; producers never wait on sinks.
type Emitter struct {
	queue   chan envelope
	sinks   []Sink
	workers int
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	start  sync.Once
}

func NewEmitter(opts Options, sinks ...Sink) *Emitter {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}

	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Emitter{
		queue:   make(chan envelope, opts.Buffer),
		sinks:   sinks,
		workers: opts.Workers,
		timeout: opts.Timeout,
	}
}

func (e *Emitter) Start() {
	e.start.Do(func() {
		for range e.workers {
			e.wg.Add(1)

			go e.run()
		}
	})
}

// Emit implements Dispatcher.
func (e *Emitter) Emit(ctx context.Context, event Event) bool {
	logger := middleware.LoggerFromContext(ctx)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		logger.Warn("Emitter closed, dropping event", slog.String("event_type", string(event.Type)), slog.String("order_number", event.OrderNumber))
		metrics.EventEmitted(string(event.Type), "dropped")

		return false
	}

	select {
	case e.queue <- envelope{event: event, logger: logger}:
		return true
	default:
		logger.Warn("Event queue full, dropping event", slog.String("event_type", string(event.Type)), slog.String("order_number", event.OrderNumber))
		metrics.EventEmitted(string(event.Type), "dropped")

		return false
	}
}

func (e *Emitter) run() {
	defer e.wg.Done()

	for env := range e.queue {
		e.deliver(env)
	}
}

func (e *Emitter) deliver(env envelope) {
	for _, sink := range e.sinks {
		ctx, cancel := context.WithTimeout(middleware.WithLogger(context.Background(), env.logger), e.timeout)

		err := safeHandle(ctx, sink, env.event)

		cancel()

		if err != nil {
			env.logger.Error("Event sink failed",
				slog.String("sink", sink.Name()),
				slog.String("event_type", string(env.event.Type)),
				slog.String("order_number", env.event.OrderNumber),
				slog.String("error", err.Error()))
			metrics.EventEmitted(string(env.event.Type), "failed")

			continue
		}

		metrics.EventEmitted(string(env.event.Type), "delivered")
	}
}

// safeHandle keeps a panicking sink from taking a worker down.
func safeHandle(ctx context.Context, sink Sink, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &sinkPanic{sink: sink.Name(), value: r}
		}
	}()

	return sink.Handle(ctx, event)
}

// Close stops intake and waits for queued events to drain or ctx to expire.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	// workers that never started cannot drain the queue
	e.Start()

	done := make(chan struct{})

	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
