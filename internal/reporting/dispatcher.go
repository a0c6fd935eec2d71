package reporting

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultTimeout = 15 * time.Second

// Dispatcher fans payloads out to sinks without blocking the caller
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch starts one delivery per sink and returns immediately
func (d *Dispatcher) Dispatch(p Payload) {
	for _, sink := range d.sinks {
		d.wg.Add(1)
		go d.deliver(sink, p)
	}
}

func (d *Dispatcher) deliver(sink Sink, p Payload) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Result sink panicked", "sink", sink.Name(), "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	if err := sink.Send(ctx, p); err != nil {
		d.logger.Error("Failed to deliver result",
			"sink", sink.Name(),
			"test_type", p.TestType,
			"student_id", p.StudentID,
			"error", err)
		return
	}
	d.logger.Info("Result delivered",
		"sink", sink.Name(),
		"test_type", p.TestType,
		"duration", time.Since(start))
}

// Wait blocks until every started delivery has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Sinks() int {
	return len(d.sinks)
}
