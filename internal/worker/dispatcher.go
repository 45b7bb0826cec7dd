// Package worker runs background delivery of change events.
package worker

import (
	"context"
	"sync"
	"time"

	"neurema-cms/internal/events"
	"neurema-cms/internal/logger"
	"neurema-cms/internal/models"
)

const deliveryTimeout = 5 * time.Second

// Dispatcher queues change events and hands them to the next publisher from
// a fixed set of worker goroutines, so request handlers never wait on
// delivery. Events are dropped with a warning when the queue is full.
type Dispatcher struct {
	next        events.Publisher
	queue       chan models.ChangeEvent
	workerCount int
	log         *logger.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

func NewDispatcher(next events.Publisher, workerCount, queueSize int, log *logger.Logger) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Dispatcher{
		next:        next,
		queue:       make(chan models.ChangeEvent, queueSize),
		workerCount: workerCount,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Info("event dispatcher started", "workers", d.workerCount)
}

// Stop delivers the events already queued and waits for the workers.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
	d.wg.Wait()
}

// Publish enqueues ev. The request context is not carried over since
// delivery outlives the request.
func (d *Dispatcher) Publish(_ context.Context, ev models.ChangeEvent) {
	select {
	case <-d.stopChan:
		d.log.Warn("event dispatcher stopped, dropping change event", "collection", ev.Collection)
		return
	default:
	}

	select {
	case d.queue <- ev:
	default:
		d.log.Warn("event queue full, dropping change event", "collection", ev.Collection, "action", ev.Action)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stopChan:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					d.log.Debug("event worker shutting down", "worker", id)
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev models.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	d.next.Publish(ctx, ev)
}
