package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/rl1809/tenant-catalog/internal/core/domain"
	"github.com/rl1809/tenant-catalog/internal/port"
)

var (
	ErrQueueFull        = errors.New("alert queue full")
	ErrDispatcherClosed = errors.New("alert dispatcher closed")
)

const deliveryTimeout = 5 * time.Second

// Dispatcher moves alert delivery off the inventory write path. Alerts are
// sharded by tenant and item onto per-worker queues, so one item's alerts
// are delivered in the order they were committed.
type Dispatcher struct {
	sink   port.AlertNotifier
	queues []chan domain.StockTransition
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink port.AlertNotifier, workerCount, queueSize int, logger zerolog.Logger) *Dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	d := &Dispatcher{
		sink:   sink,
		queues: make([]chan domain.StockTransition, workerCount),
		log:    logger.With().Str("component", "dispatcher").Logger(),
	}
	for i := range d.queues {
		d.queues[i] = make(chan domain.StockTransition, queueSize)
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id, d.queues[id])
		}(i)
	}
	d.log.Info().Int("workers", workerCount).Msg("alert dispatcher started")
	return d
}

// Notify enqueues without blocking the caller, which may hold an item lock.
func (d *Dispatcher) Notify(_ context.Context, event domain.StockTransition) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queues[d.shard(event)] <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) shard(event domain.StockTransition) int {
	h := xxhash.Sum64String(string(event.TenantID) + "/" + event.ItemID)
	return int(h % uint64(len(d.queues)))
}

// Close stops accepting alerts and waits until the queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info().Msg("alert dispatcher stopped")
}

func (d *Dispatcher) workerLoop(id int, queue <-chan domain.StockTransition) {
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)

		if err := d.sink.Notify(ctx, event); err != nil {
			d.log.Error().Err(err).
				Int("worker", id).
				Str("event_id", event.ID).
				Str("tenant_id", string(event.TenantID)).
				Str("item_id", event.ItemID).
				Msg("failed to deliver alert")
		} else {
			d.log.Debug().
				Int("worker", id).
				Str("event_id", event.ID).
				Msg("delivered alert")
		}

		cancel()
	}
}
