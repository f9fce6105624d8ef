package aggregation

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	"github.com/aevon-lab/fsevents/internal/core/storage"
	"github.com/aevon-lab/fsevents/internal/metrics"
)

const (
	defaultDispatchBufferSize = 4096
	shutdownDeliveryTimeout   = 30 * time.Second
)

// FlushEncoder serializes a flush into the wire message sent to the provider.
type FlushEncoder interface {
	EncodeFlush(f coreagg.Flush) ([]byte, error)
}

// Sender delivers one encoded message to the provider.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// FlushJournal records flushes after delivery.
type FlushJournal interface {
	SaveFlush(ctx context.Context, record *storage.FlushRecord) error
}

// Dispatcher decouples the engine from the provider connection. Flushes are
// buffered and delivered in publish order by Run.
type Dispatcher struct {
	encoder FlushEncoder
	sender  Sender
	journal FlushJournal

	queue   chan coreagg.Flush
	dropped atomic.Int64

	mu     sync.Mutex
	closed bool
}

// DispatchStats describes the delivery queue.
type DispatchStats struct {
	Queued   int   `json:"queued"`
	Capacity int   `json:"buffer_size"`
	Dropped  int64 `json:"dropped"`
}

// NewDispatcher creates a dispatcher. journal may be nil.
func NewDispatcher(encoder FlushEncoder, sender Sender, journal FlushJournal, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultDispatchBufferSize
	}
	return &Dispatcher{
		encoder: encoder,
		sender:  sender,
		journal: journal,
		queue:   make(chan coreagg.Flush, bufferSize),
	}
}

// Publish queues f for delivery. It never blocks: when the buffer is full or
// the dispatcher is closed the flush is dropped.
func (d *Dispatcher) Publish(f coreagg.Flush) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		slog.Warn("[Dispatcher] Dropping flush after close", "flush_id", f.ID, "subscription_id", f.SubscriptionID)
		d.drop()
		return
	}

	select {
	case d.queue <- f:
	default:
		slog.Warn("[Dispatcher] Buffer full, dropping flush",
			"flush_id", f.ID,
			"subscription_id", f.SubscriptionID,
			"events", f.Count,
		)
		d.drop()
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	metrics.FlushesDropped.Inc()
}

// Stats reports the queue depth, its capacity and how many flushes were dropped.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Queued:   len(d.queue),
		Capacity: cap(d.queue),
		Dropped:  d.dropped.Load(),
	}
}

// Close stops accepting flushes. Run returns once the buffer is empty.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Run delivers flushes until Close is called and the buffer is drained.
// Once ctx is cancelled the remaining flushes are delivered with a bounded
// background context so shutdown flushes still reach the provider.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("[Dispatcher] Starting flush dispatcher", "buffer_size", cap(d.queue))

	deliverCtx := ctx
	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	delivered := 0
	for f := range d.queue {
		if cancel == nil && deliverCtx.Err() != nil {
			deliverCtx, cancel = context.WithTimeout(context.Background(), shutdownDeliveryTimeout)
			slog.Info("[Dispatcher] Context cancelled, delivering remaining flushes", "pending", len(d.queue)+1)
		}
		d.deliver(deliverCtx, f)
		delivered++
	}

	slog.Info("[Dispatcher] Stopped", "delivered", delivered)
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, f coreagg.Flush) {
	payload, err := d.encoder.EncodeFlush(f)
	if err != nil {
		slog.Error("[Dispatcher] Failed to encode flush", "flush_id", f.ID, "error", err)
		metrics.SendFailures.Inc()
		d.record(ctx, f, false)
		return
	}

	timer := metrics.NewTimer()
	err = d.sender.Send(ctx, payload)
	timer.ObserveDuration(metrics.FlushSendDuration)

	if err != nil {
		slog.Error("[Dispatcher] Failed to deliver flush",
			"flush_id", f.ID,
			"subscription_id", f.SubscriptionID,
			"trigger", f.Trigger,
			"error", err,
		)
		metrics.SendFailures.Inc()
		d.record(ctx, f, false)
		return
	}

	d.record(ctx, f, true)
}

func (d *Dispatcher) record(ctx context.Context, f coreagg.Flush, delivered bool) {
	if d.journal == nil {
		return
	}
	if err := d.journal.SaveFlush(ctx, storage.NewFlushRecord(f, delivered)); err != nil {
		slog.Error("[Dispatcher] Failed to journal flush", "flush_id", f.ID, "error", err)
		metrics.JournalFailures.Inc()
	}
}
