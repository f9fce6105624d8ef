package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
	"github.com/aevon-lab/fsevents/internal/metrics"
	"github.com/aevon-lab/fsevents/internal/registry"
)

const (
	defaultPollResolution    = 50 * time.Millisecond
	defaultChannelBufferSize = 1024
)

// Sink receives flushes from the engine. Publish must not block.
type Sink interface {
	Publish(f coreagg.Flush)
}

// EngineOptions tune the engine loop.
type EngineOptions struct {
	// PollResolution is how often time thresholds are checked.
	PollResolution time.Duration
	// ChannelBufferSize bounds the command queue; producers block when it is full.
	ChannelBufferSize int
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o EngineOptions) normalized() EngineOptions {
	n := o
	if n.PollResolution <= 0 {
		n.PollResolution = defaultPollResolution
	}
	if n.ChannelBufferSize <= 0 {
		n.ChannelBufferSize = defaultChannelBufferSize
	}
	if n.Now == nil {
		n.Now = time.Now
	}
	return n
}

// SubscriptionState is a point-in-time view of an active subscription.
type SubscriptionState struct {
	Subscription v1.Subscription
	PendingCount int64
	PendingSize  int64
	PendingFiles int
	FirstEventAt time.Time
	CreatedAt    time.Time
}

type commandKind int

const (
	cmdEmit commandKind = iota
	cmdSubscribe
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind  commandKind
	event v1.Event
	sub   v1.Subscription
	id    int64
	reply chan result
}

type result struct {
	err    error
	states []SubscriptionState
}

// Engine applies events and subscription changes in arrival order on a single
// goroutine and publishes a flush whenever a subscription's threshold is met.
type Engine struct {
	reg  *registry.Registry
	sink Sink
	opts EngineOptions

	cmds chan command
	done chan struct{}

	// mu guards stopped. Producers hold it shared for the whole send so that
	// once stopped is set no command can still be on its way into cmds.
	mu      sync.RWMutex
	stopped bool
}

// NewEngine creates an engine over reg. Start must be called to process commands.
func NewEngine(reg *registry.Registry, sink Sink, opts EngineOptions) *Engine {
	opts = opts.normalized()
	return &Engine{
		reg:  reg,
		sink: sink,
		opts: opts,
		cmds: make(chan command, opts.ChannelBufferSize),
		done: make(chan struct{}),
	}
}

// Start runs the engine loop until ctx is cancelled. Commands already queued
// are applied and pending aggregates are flushed with the shutdown trigger
// before it returns.
func (e *Engine) Start(ctx context.Context) error {
	ticker := time.NewTicker(e.opts.PollResolution)
	defer ticker.Stop()

	slog.Info("[Engine] Starting aggregation engine",
		"poll_resolution", e.opts.PollResolution,
		"channel_buffer_size", e.opts.ChannelBufferSize,
	)

	for {
		select {
		case cmd := <-e.cmds:
			e.apply(cmd)
		case <-ticker.C:
			e.tick()
		case <-ctx.Done():
			slog.Info("[Engine] Stopping (context cancelled)")
			e.stop()
			e.drain()
			close(e.done)
			return nil
		}
	}
}

// stop closes the queue to producers. Commands keep being applied while it
// waits, since producers blocked on a full queue hold the lock.
func (e *Engine) stop() {
	locked := make(chan struct{})
	go func() {
		e.mu.Lock()
		e.stopped = true
		e.mu.Unlock()
		close(locked)
	}()

	for {
		select {
		case cmd := <-e.cmds:
			e.apply(cmd)
		case <-locked:
			return
		}
	}
}

// drain applies what is left in the queue and flushes pending aggregates.
// Nothing can be enqueued once stop has returned.
func (e *Engine) drain() {
drainLoop:
	for {
		select {
		case cmd := <-e.cmds:
			e.apply(cmd)
		default:
			break drainLoop
		}
	}

	now := e.opts.Now()
	flushed := 0
	for _, entry := range e.reg.Entries() {
		if !entry.Aggregate.Empty() {
			e.flush(entry, coreagg.TriggerShutdown, now)
			flushed++
		}
	}
	slog.Info("[Engine] Final drain complete", "flushed", flushed)
}

// Emit queues an event. It blocks while the queue is full.
func (e *Engine) Emit(ctx context.Context, ev v1.Event) error {
	return e.enqueue(ctx, command{kind: cmdEmit, event: ev})
}

// Subscribe activates sub and waits until it is registered, so events
// emitted afterwards are aggregated by it.
func (e *Engine) Subscribe(ctx context.Context, sub v1.Subscription) error {
	res, err := e.call(ctx, command{kind: cmdSubscribe, sub: sub})
	if err != nil {
		return err
	}
	return res.err
}

// Cancel removes a subscription, flushing anything it accumulated.
func (e *Engine) Cancel(ctx context.Context, id int64) error {
	res, err := e.call(ctx, command{kind: cmdCancel, id: id})
	if err != nil {
		return err
	}
	return res.err
}

// Snapshot returns the state of every active subscription once all
// previously queued commands have been applied.
func (e *Engine) Snapshot(ctx context.Context) ([]SubscriptionState, error) {
	res, err := e.call(ctx, command{kind: cmdSnapshot})
	if err != nil {
		return nil, err
	}
	return res.states, nil
}

// enqueue hands cmd to the loop. A nil error means the command will be
// applied, either by the loop or by the final drain.
func (e *Engine) enqueue(ctx context.Context, cmd command) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.stopped {
		return coreerrors.ErrEngineStopped
	}

	select {
	case e.cmds <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) call(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)
	if err := e.enqueue(ctx, cmd); err != nil {
		return result{}, err
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-e.done:
		// Accepted commands are answered before done closes.
		select {
		case res := <-cmd.reply:
			return res, nil
		default:
			return result{}, coreerrors.ErrEngineStopped
		}
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (e *Engine) apply(cmd command) {
	now := e.opts.Now()

	switch cmd.kind {
	case cmdEmit:
		e.handleEvent(cmd.event, now)
	case cmdSubscribe:
		cmd.reply <- result{err: e.handleSubscribe(cmd.sub, now)}
	case cmdCancel:
		cmd.reply <- result{err: e.handleCancel(cmd.id, now)}
	case cmdSnapshot:
		cmd.reply <- result{states: e.snapshot()}
	}
}

func (e *Engine) handleEvent(ev v1.Event, now time.Time) {
	typ, ok := ev.Type.SubscriptionType()
	if !ok {
		slog.Warn("[Engine] Dropping event of unknown type", "type", ev.Type, "file_uuid", ev.FileUUID)
		return
	}

	for _, entry := range e.reg.ActiveFor(typ) {
		entry.Aggregate.Add(ev, now)

		if ev.Type == v1.EventTruncate {
			e.flush(entry, coreagg.TriggerTruncate, now)
			continue
		}
		if trigger, ok := coreagg.Evaluate(entry.Subscription.Thresholds, entry.Aggregate, now); ok {
			e.flush(entry, trigger, now)
		}
	}
}

func (e *Engine) handleSubscribe(sub v1.Subscription, now time.Time) error {
	if _, err := e.reg.Add(sub, now); err != nil {
		metrics.SubscriptionsRejected.WithLabelValues(rejectReason(err)).Inc()
		return err
	}
	metrics.ActiveSubscriptions.WithLabelValues(string(sub.Type)).Inc()

	slog.Info("[Engine] Subscription added",
		"subscription_id", sub.ID,
		"type", sub.Type,
		"counter_threshold", sub.Thresholds.Counter,
		"time_threshold", sub.Thresholds.Time,
		"size_threshold", sub.Thresholds.Size,
	)
	return nil
}

func (e *Engine) handleCancel(id int64, now time.Time) error {
	entry, err := e.reg.Cancel(id)
	if err != nil {
		metrics.SubscriptionsRejected.WithLabelValues(rejectReason(err)).Inc()
		return err
	}
	metrics.ActiveSubscriptions.WithLabelValues(string(entry.Subscription.Type)).Dec()

	if !entry.Aggregate.Empty() {
		e.flush(entry, coreagg.TriggerCancellation, now)
	}

	slog.Info("[Engine] Subscription cancelled", "subscription_id", id)
	return nil
}

func (e *Engine) tick() {
	now := e.opts.Now()
	for _, entry := range e.reg.Entries() {
		if entry.Subscription.Thresholds.Time <= 0 {
			continue
		}
		if trigger, ok := coreagg.Evaluate(entry.Subscription.Thresholds, entry.Aggregate, now); ok {
			e.flush(entry, trigger, now)
		}
	}
}

func (e *Engine) flush(entry *registry.Entry, trigger coreagg.Trigger, now time.Time) {
	f := coreagg.NewFlush(entry.Subscription, entry.Aggregate, trigger, now)
	entry.Aggregate.Reset()

	metrics.Flushes.WithLabelValues(string(f.SubscriptionType), string(trigger)).Inc()
	slog.Debug("[Engine] Flush",
		"subscription_id", f.SubscriptionID,
		"trigger", trigger,
		"events", f.Count,
		"size", f.Size,
		"files", len(f.Events),
	)
	e.sink.Publish(f)
}

func (e *Engine) snapshot() []SubscriptionState {
	entries := e.reg.Entries()
	out := make([]SubscriptionState, len(entries))
	for i, entry := range entries {
		out[i] = SubscriptionState{
			Subscription: entry.Subscription,
			PendingCount: entry.Aggregate.Count,
			PendingSize:  entry.Aggregate.Size,
			PendingFiles: len(entry.Aggregate.Events()),
			FirstEventAt: entry.Aggregate.FirstEventAt,
			CreatedAt:    entry.CreatedAt,
		}
	}
	return out
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, coreerrors.ErrDuplicateSubscription):
		return "duplicate"
	case errors.Is(err, coreerrors.ErrUnknownSubscription):
		return "unknown"
	case errors.Is(err, coreerrors.ErrInvalidSubscription):
		return "invalid"
	default:
		return fmt.Sprintf("%T", err)
	}
}
