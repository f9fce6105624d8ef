// Package manager is the client-facing entry point: it emits file events into
// the aggregation engine and applies subscription changes pushed by the provider.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
	"github.com/aevon-lab/fsevents/internal/metrics"
	"github.com/aevon-lab/fsevents/internal/protocol"
)

// Engine is the aggregation engine as seen by the manager.
type Engine interface {
	Emit(ctx context.Context, ev v1.Event) error
	Subscribe(ctx context.Context, sub v1.Subscription) error
	Cancel(ctx context.Context, id int64) error
	Snapshot(ctx context.Context) ([]aggregation.SubscriptionState, error)
}

// MessageDecoder decodes provider messages.
type MessageDecoder interface {
	DecodeServerMessage(data []byte) (protocol.ServerMessage, error)
}

// RemoteEventsHandler receives events the provider pushes to the client.
type RemoteEventsHandler func(ctx context.Context, batch protocol.RemoteEvents)

// Manager emits events and handles subscription messages.
type Manager struct {
	engine  Engine
	decoder MessageDecoder
	now     func() time.Time
	remote  RemoteEventsHandler
}

// New creates a manager over engine.
func New(engine Engine, decoder MessageDecoder) *Manager {
	return &Manager{
		engine:  engine,
		decoder: decoder,
		now:     time.Now,
	}
}

// OnRemoteEvents sets the handler for provider-pushed events. It must be set
// before the transport starts delivering frames. Without a handler such
// events are counted and discarded.
func (m *Manager) OnRemoteEvents(h RemoteEventsHandler) {
	m.remote = h
}

// EmitReadEvent records a read of size bytes at offset.
func (m *Manager) EmitReadEvent(ctx context.Context, fileUUID string, offset, size int64) (v1.Event, error) {
	return m.Emit(ctx, v1.NewReadEvent(fileUUID, offset, size))
}

// EmitWriteEvent records a write of size bytes at offset; fileSize is the
// size of the file after the write.
func (m *Manager) EmitWriteEvent(ctx context.Context, fileUUID string, offset, size, fileSize int64) (v1.Event, error) {
	return m.Emit(ctx, v1.NewWriteEvent(fileUUID, offset, size, fileSize))
}

// EmitTruncateEvent records a truncate to fileSize.
func (m *Manager) EmitTruncateEvent(ctx context.Context, fileUUID string, fileSize int64) (v1.Event, error) {
	return m.Emit(ctx, v1.NewTruncateEvent(fileUUID, fileSize))
}

// EmitFileOpenedEvent records one open of the file.
func (m *Manager) EmitFileOpenedEvent(ctx context.Context, fileUUID string) (v1.Event, error) {
	return m.Emit(ctx, v1.NewFileOpenedEvent(fileUUID))
}

// EmitFileReleasedEvent records one release of the file.
func (m *Manager) EmitFileReleasedEvent(ctx context.Context, fileUUID string) (v1.Event, error) {
	return m.Emit(ctx, v1.NewFileReleasedEvent(fileUUID))
}

// EmitFileRemovalEvent records the removal of the file.
func (m *Manager) EmitFileRemovalEvent(ctx context.Context, fileUUID string) (v1.Event, error) {
	return m.Emit(ctx, v1.NewFileRemovalEvent(fileUUID))
}

// Emit validates ev, stamps it and hands it to the engine. The returned event
// is the one that was queued.
func (m *Manager) Emit(ctx context.Context, ev v1.Event) (v1.Event, error) {
	if err := ev.Validate(); err != nil {
		return v1.Event{}, fmt.Errorf("invalid %s event: %w", ev.Type, err)
	}
	if ev.EmittedAt.IsZero() {
		ev.EmittedAt = m.now().UTC()
	}

	if err := m.engine.Emit(ctx, ev); err != nil {
		return v1.Event{}, fmt.Errorf("emit %s event for %s: %w", ev.Type, ev.FileUUID, err)
	}
	metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	return ev, nil
}

// Subscribe activates sub.
func (m *Manager) Subscribe(ctx context.Context, sub v1.Subscription) error {
	return m.engine.Subscribe(ctx, sub)
}

// Unsubscribe cancels the subscription with the given ID.
func (m *Manager) Unsubscribe(ctx context.Context, id int64) error {
	return m.engine.Cancel(ctx, id)
}

// Subscriptions returns the active subscriptions with their pending state.
func (m *Manager) Subscriptions(ctx context.Context) ([]aggregation.SubscriptionState, error) {
	return m.engine.Snapshot(ctx)
}

// RegisterStatic subscribes everything listed by repo. A subscription that is
// already active is skipped.
func (m *Manager) RegisterStatic(ctx context.Context, repo coreagg.SubscriptionRepository) (int, error) {
	subs, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list static subscriptions: %w", err)
	}

	registered := 0
	for _, s := range subs {
		err := m.engine.Subscribe(ctx, s.Subscription)
		switch {
		case err == nil:
			registered++
			slog.Info("[Manager] Registered static subscription",
				"subscription_id", s.Subscription.ID,
				"source", s.Source,
				"fingerprint", s.Fingerprint,
			)
		case errors.Is(err, coreerrors.ErrDuplicateSubscription):
			slog.Warn("[Manager] Static subscription already active", "subscription_id", s.Subscription.ID, "source", s.Source)
		default:
			return registered, fmt.Errorf("register %s: %w", s.Source, err)
		}
	}
	return registered, nil
}

// HandleSubscription applies an encoded subscription message.
func (m *Manager) HandleSubscription(ctx context.Context, data []byte) error {
	msg, err := m.decode(data)
	if err != nil {
		return err
	}
	if msg.Subscription == nil {
		return m.malformed(fmt.Errorf("%w: expected a subscription", coreerrors.ErrMalformedMessage))
	}
	return m.Subscribe(ctx, *msg.Subscription)
}

// HandleCancellation applies an encoded cancellation message.
func (m *Manager) HandleCancellation(ctx context.Context, data []byte) error {
	msg, err := m.decode(data)
	if err != nil {
		return err
	}
	if msg.Cancellation == nil {
		return m.malformed(fmt.Errorf("%w: expected a subscription cancellation", coreerrors.ErrMalformedMessage))
	}
	return m.Unsubscribe(ctx, msg.Cancellation.SubscriptionID)
}

// HandleServerMessage applies any provider message.
func (m *Manager) HandleServerMessage(ctx context.Context, data []byte) error {
	msg, err := m.decode(data)
	if err != nil {
		return err
	}

	switch {
	case msg.Subscription != nil:
		return m.Subscribe(ctx, *msg.Subscription)
	case msg.Cancellation != nil:
		return m.Unsubscribe(ctx, msg.Cancellation.SubscriptionID)
	case msg.Events != nil:
		m.handleRemoteEvents(ctx, *msg.Events)
		return nil
	default:
		return m.malformed(fmt.Errorf("%w: empty message body", coreerrors.ErrMalformedMessage))
	}
}

// HandleFrame is the transport handler. Failures are logged and the frame is
// dropped; the connection is kept.
func (m *Manager) HandleFrame(ctx context.Context, frame []byte) {
	if err := m.HandleServerMessage(ctx, frame); err != nil {
		slog.Warn("[Manager] Dropping provider message", "bytes", len(frame), "error", err)
	}
}

func (m *Manager) handleRemoteEvents(ctx context.Context, batch protocol.RemoteEvents) {
	for _, e := range batch.Events {
		metrics.RemoteEvents.WithLabelValues(string(e.Type)).Inc()
	}
	if m.remote == nil {
		slog.Debug("[Manager] No handler for provider events", "subscription_id", batch.SubscriptionID, "events", len(batch.Events))
		return
	}
	m.remote(ctx, batch)
}

func (m *Manager) decode(data []byte) (protocol.ServerMessage, error) {
	msg, err := m.decoder.DecodeServerMessage(data)
	if err != nil {
		return protocol.ServerMessage{}, m.malformed(err)
	}
	return msg, nil
}

func (m *Manager) malformed(err error) error {
	metrics.MalformedMessages.Inc()
	return err
}
