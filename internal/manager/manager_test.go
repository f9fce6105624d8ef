package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aevon-lab/fsevents/internal/aggregation"
	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
	"github.com/aevon-lab/fsevents/internal/protocol"
	"github.com/aevon-lab/fsevents/internal/registry"
)

type discardSink struct{}

func (discardSink) Publish(coreagg.Flush) {}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	codec, err := protocol.DefaultCodec()
	require.NoError(t, err)

	engine := aggregation.NewEngine(registry.New(), discardSink{}, aggregation.EngineOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = engine.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return New(engine, codec)
}

func TestManager_EmitReturnsQueuedEvent(t *testing.T) {
	m := newTestManager(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }
	ctx := context.Background()

	ev, err := m.EmitReadEvent(ctx, "file-a", 4, 10)
	require.NoError(t, err)
	require.Equal(t, v1.EventRead, ev.Type)
	require.Equal(t, int64(4), ev.Offset)
	require.Equal(t, int64(10), ev.Size)
	require.Equal(t, fixed, ev.EmittedAt)

	ev, err = m.EmitWriteEvent(ctx, "file-a", 0, 10, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), *ev.FileSize)

	ev, err = m.EmitTruncateEvent(ctx, "file-a", 3)
	require.NoError(t, err)
	require.Equal(t, v1.EventTruncate, ev.Type)
	require.Equal(t, int64(3), *ev.FileSize)

	ev, err = m.EmitFileOpenedEvent(ctx, "file-a")
	require.NoError(t, err)
	require.Equal(t, int64(1), ev.OpenCount)

	ev, err = m.EmitFileReleasedEvent(ctx, "file-a")
	require.NoError(t, err)
	require.Equal(t, int64(1), ev.ReleaseCount)

	ev, err = m.EmitFileRemovalEvent(ctx, "file-a")
	require.NoError(t, err)
	require.Equal(t, v1.EventFileRemoval, ev.Type)
	require.Equal(t, "file-a", ev.FileUUID)
}

func TestManager_EmitRejectsInvalidEvent(t *testing.T) {
	m := newTestManager(t)

	_, err := m.EmitReadEvent(context.Background(), "", 0, 10)
	require.ErrorContains(t, err, "file_uuid is required")

	_, err = m.EmitWriteEvent(context.Background(), "file-a", -1, 10, 10)
	require.ErrorContains(t, err, "offset must be >= 0")
}

func TestManager_HandleServerMessage(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedReadEventSubscription(1, 5, 100, 0)))
	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedFileAccessedEventSubscription(2, 0, 250)))

	states, err := m.Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.Equal(t, v1.Subscription{
		ID:         1,
		Type:       v1.SubscriptionRead,
		Thresholds: v1.Thresholds{Counter: 5, Time: 100 * time.Millisecond},
	}, states[0].Subscription)
	require.Equal(t, v1.SubscriptionFileAccessed, states[1].Subscription.Type)

	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedEventSubscriptionCancellation(1)))
	states, err = m.Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)

	err = m.HandleServerMessage(ctx, protocol.PrepareSerializedEventSubscriptionCancellation(1))
	require.ErrorIs(t, err, coreerrors.ErrUnknownSubscription)
}

func TestManager_HandleTypedMessages(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	sub := protocol.PrepareSerializedWriteEventSubscription(3, 1, 0, 0)
	cancel := protocol.PrepareSerializedEventSubscriptionCancellation(3)

	err := m.HandleCancellation(ctx, sub)
	require.ErrorIs(t, err, coreerrors.ErrMalformedMessage)

	require.NoError(t, m.HandleSubscription(ctx, sub))
	require.ErrorIs(t, m.HandleSubscription(ctx, sub), coreerrors.ErrDuplicateSubscription)

	err = m.HandleSubscription(ctx, cancel)
	require.ErrorIs(t, err, coreerrors.ErrMalformedMessage)
	require.NoError(t, m.HandleCancellation(ctx, cancel))
}

func TestManager_MalformedMessagesAreDropped(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	require.ErrorIs(t, m.HandleServerMessage(ctx, []byte{0xff, 0xff, 0xff}), coreerrors.ErrMalformedMessage)
	require.ErrorIs(t, m.HandleServerMessage(ctx, nil), coreerrors.ErrMalformedMessage)

	require.NotPanics(t, func() { m.HandleFrame(ctx, []byte{0x01}) })

	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedReadEventSubscription(1, 1, 0, 0)))
}

func TestManager_OutOfRangeTimeThresholdIsNotRegistered(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, ms := range []int64{10_000_000_000_000, 288230376151711944} {
		err := m.HandleServerMessage(ctx, protocol.PrepareSerializedReadEventSubscription(1, 0, ms, 0))
		require.ErrorIs(t, err, coreerrors.ErrMalformedMessage, "time_threshold=%dms", ms)
	}

	states, err := m.Subscriptions(ctx)
	require.NoError(t, err)
	require.Empty(t, states)
}

func TestManager_RemoteEvents(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	// Without a handler the message is accepted and discarded.
	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedRemoteEvents(4, v1.NewFileRemovalEvent("f"))))

	var got []protocol.RemoteEvents
	m.OnRemoteEvents(func(_ context.Context, batch protocol.RemoteEvents) {
		got = append(got, batch)
	})

	require.NoError(t, m.HandleServerMessage(ctx, protocol.PrepareSerializedRemoteEvents(4,
		v1.NewFileRemovalEvent("f"),
		v1.NewFileRemovalEvent("g"),
	)))
	require.Len(t, got, 1)
	require.Equal(t, int64(4), got[0].SubscriptionID)
	require.Equal(t, []v1.Event{
		{Type: v1.EventFileRemoval, FileUUID: "f"},
		{Type: v1.EventFileRemoval, FileUUID: "g"},
	}, got[0].Events)

	// Provider events never reach local aggregation.
	states, err := m.Subscriptions(ctx)
	require.NoError(t, err)
	require.Empty(t, states)
}

func TestManager_RegisterStatic(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	write("reads.yaml", "id: 100\nevent_type: read\ncounter_threshold: 10\ntime_threshold: 1s\n")
	write("writes.yaml", "id: 101\nevent_type: write\nsize_threshold: 4096\n")

	repo, err := coreagg.NewFileSystemSubscriptionRepository(dir)
	require.NoError(t, err)

	m := newTestManager(t)
	ctx := context.Background()

	n, err := m.RegisterStatic(ctx, repo)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = m.RegisterStatic(ctx, repo)
	require.NoError(t, err)
	require.Zero(t, n)

	states, err := m.Subscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.Equal(t, time.Second, states[0].Subscription.Thresholds.Time)
	require.Equal(t, int64(4096), states[1].Subscription.Thresholds.Size)
}
