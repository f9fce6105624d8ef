package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
)

func readSub(id int64) v1.Subscription {
	return v1.Subscription{ID: id, Type: v1.SubscriptionRead, Thresholds: v1.Thresholds{Counter: 1}}
}

func TestRegistry_AddAndCancel(t *testing.T) {
	r := New()
	now := time.Now()

	e, err := r.Add(readSub(1), now)
	require.NoError(t, err)
	assert.Equal(t, now, e.CreatedAt)
	assert.True(t, e.Aggregate.Empty())
	assert.Equal(t, 1, r.Len())

	_, err = r.Add(readSub(1), now)
	require.ErrorIs(t, err, coreerrors.ErrDuplicateSubscription)

	got, err := r.Cancel(1)
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.ActiveFor(v1.SubscriptionRead))

	_, err = r.Cancel(1)
	require.ErrorIs(t, err, coreerrors.ErrUnknownSubscription)
}

func TestRegistry_ReuseCancelledID(t *testing.T) {
	r := New()
	first, err := r.Add(readSub(5), time.Now())
	require.NoError(t, err)
	first.Aggregate.Add(v1.NewReadEvent("f", 0, 10), time.Now())

	_, err = r.Cancel(5)
	require.NoError(t, err)

	second, err := r.Add(readSub(5), time.Now())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.True(t, second.Aggregate.Empty())
}

func TestRegistry_Invalid(t *testing.T) {
	r := New()
	_, err := r.Add(v1.Subscription{ID: 1, Type: v1.SubscriptionRead, Thresholds: v1.Thresholds{Size: -1}}, time.Now())
	require.ErrorIs(t, err, coreerrors.ErrInvalidSubscription)

	_, err = r.Add(v1.Subscription{ID: 2, Type: "rename"}, time.Now())
	require.ErrorIs(t, err, coreerrors.ErrInvalidSubscription)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ActiveForByType(t *testing.T) {
	r := New()
	for _, sub := range []v1.Subscription{
		readSub(3),
		{ID: 1, Type: v1.SubscriptionWrite},
		readSub(2),
		{ID: 4, Type: v1.SubscriptionFileAccessed},
	} {
		_, err := r.Add(sub, time.Now())
		require.NoError(t, err)
	}

	reads := r.ActiveFor(v1.SubscriptionRead)
	require.Len(t, reads, 2)
	assert.Equal(t, int64(2), reads[0].Subscription.ID)
	assert.Equal(t, int64(3), reads[1].Subscription.ID)

	writes := r.ActiveFor(v1.SubscriptionWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, int64(1), writes[0].Subscription.ID)

	ids := make([]int64, 0)
	for _, s := range r.List() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	e, ok := r.Get(4)
	require.True(t, ok)
	assert.Equal(t, v1.SubscriptionFileAccessed, e.Subscription.Type)
	_, ok = r.Get(99)
	assert.False(t, ok)
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			_, _ = r.Add(readSub(id), time.Now())
		}(i)
		go func() {
			defer wg.Done()
			_ = r.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, r.Len())
}
