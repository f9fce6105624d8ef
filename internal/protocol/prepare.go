package protocol

import (
	"context"
	"sync"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
)

var defaultCodec = sync.OnceValues(func() (*Codec, error) {
	return NewCodec(context.Background())
})

// DefaultCodec returns a process-wide codec compiled on first use.
func DefaultCodec() (*Codec, error) {
	return defaultCodec()
}

func mustCodec() *Codec {
	c, err := defaultCodec()
	if err != nil {
		panic("protocol: compiling embedded schema: " + err.Error())
	}
	return c
}

func must(b []byte, err error) []byte {
	if err != nil {
		panic("protocol: " + err.Error())
	}
	return b
}

// PrepareSerializedReadEventSubscription returns the provider message that
// subscribes id to read events. timeMs is in milliseconds; 0 disables a threshold.
func PrepareSerializedReadEventSubscription(id, counter, timeMs, size int64) []byte {
	return prepareSubscription(id, v1.SubscriptionRead, counter, timeMs, size)
}

// PrepareSerializedWriteEventSubscription is the write counterpart of
// PrepareSerializedReadEventSubscription.
func PrepareSerializedWriteEventSubscription(id, counter, timeMs, size int64) []byte {
	return prepareSubscription(id, v1.SubscriptionWrite, counter, timeMs, size)
}

// PrepareSerializedFileAccessedEventSubscription subscribes id to open and release events.
func PrepareSerializedFileAccessedEventSubscription(id, counter, timeMs int64) []byte {
	return prepareSubscription(id, v1.SubscriptionFileAccessed, counter, timeMs, 0)
}

// PrepareSerializedFileRemovalEventSubscription subscribes id to file removals.
func PrepareSerializedFileRemovalEventSubscription(id, counter, timeMs int64) []byte {
	return prepareSubscription(id, v1.SubscriptionFileRemoval, counter, timeMs, 0)
}

func prepareSubscription(id int64, typ v1.SubscriptionType, counter, timeMs, size int64) []byte {
	return must(mustCodec().encodeSubscription(id, typ, counter, timeMs, size))
}

// PrepareSerializedEventSubscriptionCancellation returns the provider message cancelling id.
func PrepareSerializedEventSubscriptionCancellation(id int64) []byte {
	return must(mustCodec().EncodeCancellation(id))
}

// PrepareSerializedEvents returns the notification a subscription sends after
// aggregating events: merged per file and ordered by file UUID.
func PrepareSerializedEvents(subscriptionID int64, events ...v1.Event) []byte {
	merged := coreagg.Collapse(events...)
	SortEvents(merged)
	return must(mustCodec().EncodeEvents(subscriptionID, merged))
}

// PrepareSerializedRemoteEvents returns a provider message pushing events to
// the client on behalf of subscriptionID.
func PrepareSerializedRemoteEvents(subscriptionID int64, events ...v1.Event) []byte {
	return must(mustCodec().EncodeRemoteEvents(subscriptionID, events))
}
