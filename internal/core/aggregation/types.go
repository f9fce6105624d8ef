package aggregation

import (
	"time"

	"github.com/google/uuid"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// Trigger names what caused a flush.
type Trigger string

const (
	TriggerCounter      Trigger = "counter"
	TriggerSize         Trigger = "size"
	TriggerTime         Trigger = "time"
	TriggerTruncate     Trigger = "truncate"
	TriggerCancellation Trigger = "cancellation"
	TriggerShutdown     Trigger = "shutdown"
)

// Flush is one aggregated notification for a subscription.
// Events holds one merged event per file, sorted by file UUID.
type Flush struct {
	ID               uuid.UUID
	SubscriptionID   int64
	SubscriptionType v1.SubscriptionType
	Trigger          Trigger
	Events           []v1.Event
	Count            int64 // raw events merged into this flush
	Size             int64 // accumulated size of those events
	FirstEventAt     time.Time
	FlushedAt        time.Time
}

// NewFlush snapshots agg into a Flush for sub. The aggregate is not reset.
func NewFlush(sub v1.Subscription, agg *Aggregate, trigger Trigger, now time.Time) Flush {
	return Flush{
		ID:               uuid.New(),
		SubscriptionID:   sub.ID,
		SubscriptionType: sub.Type,
		Trigger:          trigger,
		Events:           agg.Events(),
		Count:            agg.Count,
		Size:             agg.Size,
		FirstEventAt:     agg.FirstEventAt,
		FlushedAt:        now,
	}
}
