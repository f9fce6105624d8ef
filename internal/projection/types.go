package projection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// FlushView is one journaled flush as returned by the API.
type FlushView struct {
	ID               uuid.UUID  `json:"id"`
	SubscriptionID   int64      `json:"subscription_id"`
	SubscriptionType string     `json:"subscription_type"`
	Trigger          string     `json:"trigger"`
	EventCount       int64      `json:"event_count"`
	TotalSize        int64      `json:"total_size"`
	Files            int        `json:"files"`
	Delivered        bool       `json:"delivered"`
	FirstEventAt     time.Time  `json:"first_event_at"`
	FlushedAt        time.Time  `json:"flushed_at"`
	Events           []v1.Event `json:"events,omitempty"`
}

// FlushListResponse is the response of a subscription history query.
type FlushListResponse struct {
	SubscriptionID int64       `json:"subscription_id"`
	Limit          int         `json:"limit"`
	Flushes        []FlushView `json:"flushes"`
}

// TriggerShare is the part of a subscription's flushes caused by one trigger.
type TriggerShare struct {
	Trigger string          `json:"trigger"`
	Flushes int64           `json:"flushes"`
	Share   decimal.Decimal `json:"share"`
}

// SummaryResponse aggregates the journal of one subscription.
type SummaryResponse struct {
	SubscriptionID    int64           `json:"subscription_id"`
	Flushes           int64           `json:"flushes"`
	Delivered         int64           `json:"delivered"`
	Undelivered       int64           `json:"undelivered"`
	Events            int64           `json:"events"`
	TotalSize         int64           `json:"total_size"`
	AvgEventsPerFlush decimal.Decimal `json:"avg_events_per_flush"`
	AvgSizePerFlush   decimal.Decimal `json:"avg_size_per_flush"`
	DeliveryRatio     decimal.Decimal `json:"delivery_ratio"`
	Triggers          []TriggerShare  `json:"triggers"`
	FirstFlushAt      *time.Time      `json:"first_flush_at,omitempty"`
	LastFlushAt       *time.Time      `json:"last_flush_at,omitempty"`
	StalenessSeconds  int             `json:"staleness_seconds"`
}

// FileFlushView is one file's share of a flush.
type FileFlushView struct {
	FlushID        uuid.UUID `json:"flush_id"`
	SubscriptionID int64     `json:"subscription_id"`
	PartitionID    int       `json:"partition_id"`
	Counter        int64     `json:"counter"`
	Size           int64     `json:"size"`
	FlushedAt      time.Time `json:"flushed_at"`
}

// SubscriptionTotal sums a file's flushes for one subscription.
type SubscriptionTotal struct {
	SubscriptionID int64 `json:"subscription_id"`
	Flushes        int64 `json:"flushes"`
	Counter        int64 `json:"counter"`
	Size           int64 `json:"size"`
}

// FileHistoryResponse is the response of a file history query.
type FileHistoryResponse struct {
	FileUUID    string              `json:"file_uuid"`
	PartitionID int                 `json:"partition_id"`
	Limit       int                 `json:"limit"`
	Flushes     []FileFlushView     `json:"flushes"`
	Totals      []SubscriptionTotal `json:"totals"`
}
