package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
)

// ErrDuplicate is returned when a flush with the same ID is already journaled.
var ErrDuplicate = errors.New("flush already recorded")

// FlushRecord is the journaled form of one aggregated notification.
type FlushRecord struct {
	ID               uuid.UUID
	SubscriptionID   int64
	SubscriptionType string
	Trigger          string
	EventCount       int64
	TotalSize        int64
	Events           []v1.Event
	Delivered        bool
	FirstEventAt     time.Time
	FlushedAt        time.Time
}

// NewFlushRecord converts a flush; delivered reports whether the provider received it.
func NewFlushRecord(f coreagg.Flush, delivered bool) *FlushRecord {
	return &FlushRecord{
		ID:               f.ID,
		SubscriptionID:   f.SubscriptionID,
		SubscriptionType: string(f.SubscriptionType),
		Trigger:          string(f.Trigger),
		EventCount:       f.Count,
		TotalSize:        f.Size,
		Events:           f.Events,
		Delivered:        delivered,
		FirstEventAt:     f.FirstEventAt,
		FlushedAt:        f.FlushedAt,
	}
}

// FileFlush is one file's share of a journaled flush.
type FileFlush struct {
	FlushID        uuid.UUID
	SubscriptionID int64
	PartitionID    int
	FileUUID       string
	Counter        int64
	Size           int64
	FlushedAt      time.Time
}

// FlushSummary aggregates the journal of one subscription.
type FlushSummary struct {
	SubscriptionID int64
	Flushes        int64
	Delivered      int64
	Events         int64
	TotalSize      int64
	FirstFlushAt   *time.Time
	LastFlushAt    *time.Time
	ByTrigger      map[string]int64
}

// FlushStore journals flushes and answers history queries about them.
type FlushStore interface {
	// SaveFlush records a flush and one row per file it covers, atomically.
	// Returns ErrDuplicate if the flush ID was already recorded.
	SaveFlush(ctx context.Context, record *FlushRecord) error

	// ListFlushes returns the most recent flushes of a subscription, newest first.
	ListFlushes(ctx context.Context, subscriptionID int64, limit int) ([]FlushRecord, error)

	// SummarizeSubscription returns totals over every journaled flush of a subscription.
	SummarizeSubscription(ctx context.Context, subscriptionID int64) (*FlushSummary, error)

	// ListFileFlushes returns the most recent flushes touching a file, newest first.
	ListFileFlushes(ctx context.Context, fileUUID string, limit int) ([]FileFlush, error)
}
