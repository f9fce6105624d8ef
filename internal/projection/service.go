package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aevon-lab/fsevents/internal/core/partition"
	"github.com/aevon-lab/fsevents/internal/core/storage"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
	averageScale = 4
)

var (
	// ErrInvalidQuery marks request validation errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid flush query")

	// ErrJournalDisabled is returned when no journal is configured.
	ErrJournalDisabled = errors.New("flush journal is disabled")
)

// Service implements the read side of the flush journal.
type Service struct {
	store storage.FlushStore
	nowFn func() time.Time
}

// NewService creates a projection service. store may be nil when the journal
// is disabled; every query then fails with ErrJournalDisabled.
func NewService(store storage.FlushStore) *Service {
	return &Service{
		store: store,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ListFlushes returns the most recent flushes of a subscription.
func (s *Service) ListFlushes(ctx context.Context, subscriptionID int64, limit int) (*FlushListResponse, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListFlushes(ctx, subscriptionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list flushes: %w", err)
	}

	views := make([]FlushView, len(records))
	for i, r := range records {
		views[i] = FlushView{
			ID:               r.ID,
			SubscriptionID:   r.SubscriptionID,
			SubscriptionType: r.SubscriptionType,
			Trigger:          r.Trigger,
			EventCount:       r.EventCount,
			TotalSize:        r.TotalSize,
			Files:            len(r.Events),
			Delivered:        r.Delivered,
			FirstEventAt:     r.FirstEventAt,
			FlushedAt:        r.FlushedAt,
			Events:           r.Events,
		}
	}

	return &FlushListResponse{
		SubscriptionID: subscriptionID,
		Limit:          limit,
		Flushes:        views,
	}, nil
}

// Summarize returns totals and exact averages over a subscription's journal.
func (s *Service) Summarize(ctx context.Context, subscriptionID int64) (*SummaryResponse, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}

	sum, err := s.store.SummarizeSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("summarize subscription: %w", err)
	}

	resp := &SummaryResponse{
		SubscriptionID:    subscriptionID,
		Flushes:           sum.Flushes,
		Delivered:         sum.Delivered,
		Undelivered:       sum.Flushes - sum.Delivered,
		Events:            sum.Events,
		TotalSize:         sum.TotalSize,
		AvgEventsPerFlush: average(sum.Events, sum.Flushes),
		AvgSizePerFlush:   average(sum.TotalSize, sum.Flushes),
		DeliveryRatio:     average(sum.Delivered, sum.Flushes),
		Triggers:          rollupTriggers(sum.ByTrigger, sum.Flushes),
		FirstFlushAt:      sum.FirstFlushAt,
		LastFlushAt:       sum.LastFlushAt,
	}

	if sum.LastFlushAt != nil {
		staleness := int(s.nowFn().Sub(*sum.LastFlushAt).Seconds())
		if staleness < 0 {
			staleness = 0
		}
		resp.StalenessSeconds = staleness
	}
	return resp, nil
}

// FileHistory returns the most recent flushes covering a file and per
// subscription totals over them.
func (s *Service) FileHistory(ctx context.Context, fileUUID string, limit int) (*FileHistoryResponse, error) {
	if s.store == nil {
		return nil, ErrJournalDisabled
	}
	if fileUUID == "" {
		return nil, invalidQueryf("file_uuid is required")
	}
	limit, err := normalizeLimit(limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListFileFlushes(ctx, fileUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list file flushes: %w", err)
	}

	views := make([]FileFlushView, len(rows))
	for i, r := range rows {
		views[i] = FileFlushView{
			FlushID:        r.FlushID,
			SubscriptionID: r.SubscriptionID,
			PartitionID:    r.PartitionID,
			Counter:        r.Counter,
			Size:           r.Size,
			FlushedAt:      r.FlushedAt,
		}
	}

	return &FileHistoryResponse{
		FileUUID:    fileUUID,
		PartitionID: partition.For(fileUUID),
		Limit:       limit,
		Flushes:     views,
		Totals:      rollupFileTotals(rows),
	}, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return defaultLimit, nil
	case limit < 0 || limit > maxLimit:
		return 0, invalidQueryf("limit must be between 1 and %d", maxLimit)
	default:
		return limit, nil
	}
}

// average returns num/den rounded to averageScale places, or zero when den is zero.
func average(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).DivRound(decimal.NewFromInt(den), averageScale)
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
