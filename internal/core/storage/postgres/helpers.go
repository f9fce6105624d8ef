package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/aevon-lab/fsevents/internal/core/storage"
)

// marshalEvents encodes the merged events of a flush for the JSONB column.
// An empty flush produces "[]" rather than SQL NULL.
func marshalEvents(record *storage.FlushRecord) ([]byte, error) {
	if len(record.Events) == 0 {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(record.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}
	return data, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanFlushRow scans a flushes row. Compatible with sql.Row and sql.Rows.
func scanFlushRow(row scanner) (*storage.FlushRecord, error) {
	var rec storage.FlushRecord
	var eventsJSON []byte

	err := row.Scan(
		&rec.ID,
		&rec.SubscriptionID,
		&rec.SubscriptionType,
		&rec.Trigger,
		&rec.EventCount,
		&rec.TotalSize,
		&eventsJSON,
		&rec.Delivered,
		&rec.FirstEventAt,
		&rec.FlushedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan flush row: %w", err)
	}

	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &rec.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}

	return &rec, nil
}

func scanFileFlushRow(row scanner) (*storage.FileFlush, error) {
	var ff storage.FileFlush
	err := row.Scan(
		&ff.FlushID,
		&ff.SubscriptionID,
		&ff.PartitionID,
		&ff.FileUUID,
		&ff.Counter,
		&ff.Size,
		&ff.FlushedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan flush file row: %w", err)
	}
	return &ff, nil
}
