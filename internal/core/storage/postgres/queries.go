package postgres

// SQL for the flush journal.

const (
	// queryInsertFlush records a flush. ON CONFLICT DO NOTHING affects no
	// rows for a flush ID that was already recorded.
	queryInsertFlush = `
		INSERT INTO flushes (
			id, subscription_id, subscription_type, trigger,
			event_count, total_size, events, delivered,
			first_event_at, flushed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	// queryInsertFlushFile records one file of a flush under its partition.
	queryInsertFlushFile = `
		INSERT INTO flush_files (
			flush_id, subscription_id, partition_id, file_uuid,
			counter, size, flushed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	queryListFlushes = `
		SELECT
			id, subscription_id, subscription_type, trigger,
			event_count, total_size, events, delivered,
			first_event_at, flushed_at
		FROM flushes
		WHERE subscription_id = $1
		ORDER BY flushed_at DESC, id ASC
		LIMIT $2
	`

	querySummarizeSubscription = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE delivered),
			COALESCE(SUM(event_count), 0),
			COALESCE(SUM(total_size), 0),
			MIN(flushed_at),
			MAX(flushed_at)
		FROM flushes
		WHERE subscription_id = $1
	`

	queryTriggerCounts = `
		SELECT trigger, COUNT(*)
		FROM flushes
		WHERE subscription_id = $1
		GROUP BY trigger
		ORDER BY trigger ASC
	`

	// queryListFileFlushes is partition-scoped so it only touches one
	// partition of the flush_files index.
	queryListFileFlushes = `
		SELECT
			flush_id, subscription_id, partition_id, file_uuid,
			counter, size, flushed_at
		FROM flush_files
		WHERE partition_id = $1
		  AND file_uuid = $2
		ORDER BY flushed_at DESC
		LIMIT $3
	`
)
