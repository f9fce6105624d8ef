package aggregation

import (
	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// Merger defines how events of one type fold into the per-file merged event.
// To support a new event type: implement Merger and register it in Mergers.
type Merger interface {
	// Initial returns the merged event after the first event for a file.
	Initial(incoming v1.Event) v1.Event

	// Apply folds an incoming event into the current merged event.
	Apply(current, incoming v1.Event) v1.Event
}

// Mergers is the registry of merge semantics keyed by event type.
var Mergers = map[v1.EventType]Merger{
	v1.EventRead:         readMerger{},
	v1.EventWrite:        writeMerger{},
	v1.EventTruncate:     writeMerger{},
	v1.EventFileAccessed: accessMerger{},
	v1.EventFileRemoval:  removalMerger{},
}

// weight is how many raw events an event stands for.
func weight(e v1.Event) int64 {
	if e.Counter > 0 {
		return e.Counter
	}
	return 1
}

func blocksOf(e v1.Event) []v1.Block {
	if len(e.Blocks) > 0 {
		return e.Blocks
	}
	if e.Type == v1.EventTruncate || e.Size == 0 {
		return nil
	}
	return []v1.Block{{Offset: e.Offset, Size: e.Size}}
}

type readMerger struct{}

func (readMerger) Initial(in v1.Event) v1.Event {
	return v1.Event{
		Type:      v1.EventRead,
		FileUUID:  in.FileUUID,
		Size:      in.Size,
		Counter:   weight(in),
		Blocks:    UnionBlocks(nil, blocksOf(in)...),
		EmittedAt: in.EmittedAt,
	}
}

func (readMerger) Apply(cur, in v1.Event) v1.Event {
	cur.Size += in.Size
	cur.Counter += weight(in)
	cur.Blocks = UnionBlocks(cur.Blocks, blocksOf(in)...)
	return cur
}

// writeMerger handles both writes and truncates; the merged event is always a
// write so truncates reach the provider on the write stream.
type writeMerger struct{}

func (m writeMerger) Initial(in v1.Event) v1.Event {
	out := v1.Event{
		Type:      v1.EventWrite,
		FileUUID:  in.FileUUID,
		EmittedAt: in.EmittedAt,
	}
	return m.Apply(out, in)
}

func (writeMerger) Apply(cur, in v1.Event) v1.Event {
	cur.Size += in.Size
	cur.Counter += weight(in)

	if in.Type == v1.EventTruncate && in.FileSize != nil {
		cur.Blocks = TrimBlocks(cur.Blocks, *in.FileSize)
	} else {
		cur.Blocks = UnionBlocks(cur.Blocks, blocksOf(in)...)
	}

	if in.FileSize != nil {
		fs := *in.FileSize
		cur.FileSize = &fs
	}
	return cur
}

type accessMerger struct{}

func (accessMerger) Initial(in v1.Event) v1.Event {
	return v1.Event{
		Type:         v1.EventFileAccessed,
		FileUUID:     in.FileUUID,
		Counter:      weight(in),
		OpenCount:    in.OpenCount,
		ReleaseCount: in.ReleaseCount,
		EmittedAt:    in.EmittedAt,
	}
}

func (accessMerger) Apply(cur, in v1.Event) v1.Event {
	cur.Counter += weight(in)
	cur.OpenCount += in.OpenCount
	cur.ReleaseCount += in.ReleaseCount
	return cur
}

// removalMerger only counts: a removed file is reported once per flush.
type removalMerger struct{}

func (removalMerger) Initial(in v1.Event) v1.Event {
	return v1.Event{
		Type:      v1.EventFileRemoval,
		FileUUID:  in.FileUUID,
		Counter:   weight(in),
		EmittedAt: in.EmittedAt,
	}
}

func (removalMerger) Apply(cur, in v1.Event) v1.Event {
	cur.Counter += weight(in)
	return cur
}

// Collapse merges events for the same file into one event per file, in order
// of first appearance. Events of unregistered types are skipped.
func Collapse(events ...v1.Event) []v1.Event {
	index := make(map[string]int)
	var out []v1.Event
	for _, e := range events {
		m, ok := Mergers[e.Type]
		if !ok {
			continue
		}
		if i, seen := index[e.FileUUID]; seen {
			out[i] = m.Apply(out[i], e)
			continue
		}
		index[e.FileUUID] = len(out)
		out = append(out, m.Initial(e))
	}
	return out
}
