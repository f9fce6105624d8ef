package aggregation

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// Aggregate is the unflushed state of one subscription. It is not safe for
// concurrent use; the engine goroutine owns every aggregate.
type Aggregate struct {
	Count        int64
	Size         int64
	FirstEventAt time.Time

	files map[string]v1.Event
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{files: make(map[string]v1.Event)}
}

// Add folds e into the aggregate. Events of unregistered types are ignored.
func (a *Aggregate) Add(e v1.Event, now time.Time) {
	m, ok := Mergers[e.Type]
	if !ok {
		return
	}

	if a.Count == 0 {
		a.FirstEventAt = now
	}
	a.Count++
	a.Size += e.Size

	if cur, seen := a.files[e.FileUUID]; seen {
		a.files[e.FileUUID] = m.Apply(cur, e)
	} else {
		a.files[e.FileUUID] = m.Initial(e)
	}
}

// Empty reports whether nothing has been added since the last reset.
func (a *Aggregate) Empty() bool {
	return a.Count == 0
}

// Events returns the merged events sorted by file UUID.
func (a *Aggregate) Events() []v1.Event {
	out := make([]v1.Event, 0, len(a.files))
	for _, e := range a.files {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileUUID < out[j].FileUUID })
	return out
}

// Reset clears the aggregate after a flush.
func (a *Aggregate) Reset() {
	a.Count = 0
	a.Size = 0
	a.FirstEventAt = time.Time{}
	clear(a.files)
}
