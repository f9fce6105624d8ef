package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
	coreagg "github.com/aevon-lab/fsevents/internal/core/aggregation"
	coreerrors "github.com/aevon-lab/fsevents/internal/core/errors"
)

// Entry is an active subscription and its unflushed aggregate.
// Aggregate is mutated only by the engine goroutine.
type Entry struct {
	Subscription v1.Subscription
	Aggregate    *coreagg.Aggregate
	CreatedAt    time.Time
}

// Registry holds the active subscriptions. It keeps two lookup paths:
//   - byID for subscribe and cancel
//   - byType for matching an incoming event
type Registry struct {
	byID   map[int64]*Entry
	byType map[v1.SubscriptionType]map[int64]*Entry

	mu sync.RWMutex
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byID:   make(map[int64]*Entry),
		byType: make(map[v1.SubscriptionType]map[int64]*Entry),
	}
}

// Add registers sub with a fresh aggregate.
func (r *Registry) Add(sub v1.Subscription, now time.Time) (*Entry, error) {
	if err := sub.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInvalidSubscription, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[sub.ID]; exists {
		return nil, fmt.Errorf("subscription %d: %w", sub.ID, coreerrors.ErrDuplicateSubscription)
	}

	e := &Entry{
		Subscription: sub,
		Aggregate:    coreagg.NewAggregate(),
		CreatedAt:    now,
	}
	r.byID[sub.ID] = e

	idx, ok := r.byType[sub.Type]
	if !ok {
		idx = make(map[int64]*Entry)
		r.byType[sub.Type] = idx
	}
	idx[sub.ID] = e
	return e, nil
}

// Cancel removes the subscription and returns its entry so the caller can
// flush what it accumulated.
func (r *Registry) Cancel(id int64) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.byID[id]
	if !exists {
		return nil, fmt.Errorf("subscription %d: %w", id, coreerrors.ErrUnknownSubscription)
	}

	delete(r.byID, id)
	if idx, ok := r.byType[e.Subscription.Type]; ok {
		delete(idx, id)
		if len(idx) == 0 {
			delete(r.byType, e.Subscription.Type)
		}
	}
	return e, nil
}

// ActiveFor returns the entries receiving events routed to typ, ordered by ID.
func (r *Registry) ActiveFor(typ v1.SubscriptionType) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.byType[typ]
	out := make([]*Entry, 0, len(idx))
	for _, e := range idx {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// Get returns the entry for id.
func (r *Registry) Get(id int64) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	return e, ok
}

// Entries returns every active entry ordered by ID.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// List returns the active subscriptions ordered by ID. Safe to call from any goroutine.
func (r *Registry) List() []v1.Subscription {
	entries := r.Entries()
	out := make([]v1.Subscription, len(entries))
	for i, e := range entries {
		out[i] = e.Subscription
	}
	return out
}

// Len returns the number of active subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func sortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Subscription.ID < entries[j].Subscription.ID
	})
}
