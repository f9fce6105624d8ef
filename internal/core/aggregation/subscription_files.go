package aggregation

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

// StaticSubscription is a client-side subscription loaded from disk and
// registered at start-up, next to those pushed by the provider.
type StaticSubscription struct {
	Subscription v1.Subscription
	Source       string // file the subscription was read from
	Fingerprint  string // SHA-256 of the raw YAML file
}

// rawSubscription is the on-disk YAML shape.
type rawSubscription struct {
	ID               int64  `yaml:"id"`
	EventType        string `yaml:"event_type"`
	CounterThreshold int64  `yaml:"counter_threshold"`
	TimeThreshold    string `yaml:"time_threshold"`
	SizeThreshold    int64  `yaml:"size_threshold"`
}

// SubscriptionRepository lists statically configured subscriptions.
type SubscriptionRepository interface {
	Get(ctx context.Context, id int64) (*StaticSubscription, error)
	List(ctx context.Context) ([]StaticSubscription, error)
}

// FileSystemSubscriptionRepository loads one subscription per *.yaml file in a
// directory. Files are read once at construction.
type FileSystemSubscriptionRepository struct {
	dir  string
	subs map[int64]StaticSubscription
}

// NewFileSystemSubscriptionRepository loads every subscription file in dir.
// A missing directory yields an empty repository.
func NewFileSystemSubscriptionRepository(dir string) (*FileSystemSubscriptionRepository, error) {
	repo := &FileSystemSubscriptionRepository{
		dir:  dir,
		subs: make(map[int64]StaticSubscription),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemSubscriptionRepository) load() error {
	if r.dir == "" {
		return nil
	}

	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscriptions dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("subscriptions path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading subscriptions dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading subscription file %s: %w", path, err)
		}

		var raw rawSubscription
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parsing subscription file %s: %w", path, err)
		}
		if raw.ID == 0 && raw.EventType == "" {
			continue // comment-only file
		}

		sub, err := raw.toSubscription()
		if err != nil {
			return fmt.Errorf("subscription file %s: %w", path, err)
		}

		if prev, exists := r.subs[sub.ID]; exists {
			return fmt.Errorf("subscription %d: defined in both %s and %s", sub.ID, prev.Source, path)
		}

		r.subs[sub.ID] = StaticSubscription{
			Subscription: sub,
			Source:       path,
			Fingerprint:  fmt.Sprintf("%x", sha256.Sum256(data)),
		}
	}
	return nil
}

func (raw rawSubscription) toSubscription() (v1.Subscription, error) {
	typ, err := v1.ParseSubscriptionType(raw.EventType)
	if err != nil {
		return v1.Subscription{}, err
	}

	window, err := ParseTimeThreshold(raw.TimeThreshold)
	if err != nil {
		return v1.Subscription{}, err
	}

	sub := v1.Subscription{
		ID:   raw.ID,
		Type: typ,
		Thresholds: v1.Thresholds{
			Counter: raw.CounterThreshold,
			Time:    window,
			Size:    raw.SizeThreshold,
		},
	}
	if err := sub.Validate(); err != nil {
		return v1.Subscription{}, err
	}
	return sub, nil
}

// Get returns the subscription with the given ID.
func (r *FileSystemSubscriptionRepository) Get(_ context.Context, id int64) (*StaticSubscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, fmt.Errorf("static subscription %d not found", id)
	}
	return &s, nil
}

// List returns all loaded subscriptions ordered by ID.
func (r *FileSystemSubscriptionRepository) List(_ context.Context) ([]StaticSubscription, error) {
	out := make([]StaticSubscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subscription.ID < out[j].Subscription.ID })
	return out, nil
}
