package v1

import (
	"fmt"
	"time"
)

// SubscriptionType is the class of events a subscription receives.
type SubscriptionType string

const (
	SubscriptionRead         SubscriptionType = "read"
	SubscriptionWrite        SubscriptionType = "write"
	SubscriptionFileAccessed SubscriptionType = "file_accessed"
	SubscriptionFileRemoval  SubscriptionType = "file_removal"
)

// ParseSubscriptionType converts the external name of a subscription type.
func ParseSubscriptionType(s string) (SubscriptionType, error) {
	switch t := SubscriptionType(s); t {
	case SubscriptionRead, SubscriptionWrite, SubscriptionFileAccessed, SubscriptionFileRemoval:
		return t, nil
	default:
		return "", fmt.Errorf("unknown subscription type %q", s)
	}
}

// HasSize reports whether subscriptions of this type accept a size threshold.
// Only byte-carrying streams do.
func (t SubscriptionType) HasSize() bool {
	return t == SubscriptionRead || t == SubscriptionWrite
}

// Thresholds are the flush triggers of a subscription. A zero value disables a threshold.
type Thresholds struct {
	Counter int64         `json:"counter_threshold"`
	Time    time.Duration `json:"time_threshold"`
	Size    int64         `json:"size_threshold"`
}

// IsZero reports whether no threshold is configured.
func (t Thresholds) IsZero() bool {
	return t.Counter == 0 && t.Time == 0 && t.Size == 0
}

// Subscription is a standing request for aggregated notifications about one
// class of file events. IDs are assigned by the caller (usually the provider).
type Subscription struct {
	ID         int64            `json:"id"`
	Type       SubscriptionType `json:"type"`
	Thresholds Thresholds       `json:"thresholds"`
}

// Validate checks the subscription type and threshold ranges.
func (s *Subscription) Validate() error {
	if _, err := ParseSubscriptionType(string(s.Type)); err != nil {
		return err
	}

	if s.Thresholds.Counter < 0 {
		return fmt.Errorf("counter_threshold must be >= 0")
	}

	if s.Thresholds.Time < 0 {
		return fmt.Errorf("time_threshold must be >= 0")
	}

	if s.Thresholds.Size < 0 {
		return fmt.Errorf("size_threshold must be >= 0")
	}

	if !s.Type.HasSize() && s.Thresholds.Size != 0 {
		return fmt.Errorf("size_threshold is not supported for %s subscriptions", s.Type)
	}

	return nil
}

// Cancellation removes an active subscription by ID.
type Cancellation struct {
	SubscriptionID int64 `json:"subscription_id"`
}
