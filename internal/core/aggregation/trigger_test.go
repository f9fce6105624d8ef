package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

func TestEvaluate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	build := func(sizes ...int64) *Aggregate {
		agg := NewAggregate()
		for _, s := range sizes {
			agg.Add(v1.NewReadEvent("f", 0, s), t0)
		}
		return agg
	}

	tests := []struct {
		name    string
		th      v1.Thresholds
		agg     *Aggregate
		now     time.Time
		want    Trigger
		trigger bool
	}{
		{name: "empty never triggers", th: v1.Thresholds{Counter: 1}, agg: build(), now: t0},
		{name: "no thresholds", agg: build(10, 10), now: t0.Add(time.Hour)},
		{name: "counter reached", th: v1.Thresholds{Counter: 2}, agg: build(1, 1), now: t0, want: TriggerCounter, trigger: true},
		{name: "counter not reached", th: v1.Thresholds{Counter: 3}, agg: build(1, 1), now: t0},
		{name: "size reached exactly", th: v1.Thresholds{Size: 20}, agg: build(10, 10), now: t0, want: TriggerSize, trigger: true},
		{name: "size overshoot", th: v1.Thresholds{Size: 5}, agg: build(50), now: t0, want: TriggerSize, trigger: true},
		{name: "size not reached", th: v1.Thresholds{Size: 21}, agg: build(10, 10), now: t0},
		{name: "time elapsed", th: v1.Thresholds{Time: time.Second}, agg: build(1), now: t0.Add(time.Second), want: TriggerTime, trigger: true},
		{name: "time not elapsed", th: v1.Thresholds{Time: time.Second}, agg: build(1), now: t0.Add(999 * time.Millisecond)},
		{
			name: "counter wins over size and time",
			th:   v1.Thresholds{Counter: 1, Size: 1, Time: time.Millisecond},
			agg:  build(5), now: t0.Add(time.Second),
			want: TriggerCounter, trigger: true,
		},
		{
			name: "size wins over time",
			th:   v1.Thresholds{Counter: 10, Size: 1, Time: time.Millisecond},
			agg:  build(5), now: t0.Add(time.Second),
			want: TriggerSize, trigger: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Evaluate(tc.th, tc.agg, tc.now)
			require.Equal(t, tc.trigger, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
