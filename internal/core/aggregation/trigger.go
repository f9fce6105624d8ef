package aggregation

import (
	"time"

	v1 "github.com/aevon-lab/fsevents/internal/api/v1"
)

type triggerCheck struct {
	trigger Trigger
	met     func(th v1.Thresholds, agg *Aggregate, now time.Time) bool
}

// triggerChecks are evaluated in order; the first satisfied one wins.
var triggerChecks = []triggerCheck{
	{TriggerCounter, func(th v1.Thresholds, agg *Aggregate, _ time.Time) bool {
		return th.Counter > 0 && agg.Count >= th.Counter
	}},
	{TriggerSize, func(th v1.Thresholds, agg *Aggregate, _ time.Time) bool {
		return th.Size > 0 && agg.Size >= th.Size
	}},
	{TriggerTime, func(th v1.Thresholds, agg *Aggregate, now time.Time) bool {
		return th.Time > 0 && now.Sub(agg.FirstEventAt) >= th.Time
	}},
}

// Evaluate reports which threshold, if any, requires agg to be flushed now.
// An empty aggregate never triggers.
func Evaluate(th v1.Thresholds, agg *Aggregate, now time.Time) (Trigger, bool) {
	if agg.Empty() {
		return "", false
	}
	for _, c := range triggerChecks {
		if c.met(th, agg, now) {
			return c.trigger, true
		}
	}
	return "", false
}
