package aggregation

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// MaxThresholdMillis is the largest millisecond threshold a time.Duration holds.
const MaxThresholdMillis = math.MaxInt64 / int64(time.Millisecond)

// MillisThreshold converts a threshold in milliseconds. Values whose
// magnitude exceeds MaxThresholdMillis cannot be represented and fail.
func MillisThreshold(ms int64) (time.Duration, error) {
	if ms > MaxThresholdMillis || ms < -MaxThresholdMillis {
		return 0, fmt.Errorf("time_threshold %dms is out of range (max %dms)", ms, MaxThresholdMillis)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// ParseTimeThreshold parses a time threshold. Go duration syntax ("250ms",
// "5s") is accepted, as is a bare integer meaning milliseconds, which is how
// the provider expresses it on the wire. Empty or "0" disables the threshold.
func ParseTimeThreshold(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("time_threshold must be >= 0, got %q", s)
		}
		return MillisThreshold(ms)
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time_threshold %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("time_threshold must be >= 0, got %q", s)
	}
	return d, nil
}
