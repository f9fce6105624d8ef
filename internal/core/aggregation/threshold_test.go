package aggregation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeThreshold(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      time.Duration
		wantError bool
	}{
		{name: "empty disables", input: "", want: 0},
		{name: "zero disables", input: "0", want: 0},
		{name: "bare milliseconds", input: "1500", want: 1500 * time.Millisecond},
		{name: "duration", input: "250ms", want: 250 * time.Millisecond},
		{name: "seconds", input: "5s", want: 5 * time.Second},
		{name: "negative millis invalid", input: "-5", wantError: true},
		{name: "negative duration invalid", input: "-1s", wantError: true},
		{name: "unknown unit invalid", input: "10x", wantError: true},
		{name: "largest millis", input: "9223372036854", want: 9223372036854 * time.Millisecond},
		{name: "millis past duration range", input: "10000000000000", wantError: true},
		{name: "millis wrapping to small value", input: "288230376151711944", wantError: true},
		{name: "duration past range", input: "3000000h", wantError: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeThreshold(tc.input)
			if tc.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMillisThreshold(t *testing.T) {
	d, err := MillisThreshold(MaxThresholdMillis)
	require.NoError(t, err)
	require.Positive(t, d)

	d, err = MillisThreshold(-5)
	require.NoError(t, err)
	require.Equal(t, -5*time.Millisecond, d)

	for _, ms := range []int64{MaxThresholdMillis + 1, -MaxThresholdMillis - 1, 288230376151711944, math.MinInt64} {
		_, err := MillisThreshold(ms)
		require.Error(t, err, "ms=%d", ms)
	}
}
