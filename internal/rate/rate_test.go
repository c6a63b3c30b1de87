package rate

import (
	"math"
	"testing"
	"time"
)

// regularTimes returns n arrival times at hz, each interval alternately
// shortened and lengthened by jitter (a fraction of the nominal interval).
func regularTimes(n int, hz, jitter float64) []time.Time {
	base := time.Unix(1700000000, 0)
	interval := time.Duration(float64(time.Second) / hz)
	offset := time.Duration(float64(interval) * jitter / 2)

	times := make([]time.Time, n)
	for i := range times {
		t := base.Add(time.Duration(i) * interval)
		if i%2 == 0 {
			t = t.Add(offset)
		} else {
			t = t.Add(-offset)
		}
		times[i] = t
	}
	return times
}

func windowFor(n int, hz float64) time.Duration {
	return time.Duration(float64(n) / hz * float64(time.Second))
}

func TestCalculate_Stability(t *testing.T) {
	tests := []struct {
		name       string
		jitter     float64
		wantStable bool
	}{
		{"perfectly regular", 0, true},
		{"5% jitter", 0.05, true},
		{"10% jitter", 0.10, true},
		{"25% jitter", 0.25, false},
		{"50% jitter", 0.50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := regularTimes(60, 30, tt.jitter)
			stats := Calculate(times, windowFor(60, 30))

			if stats.Stable != tt.wantStable {
				t.Errorf("Stable = %v, want %v (rate stddev: %.2f%%, jitter: %.2f%%)",
					stats.Stable, tt.wantStable,
					stats.RateStdDev/stats.RateMean*100,
					stats.JitterMean*stats.RateMean*100,
				)
			}
			if math.Abs(stats.RateMean-30) > 0.01 {
				t.Errorf("RateMean = %.3f, want 30", stats.RateMean)
			}
		})
	}
}

func TestCalculate_MinMax(t *testing.T) {
	stats := Calculate(regularTimes(10, 10, 0.2), time.Second)

	// Intervals alternate between 80ms and 120ms.
	if math.Abs(stats.RateMax-12.5) > 0.01 {
		t.Errorf("RateMax = %.3f, want 12.5", stats.RateMax)
	}
	if math.Abs(stats.RateMin-1/0.12) > 0.01 {
		t.Errorf("RateMin = %.3f, want %.3f", stats.RateMin, 1/0.12)
	}
	if math.Abs(stats.JitterMax-0.02) > 1e-6 {
		t.Errorf("JitterMax = %.6f, want 0.02", stats.JitterMax)
	}
}

func TestCalculate_EdgeCases(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		times    []time.Time
		window   time.Duration
		wantMean float64
	}{
		{"no deliveries", nil, time.Second, 0},
		{"one delivery", []time.Time{now}, time.Second, 1},
		{"zero window", []time.Time{now, now.Add(time.Millisecond)}, 0, 0},
		{"identical timestamps", []time.Time{now, now, now}, time.Second, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := Calculate(tt.times, tt.window)
			if stats.Stable {
				t.Errorf("Stable = true, want false")
			}
			if stats.RateMean != tt.wantMean {
				t.Errorf("RateMean = %.3f, want %.3f", stats.RateMean, tt.wantMean)
			}
			if stats.Deliveries != len(tt.times) {
				t.Errorf("Deliveries = %d, want %d", stats.Deliveries, len(tt.times))
			}
		})
	}
}
