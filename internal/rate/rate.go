// Package rate measures how regularly a pipeline delivers samples.
package rate

import (
	"math"
	"time"
)

const (
	// rateStabilityThreshold is the maximum allowed rate standard deviation as a fraction of the mean rate.
	// Example: 30 Hz mean → stable if stddev < 4.5 Hz
	rateStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum allowed mean jitter as a fraction of the expected interval.
	// Example: 30 Hz (33ms interval) → stable if jitter < 6.6ms
	jitterStabilityThreshold = 0.20
)

// Stats describes sample delivery over one window.
type Stats struct {
	Deliveries   int           // Number of deliveries in the window
	Window       time.Duration // Length of the window
	RateMean     float64       // Deliveries per second across the window
	RateStdDev   float64       // Standard deviation of the instantaneous rate
	RateMin      float64       // Minimum instantaneous rate
	RateMax      float64       // Maximum instantaneous rate
	JitterMean   float64       // Mean deviation from the expected interval (seconds)
	JitterStdDev float64       // Standard deviation of jitter (seconds)
	JitterMax    float64       // Maximum jitter observed (seconds)
	Stable       bool          // stddev < 15% of mean AND jitter < 20% of the expected interval
}

// Calculate computes delivery statistics from arrival times.
//
// Fewer than two deliveries yield only the mean rate and Stable=false:
// there is no interval to measure.
func Calculate(times []time.Time, window time.Duration) Stats {
	n := len(times)
	stats := Stats{Deliveries: n, Window: window}

	if n == 0 || window <= 0 {
		return stats
	}

	stats.RateMean = float64(n) / window.Seconds()

	// Instantaneous rate per interval
	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := times[i].Sub(times[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}

	if len(instantaneous) == 0 {
		return stats
	}

	stats.RateMin = instantaneous[0]
	stats.RateMax = instantaneous[0]
	var sumSquares float64
	for _, r := range instantaneous {
		stats.RateMin = math.Min(stats.RateMin, r)
		stats.RateMax = math.Max(stats.RateMax, r)
		diff := r - stats.RateMean
		sumSquares += diff * diff
	}
	stats.RateStdDev = math.Sqrt(sumSquares / float64(len(instantaneous)))

	// Jitter = deviation from the expected interval
	expected := 1.0 / stats.RateMean
	jitters := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		actual := times[i].Sub(times[i-1]).Seconds()
		jitters = append(jitters, math.Abs(actual-expected))
	}

	var jitterSum float64
	for _, j := range jitters {
		jitterSum += j
		stats.JitterMax = math.Max(stats.JitterMax, j)
	}
	stats.JitterMean = jitterSum / float64(len(jitters))

	var jitterSumSquares float64
	for _, j := range jitters {
		diff := j - stats.JitterMean
		jitterSumSquares += diff * diff
	}
	stats.JitterStdDev = math.Sqrt(jitterSumSquares / float64(len(jitters)))

	rateStable := stats.RateStdDev < stats.RateMean*rateStabilityThreshold
	jitterStable := stats.JitterMean < expected*jitterStabilityThreshold
	stats.Stable = rateStable && jitterStable

	return stats
}
