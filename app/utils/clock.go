package utils

import (
	"math"
	"time"
)

// Clock returns the current time. time.Now keeps the monotonic reading,
// which is what elapsed-time comparisons must use.
type Clock func() time.Time

// SystemClock is the wall clock with monotonic reading
func SystemClock() time.Time {
	return time.Now()
}

// RoundTo rounds v to the given number of decimals
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
