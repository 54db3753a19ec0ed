// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max.
// If min exceeds the floating point, then the function returns the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Ones returns a slice of 1.0's of the argument length
func Ones(length int) []float64 {
	ones := make([]float64, length)
	for i := range ones {
		ones[i] = 1.0
	}
	return ones
}
